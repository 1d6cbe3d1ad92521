package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/transport/http/handler"
	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	projectID = "6f1c1d3e-2a4b-4c5d-8e9f-0a1b2c3d4e5f"
	memberID  = "0b7e5a2c-9d14-4f3a-b6c8-1e2f3a4b5c6d"
)

type fakeProjectUsecase struct {
	create           func(ctx context.Context, userID string, in usecase.CreateProjectInput) (*domain.Project, error)
	list             func(ctx context.Context, userID string) ([]*domain.Project, error)
	get              func(ctx context.Context, userID, projectID string) (*domain.Project, error)
	update           func(ctx context.Context, userID, projectID string, in usecase.UpdateProjectInput) (*domain.Project, error)
	delete           func(ctx context.Context, userID, projectID string) error
	addMember        func(ctx context.Context, actorID, projectID string, in usecase.AddMemberInput) (*domain.Membership, error)
	listMembers      func(ctx context.Context, userID, projectID string) ([]*domain.MemberView, error)
	updateMemberRole func(ctx context.Context, actorID, projectID, userID string, role domain.Role) (*domain.Membership, error)
	removeMember     func(ctx context.Context, actorID, projectID, userID string) error
}

func (f *fakeProjectUsecase) Create(ctx context.Context, userID string, in usecase.CreateProjectInput) (*domain.Project, error) {
	return f.create(ctx, userID, in)
}
func (f *fakeProjectUsecase) List(ctx context.Context, userID string) ([]*domain.Project, error) {
	return f.list(ctx, userID)
}
func (f *fakeProjectUsecase) Get(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	return f.get(ctx, userID, projectID)
}
func (f *fakeProjectUsecase) Update(ctx context.Context, userID, projectID string, in usecase.UpdateProjectInput) (*domain.Project, error) {
	return f.update(ctx, userID, projectID, in)
}
func (f *fakeProjectUsecase) Delete(ctx context.Context, userID, projectID string) error {
	return f.delete(ctx, userID, projectID)
}
func (f *fakeProjectUsecase) AddMember(ctx context.Context, actorID, projectID string, in usecase.AddMemberInput) (*domain.Membership, error) {
	return f.addMember(ctx, actorID, projectID, in)
}
func (f *fakeProjectUsecase) ListMembers(ctx context.Context, userID, projectID string) ([]*domain.MemberView, error) {
	return f.listMembers(ctx, userID, projectID)
}
func (f *fakeProjectUsecase) UpdateMemberRole(ctx context.Context, actorID, projectID, userID string, role domain.Role) (*domain.Membership, error) {
	return f.updateMemberRole(ctx, actorID, projectID, userID, role)
}
func (f *fakeProjectUsecase) RemoveMember(ctx context.Context, actorID, projectID, userID string) error {
	return f.removeMember(ctx, actorID, projectID, userID)
}

func newProjectEngine(uc *fakeProjectUsecase) *gin.Engine {
	h := handler.NewProjectHandler(uc, discardLogger())

	r := gin.New()
	g := r.Group("", authMW())
	g.POST("/projects", h.Create)
	g.GET("/projects", h.List)
	g.GET("/projects/:projectId", h.Get)
	g.PUT("/projects/:projectId", h.Update)
	g.DELETE("/projects/:projectId", h.Delete)
	g.POST("/projects/:projectId/members", h.AddMember)
	g.GET("/projects/:projectId/members", h.ListMembers)
	g.PUT("/projects/:projectId/members/:userId", h.UpdateMemberRole)
	g.DELETE("/projects/:projectId/members/:userId", h.RemoveMember)
	return r
}

func TestProject_Unauthenticated_Returns401(t *testing.T) {
	w := doAs(newProjectEngine(&fakeProjectUsecase{}), "", http.MethodGet, "/projects", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestProject_Create(t *testing.T) {
	var gotUser string
	uc := &fakeProjectUsecase{create: func(_ context.Context, userID string, in usecase.CreateProjectInput) (*domain.Project, error) {
		gotUser = userID
		return &domain.Project{ID: projectID, Name: in.Name, CreatedBy: userID}, nil
	}}
	w := doJSON(newProjectEngine(uc), http.MethodPost, "/projects", `{"name":"Apollo"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if gotUser != "user-1" {
		t.Errorf("creator = %q, want user-1", gotUser)
	}
}

func TestProject_Create_NameTaken_Returns409(t *testing.T) {
	uc := &fakeProjectUsecase{create: func(context.Context, string, usecase.CreateProjectInput) (*domain.Project, error) {
		return nil, domain.ErrProjectNameTaken
	}}
	w := doJSON(newProjectEngine(uc), http.MethodPost, "/projects", `{"name":"Apollo"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestProject_List_EmptyIsArray(t *testing.T) {
	uc := &fakeProjectUsecase{list: func(context.Context, string) ([]*domain.Project, error) { return nil, nil }}
	w := doJSON(newProjectEngine(uc), http.MethodGet, "/projects", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != `{"projects":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestProject_NonUUIDPath_Returns404WithoutCallingUsecase(t *testing.T) {
	// Nil funcs would panic if reached.
	r := newProjectEngine(&fakeProjectUsecase{})
	for _, path := range []string{"/projects/123", "/projects/not-a-uuid/members"} {
		w := doJSON(r, http.MethodGet, path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, w.Code)
		}
	}
}

func TestProject_Get_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrProjectNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		uc := &fakeProjectUsecase{get: func(context.Context, string, string) (*domain.Project, error) { return nil, tc.err }}
		w := doJSON(newProjectEngine(uc), http.MethodGet, "/projects/"+projectID, "")
		if w.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestProject_Delete_Returns204(t *testing.T) {
	uc := &fakeProjectUsecase{delete: func(context.Context, string, string) error { return nil }}
	w := doJSON(newProjectEngine(uc), http.MethodDelete, "/projects/"+projectID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestProject_AddMember_NeedsUserOrEmail(t *testing.T) {
	w := doJSON(newProjectEngine(&fakeProjectUsecase{}), http.MethodPost, "/projects/"+projectID+"/members", `{"role":"member"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProject_AddMember_ByEmail(t *testing.T) {
	var got usecase.AddMemberInput
	uc := &fakeProjectUsecase{addMember: func(_ context.Context, _, pid string, in usecase.AddMemberInput) (*domain.Membership, error) {
		got = in
		return &domain.Membership{ProjectID: pid, UserID: memberID, Role: domain.RoleMember}, nil
	}}
	w := doJSON(newProjectEngine(uc), http.MethodPost, "/projects/"+projectID+"/members", `{"email":"bob@example.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if got.Email != "bob@example.com" || got.UserID != "" {
		t.Errorf("input = %+v", got)
	}
}

func TestProject_UpdateMemberRole(t *testing.T) {
	t.Run("unknown role is 422", func(t *testing.T) {
		w := doJSON(newProjectEngine(&fakeProjectUsecase{}), http.MethodPut,
			"/projects/"+projectID+"/members/"+memberID, `{"role":"owner"}`)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", w.Code)
		}
	})

	t.Run("last admin is 409", func(t *testing.T) {
		uc := &fakeProjectUsecase{updateMemberRole: func(context.Context, string, string, string, domain.Role) (*domain.Membership, error) {
			return nil, domain.ErrLastAdmin
		}}
		w := doJSON(newProjectEngine(uc), http.MethodPut,
			"/projects/"+projectID+"/members/"+memberID, `{"role":"member"}`)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("promotes", func(t *testing.T) {
		uc := &fakeProjectUsecase{updateMemberRole: func(_ context.Context, _, pid, uid string, role domain.Role) (*domain.Membership, error) {
			return &domain.Membership{ProjectID: pid, UserID: uid, Role: role}, nil
		}}
		w := doJSON(newProjectEngine(uc), http.MethodPut,
			"/projects/"+projectID+"/members/"+memberID, `{"role":"admin"}`)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func TestProject_RemoveMember_Forbidden(t *testing.T) {
	uc := &fakeProjectUsecase{removeMember: func(context.Context, string, string, string) error {
		return domain.ErrForbidden
	}}
	w := doJSON(newProjectEngine(uc), http.MethodDelete, "/projects/"+projectID+"/members/"+memberID, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
