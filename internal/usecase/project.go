package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
	"github.com/ErlanBelekov/task-tracker/internal/storage"
)

type ProjectUsecase struct {
	projects repository.ProjectRepository
	members  repository.MembershipRepository
	users    repository.UserRepository
	authz    *Authorizer
	store    storage.Store
	logger   *slog.Logger
}

func NewProjectUsecase(
	projects repository.ProjectRepository,
	members repository.MembershipRepository,
	users repository.UserRepository,
	authz *Authorizer,
	store storage.Store,
	logger *slog.Logger,
) *ProjectUsecase {
	return &ProjectUsecase{
		projects: projects,
		members:  members,
		users:    users,
		authz:    authz,
		store:    store,
		logger:   logger.With("component", "projects"),
	}
}

type CreateProjectInput struct {
	Name        string
	Description string
}

// Create makes the caller the project's first admin.
func (u *ProjectUsecase) Create(ctx context.Context, userID string, in CreateProjectInput) (*domain.Project, error) {
	p, err := u.projects.CreateWithAdmin(ctx, &domain.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   userID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrProjectNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (u *ProjectUsecase) List(ctx context.Context, userID string) ([]*domain.Project, error) {
	projects, err := u.projects.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (u *ProjectUsecase) Get(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	if err := u.authz.RequireMember(ctx, userID, projectID); err != nil {
		return nil, err
	}
	p, err := u.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
}

func (u *ProjectUsecase) Update(ctx context.Context, userID, projectID string, in UpdateProjectInput) (*domain.Project, error) {
	if err := u.authz.RequireAdmin(ctx, userID, projectID); err != nil {
		return nil, err
	}
	p, err := u.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}

	updated, err := u.projects.Update(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return updated, nil
}

// Delete drops the project with everything in it, then removes the stored
// attachment objects.
func (u *ProjectUsecase) Delete(ctx context.Context, userID, projectID string) error {
	if err := u.authz.RequireAdmin(ctx, userID, projectID); err != nil {
		return err
	}
	keys, err := u.projects.Delete(ctx, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	removeObjects(ctx, u.store, u.logger, keys)
	return nil
}

// AddMemberInput identifies the new member by ID or, failing that, by email.
type AddMemberInput struct {
	UserID string
	Email  string
	Role   domain.Role
}

func (u *ProjectUsecase) AddMember(ctx context.Context, actorID, projectID string, in AddMemberInput) (*domain.Membership, error) {
	if in.Role == "" {
		in.Role = domain.RoleMember
	}
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if err := u.authz.RequireAdmin(ctx, actorID, projectID); err != nil {
		return nil, err
	}

	userID := in.UserID
	if userID == "" {
		target, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(in.Email))
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("find user: %w", err)
		}
		userID = target.ID
	}

	m, err := u.members.Add(ctx, &domain.Membership{ProjectID: projectID, UserID: userID, Role: in.Role})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyMember) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	u.logger.InfoContext(ctx, "member added", "project_id", projectID, "user_id", userID, "role", in.Role)
	return m, nil
}

func (u *ProjectUsecase) ListMembers(ctx context.Context, userID, projectID string) ([]*domain.MemberView, error) {
	if err := u.authz.RequireMember(ctx, userID, projectID); err != nil {
		return nil, err
	}
	members, err := u.members.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (u *ProjectUsecase) UpdateMemberRole(ctx context.Context, actorID, projectID, userID string, role domain.Role) (*domain.Membership, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if err := u.authz.RequireAdmin(ctx, actorID, projectID); err != nil {
		return nil, err
	}
	m, err := u.members.UpdateRole(ctx, projectID, userID, role)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) || errors.Is(err, domain.ErrLastAdmin) {
			return nil, err
		}
		return nil, fmt.Errorf("update member role: %w", err)
	}
	u.logger.InfoContext(ctx, "member role changed", "project_id", projectID, "user_id", userID, "role", role)
	return m, nil
}

func (u *ProjectUsecase) RemoveMember(ctx context.Context, actorID, projectID, userID string) error {
	if err := u.authz.RequireAdmin(ctx, actorID, projectID); err != nil {
		return err
	}
	if err := u.members.Remove(ctx, projectID, userID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) || errors.Is(err, domain.ErrLastAdmin) {
			return err
		}
		return fmt.Errorf("remove member: %w", err)
	}
	u.logger.InfoContext(ctx, "member removed", "project_id", projectID, "user_id", userID)
	return nil
}
