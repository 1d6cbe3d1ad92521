package usecase_test

import (
	"context"
	"testing"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectFixture struct {
	uc       *usecase.ProjectUsecase
	projects *memProjects
	members  *memMembers
	users    *memUsers
	store    *fakeStore
}

func newProjectFixture() *projectFixture {
	f := &projectFixture{members: newMemMembers(), users: newMemUsers(), store: newFakeStore()}
	f.projects = newMemProjects(f.members)
	f.uc = usecase.NewProjectUsecase(f.projects, f.members, f.users, usecase.NewAuthorizer(f.members), f.store, discardLogger())
	return f
}

func TestProjectCreate_CreatorBecomesAdmin(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	p, err := f.uc.Create(ctx, "alice", usecase.CreateProjectInput{Name: "  Apollo ", Description: "moon"})
	require.NoError(t, err)
	assert.Equal(t, "Apollo", p.Name)

	m, err := f.members.Get(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, m.Role)

	_, err = f.uc.Create(ctx, "bob", usecase.CreateProjectInput{Name: "Apollo"})
	assert.ErrorIs(t, err, domain.ErrProjectNameTaken)
}

func TestProjectPermissions(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	p, err := f.uc.Create(ctx, "alice", usecase.CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	f.members.set(p.ID, "bob", domain.RoleMember)

	_, err = f.uc.Get(ctx, "bob", p.ID)
	assert.NoError(t, err, "members can view")
	_, err = f.uc.Get(ctx, "carol", p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	name := "Artemis"
	_, err = f.uc.Update(ctx, "bob", p.ID, usecase.UpdateProjectInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden, "members cannot update")
	updated, err := f.uc.Update(ctx, "alice", p.ID, usecase.UpdateProjectInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Artemis", updated.Name)

	_, err = f.uc.ListMembers(ctx, "carol", p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, f.uc.Delete(ctx, "bob", p.ID), domain.ErrForbidden)
	assert.Empty(t, f.projects.deleted)
}

func TestProjectDelete_RemovesAttachmentObjects(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	p, err := f.uc.Create(ctx, "alice", usecase.CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	f.projects.keys[p.ID] = []string{"tasks/t1/a.png", "tasks/t2/b.pdf"}

	require.NoError(t, f.uc.Delete(ctx, "alice", p.ID))
	assert.Equal(t, []string{p.ID}, f.projects.deleted)
	assert.ElementsMatch(t, []string{"tasks/t1/a.png", "tasks/t2/b.pdf"}, f.store.deleted)
}

func TestAddMember(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	p, err := f.uc.Create(ctx, "alice", usecase.CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	f.users.put(&domain.User{ID: "bob", Email: "bob@example.com", Username: "bob"})

	m, err := f.uc.AddMember(ctx, "alice", p.ID, usecase.AddMemberInput{Email: " Bob@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "bob", m.UserID)
	assert.Equal(t, domain.RoleMember, m.Role, "role defaults to member")

	_, err = f.uc.AddMember(ctx, "alice", p.ID, usecase.AddMemberInput{UserID: "bob"})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = f.uc.AddMember(ctx, "alice", p.ID, usecase.AddMemberInput{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.uc.AddMember(ctx, "alice", p.ID, usecase.AddMemberInput{UserID: "carol", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = f.uc.AddMember(ctx, "bob", p.ID, usecase.AddMemberInput{UserID: "carol"})
	assert.ErrorIs(t, err, domain.ErrForbidden, "members cannot add members")
}

func TestLastAdminGuard(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	p, err := f.uc.Create(ctx, "alice", usecase.CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)
	f.members.set(p.ID, "bob", domain.RoleMember)

	_, err = f.uc.UpdateMemberRole(ctx, "alice", p.ID, "alice", domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrLastAdmin)
	assert.ErrorIs(t, f.uc.RemoveMember(ctx, "alice", p.ID, "alice"), domain.ErrLastAdmin)

	_, err = f.uc.UpdateMemberRole(ctx, "alice", p.ID, "bob", domain.RoleAdmin)
	require.NoError(t, err)

	// with a second admin the first may step down
	_, err = f.uc.UpdateMemberRole(ctx, "alice", p.ID, "alice", domain.RoleMember)
	require.NoError(t, err)
	assert.ErrorIs(t, f.uc.RemoveMember(ctx, "bob", p.ID, "bob"), domain.ErrLastAdmin)

	require.NoError(t, f.uc.RemoveMember(ctx, "bob", p.ID, "alice"))
	_, err = f.members.Get(ctx, p.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestUpdateMemberRole_Validation(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	p, err := f.uc.Create(ctx, "alice", usecase.CreateProjectInput{Name: "Apollo"})
	require.NoError(t, err)

	_, err = f.uc.UpdateMemberRole(ctx, "alice", p.ID, "alice", domain.Role("superuser"))
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = f.uc.UpdateMemberRole(ctx, "alice", p.ID, "nobody", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}
