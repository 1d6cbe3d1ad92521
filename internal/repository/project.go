package repository

import (
	"context"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
)

type ProjectRepository interface {
	// CreateWithAdmin inserts the project and the creator's admin membership
	// in one transaction. A project never exists without an admin.
	CreateWithAdmin(ctx context.Context, p *domain.Project) (*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	ListByMember(ctx context.Context, userID string) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) (*domain.Project, error)
	// Delete removes the project together with its memberships, tasks and their
	// children. It returns the storage keys of the attachments that went with it.
	Delete(ctx context.Context, id string) ([]string, error)
}

type MembershipRepository interface {
	// Get returns ErrMemberNotFound when the user has no membership.
	Get(ctx context.Context, projectID, userID string) (*domain.Membership, error)
	Add(ctx context.Context, m *domain.Membership) (*domain.Membership, error)
	List(ctx context.Context, projectID string) ([]*domain.MemberView, error)

	// UpdateRole and Remove refuse, with ErrLastAdmin, to leave a project without admins.
	UpdateRole(ctx context.Context, projectID, userID string, role domain.Role) (*domain.Membership, error)
	Remove(ctx context.Context, projectID, userID string) error
}
