package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
)

// Authorizer answers project-scoped permission questions from the membership
// table. A missing membership is a "no", never an error.
type Authorizer struct {
	members repository.MembershipRepository
}

func NewAuthorizer(members repository.MembershipRepository) *Authorizer {
	return &Authorizer{members: members}
}

// membership returns nil when the user is not in the project.
func (a *Authorizer) membership(ctx context.Context, userID, projectID string) (*domain.Membership, error) {
	m, err := a.members.Get(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (a *Authorizer) IsProjectMember(ctx context.Context, userID, projectID string) (bool, error) {
	m, err := a.membership(ctx, userID, projectID)
	return m != nil, err
}

func (a *Authorizer) IsProjectAdmin(ctx context.Context, userID, projectID string) (bool, error) {
	m, err := a.membership(ctx, userID, projectID)
	return m != nil && m.Role == domain.RoleAdmin, err
}

// IsAdminOrAssignee grants the task's assignee and project admins. The
// assignee keeps access to their task even after leaving the project.
func (a *Authorizer) IsAdminOrAssignee(ctx context.Context, userID, projectID, assignedTo string) (bool, error) {
	if userID != "" && userID == assignedTo {
		return true, nil
	}
	return a.IsProjectAdmin(ctx, userID, projectID)
}

func (a *Authorizer) RequireMember(ctx context.Context, userID, projectID string) error {
	ok, err := a.IsProjectMember(ctx, userID, projectID)
	return deny(ok, err, "you are not a member of this project")
}

func (a *Authorizer) RequireAdmin(ctx context.Context, userID, projectID string) error {
	ok, err := a.IsProjectAdmin(ctx, userID, projectID)
	return deny(ok, err, "only project admins can do this")
}

func (a *Authorizer) RequireAdminOrAssignee(ctx context.Context, userID, projectID, assignedTo string) error {
	ok, err := a.IsAdminOrAssignee(ctx, userID, projectID, assignedTo)
	return deny(ok, err, "only project admins or the task assignee can do this")
}

// RequireAdminOrAssigneeOf guards a row reached by its own ID. Callers with no
// standing in the project get notFound, so a foreign ID looks like an unknown one.
func (a *Authorizer) RequireAdminOrAssigneeOf(ctx context.Context, userID, projectID, assignedTo string, notFound error) error {
	ok, err := a.IsAdminOrAssignee(ctx, userID, projectID, assignedTo)
	if err != nil || ok {
		return err
	}
	member, err := a.IsProjectMember(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if !member {
		return notFound
	}
	return deny(false, nil, "only project admins or the task assignee can do this")
}

func deny(ok bool, err error, reason string) error {
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrForbidden, reason)
	}
	return nil
}
