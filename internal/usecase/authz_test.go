package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizer_AdminOrAssigneeMatrix(t *testing.T) {
	members := newMemMembers()
	members.set("p1", "admin", domain.RoleAdmin)
	members.set("p1", "assignee", domain.RoleMember)
	members.set("p1", "bystander", domain.RoleMember)
	members.set("p1", "admin-assignee", domain.RoleAdmin)
	authz := usecase.NewAuthorizer(members)
	ctx := context.Background()

	cases := []struct {
		user       string
		assignedTo string
		want       bool
	}{
		{"admin", "assignee", true},
		{"assignee", "assignee", true},
		{"admin-assignee", "admin-assignee", true},
		{"bystander", "assignee", false},
		// assignee who has since left the project
		{"outsider", "outsider", true},
		{"outsider", "assignee", false},
	}
	for _, tc := range cases {
		t.Run(tc.user+"/"+tc.assignedTo, func(t *testing.T) {
			got, err := authz.IsAdminOrAssignee(ctx, tc.user, "p1", tc.assignedTo)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			err = authz.RequireAdminOrAssignee(ctx, tc.user, "p1", tc.assignedTo)
			if tc.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrForbidden)
			}
		})
	}
}

func TestAuthorizer_AssigneeSkipsMembershipLookup(t *testing.T) {
	members := newMemMembers()
	members.err = errors.New("connection reset")
	authz := usecase.NewAuthorizer(members)

	ok, err := authz.IsAdminOrAssignee(context.Background(), "assignee", "p1", "assignee")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = authz.IsAdminOrAssignee(context.Background(), "someone", "p1", "assignee")
	assert.Error(t, err)
}

func TestAuthorizer_MemberAndAdmin(t *testing.T) {
	members := newMemMembers()
	members.set("p1", "admin", domain.RoleAdmin)
	members.set("p1", "member", domain.RoleMember)
	authz := usecase.NewAuthorizer(members)
	ctx := context.Background()

	assert.NoError(t, authz.RequireMember(ctx, "admin", "p1"))
	assert.NoError(t, authz.RequireMember(ctx, "member", "p1"))
	assert.ErrorIs(t, authz.RequireMember(ctx, "member", "p2"), domain.ErrForbidden)
	assert.ErrorIs(t, authz.RequireMember(ctx, "stranger", "p1"), domain.ErrForbidden)

	assert.NoError(t, authz.RequireAdmin(ctx, "admin", "p1"))
	assert.ErrorIs(t, authz.RequireAdmin(ctx, "member", "p1"), domain.ErrForbidden)
	assert.ErrorIs(t, authz.RequireAdmin(ctx, "stranger", "p1"), domain.ErrForbidden)
}

func TestAuthorizer_StoreErrorIsNotForbidden(t *testing.T) {
	members := newMemMembers()
	members.err = errors.New("connection reset")
	authz := usecase.NewAuthorizer(members)

	err := authz.RequireMember(context.Background(), "u", "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrForbidden)
}
