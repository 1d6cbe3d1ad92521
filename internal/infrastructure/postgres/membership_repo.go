package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Get(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT project_id, user_id, role, created_at
		FROM project_members
		WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	return scanMembership(row)
}

func (r *MembershipRepository) Add(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING project_id, user_id, role, created_at`,
		m.ProjectID, m.UserID, m.Role)

	created, err := scanMembership(row)
	if err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return nil, domain.ErrAlreadyMember
		}
		if name, ok := constraintViolation(err, codeFKViolation); ok {
			if strings.Contains(name, "user_id") {
				return nil, domain.ErrUserNotFound
			}
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return created, nil
}

func (r *MembershipRepository) List(ctx context.Context, projectID string) ([]*domain.MemberView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.project_id, m.user_id, m.role, m.created_at,
		       u.username, u.email, u.fullname
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY m.created_at ASC, u.username ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []*domain.MemberView{}
	for rows.Next() {
		var v domain.MemberView
		if err := rows.Scan(
			&v.ProjectID, &v.UserID, &v.Role, &v.CreatedAt,
			&v.Username, &v.Email, &v.Fullname,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// UpdateRole and Remove lock the project row first, so concurrent changes to
// the same project's admins are serialized and the admin count read below
// stays true until commit.
func (r *MembershipRepository) UpdateRole(ctx context.Context, projectID, userID string, role domain.Role) (*domain.Membership, error) {
	var updated *domain.Membership
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, admins, err := lockMembership(ctx, tx, projectID, userID)
		if err != nil {
			return err
		}
		if current.Role == domain.RoleAdmin && role != domain.RoleAdmin && admins <= 1 {
			return domain.ErrLastAdmin
		}

		row := tx.QueryRow(ctx, `
			UPDATE project_members SET role = $3
			WHERE project_id = $1 AND user_id = $2
			RETURNING project_id, user_id, role, created_at`,
			projectID, userID, role)
		updated, err = scanMembership(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MembershipRepository) Remove(ctx context.Context, projectID, userID string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, admins, err := lockMembership(ctx, tx, projectID, userID)
		if err != nil {
			return err
		}
		if current.Role == domain.RoleAdmin && admins <= 1 {
			return domain.ErrLastAdmin
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
			projectID, userID); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		return nil
	})
}

// lockMembership locks the project, then returns the target membership and
// the project's current admin count.
func lockMembership(ctx context.Context, tx pgx.Tx, projectID, userID string) (*domain.Membership, int, error) {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, domain.ErrProjectNotFound
		}
		return nil, 0, fmt.Errorf("lock project: %w", err)
	}

	current, err := scanMembership(tx.QueryRow(ctx, `
		SELECT project_id, user_id, role, created_at
		FROM project_members
		WHERE project_id = $1 AND user_id = $2`, projectID, userID))
	if err != nil {
		return nil, 0, err
	}

	var admins int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM project_members WHERE project_id = $1 AND role = $2`,
		projectID, domain.RoleAdmin).Scan(&admins); err != nil {
		return nil, 0, fmt.Errorf("count admins: %w", err)
	}
	return current, admins, nil
}

func scanMembership(row rowScanner) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return &m, nil
}
