package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const projectColumns = `p.id, p.name, p.description, p.created_by, p.created_at, p.updated_at`

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// CreateWithAdmin inserts the project and the creator's admin membership together.
func (r *ProjectRepository) CreateWithAdmin(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	var created *domain.Project
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO projects AS p (name, description, created_by)
			VALUES ($1, $2, $3)
			RETURNING `+projectColumns,
			p.Name, p.Description, p.CreatedBy)

		var err error
		created, err = scanProject(row)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
			created.ID, created.CreatedBy, domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("insert admin membership: %w", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return nil, domain.ErrProjectNameTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id)
	return scanProject(row)
}

func (r *ProjectRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.created_at DESC, p.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) Update(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE projects AS p
		SET    name = $2, description = $3, updated_at = NOW()
		WHERE  p.id = $1
		RETURNING `+projectColumns,
		p.ID, p.Name, p.Description)

	updated, err := scanProject(row)
	if err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return nil, domain.ErrProjectNameTaken
		}
		return nil, err
	}
	return updated, nil
}

// Delete collects attachment keys before the cascade removes their rows.
func (r *ProjectRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var keys []string
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT a.object_key
			FROM task_attachments a
			JOIN tasks t ON t.id = a.task_id
			WHERE t.project_id = $1`, id)
		if err != nil {
			return fmt.Errorf("list project attachments: %w", err)
		}
		if keys, err = collectKeys(rows); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProjectNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}
