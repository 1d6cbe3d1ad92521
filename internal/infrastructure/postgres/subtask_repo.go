package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subtaskColumns = `id, task_id, title, is_completed, created_at, updated_at`

type SubtaskRepository struct {
	pool *pgxpool.Pool
}

func NewSubtaskRepository(pool *pgxpool.Pool) *SubtaskRepository {
	return &SubtaskRepository{pool: pool}
}

func (r *SubtaskRepository) Create(ctx context.Context, s *domain.Subtask) (*domain.Subtask, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO subtasks (task_id, title)
		VALUES ($1, $2)
		RETURNING `+subtaskColumns,
		s.TaskID, s.Title)

	created, err := scanSubtask(row)
	if err != nil {
		if _, ok := constraintViolation(err, codeFKViolation); ok {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return created, nil
}

func (r *SubtaskRepository) GetByID(ctx context.Context, id string) (*domain.Subtask, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = $1`, id)
	return scanSubtask(row)
}

func (r *SubtaskRepository) ListByTask(ctx context.Context, taskID string) ([]*domain.Subtask, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+subtaskColumns+`
		FROM subtasks
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	subtasks := []*domain.Subtask{}
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtasks: %w", err)
	}
	return subtasks, nil
}

// Toggle flips the flag in SQL so two concurrent toggles both take effect.
func (r *SubtaskRepository) Toggle(ctx context.Context, id string) (*domain.Subtask, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE subtasks SET is_completed = NOT is_completed, updated_at = NOW()
		WHERE id = $1
		RETURNING `+subtaskColumns, id)
	return scanSubtask(row)
}

func (r *SubtaskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubtaskNotFound
	}
	return nil
}

func scanSubtask(row rowScanner) (*domain.Subtask, error) {
	var s domain.Subtask
	err := row.Scan(&s.ID, &s.TaskID, &s.Title, &s.IsCompleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("scan subtask: %w", err)
	}
	return &s, nil
}
