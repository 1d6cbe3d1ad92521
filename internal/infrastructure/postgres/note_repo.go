package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const noteColumns = `id, project_id, task_id, content, created_by, created_at, updated_at`

type NoteRepository struct {
	pool *pgxpool.Pool
}

func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{pool: pool}
}

func (r *NoteRepository) Create(ctx context.Context, n *domain.Note) (*domain.Note, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notes (project_id, task_id, content, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+noteColumns,
		n.ProjectID, n.TaskID, n.Content, n.CreatedBy)

	created, err := scanNote(row)
	if err != nil {
		if _, ok := constraintViolation(err, codeFKViolation); ok {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return created, nil
}

func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id)
	return scanNote(row)
}

func (r *NoteRepository) ListByTask(ctx context.Context, taskID string) ([]*domain.Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []*domain.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func (r *NoteRepository) UpdateContent(ctx context.Context, id, content string) (*domain.Note, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notes SET content = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+noteColumns, id, content)
	return scanNote(row)
}

func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var n domain.Note
	err := row.Scan(&n.ID, &n.ProjectID, &n.TaskID, &n.Content, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	return &n, nil
}
