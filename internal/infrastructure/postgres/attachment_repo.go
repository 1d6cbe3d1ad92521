package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const attachmentColumns = `id, task_id, object_key, url, mime_type, size_bytes, original_name, created_at`

type AttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

func (r *AttachmentRepository) Add(ctx context.Context, a *domain.Attachment) (*domain.Attachment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO task_attachments (task_id, object_key, url, mime_type, size_bytes, original_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+attachmentColumns,
		a.TaskID, a.Key, a.URL, a.MimeType, a.Size, a.OriginalName)

	created, err := scanAttachment(row)
	if err != nil {
		if _, ok := constraintViolation(err, codeFKViolation); ok {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return created, nil
}

func (r *AttachmentRepository) ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attachmentColumns+`
		FROM task_attachments
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	attachments := []domain.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return attachments, nil
}

func (r *AttachmentRepository) Get(ctx context.Context, taskID, id string) (*domain.Attachment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+attachmentColumns+` FROM task_attachments WHERE id = $1 AND task_id = $2`,
		id, taskID)
	return scanAttachment(row)
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM task_attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}

func scanAttachment(row rowScanner) (*domain.Attachment, error) {
	var a domain.Attachment
	err := row.Scan(&a.ID, &a.TaskID, &a.Key, &a.URL, &a.MimeType, &a.Size, &a.OriginalName, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("scan attachment: %w", err)
	}
	return &a, nil
}
