package repository

import (
	"context"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
)

type NoteRepository interface {
	Create(ctx context.Context, n *domain.Note) (*domain.Note, error)
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	ListByTask(ctx context.Context, taskID string) ([]*domain.Note, error)
	UpdateContent(ctx context.Context, id, content string) (*domain.Note, error)
	Delete(ctx context.Context, id string) error
}

type SubtaskRepository interface {
	Create(ctx context.Context, s *domain.Subtask) (*domain.Subtask, error)
	GetByID(ctx context.Context, id string) (*domain.Subtask, error)
	ListByTask(ctx context.Context, taskID string) ([]*domain.Subtask, error)
	// Toggle flips is_completed and returns the updated subtask.
	Toggle(ctx context.Context, id string) (*domain.Subtask, error)
	Delete(ctx context.Context, id string) error
}
