package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
)

type ListTasksInput struct {
	// Exactly one of UserID (tasks assigned to or by the user) or ProjectID is set.
	UserID    string
	ProjectID string

	Status     domain.TaskStatus // empty = all statuses
	AssignedTo string
	Tag        string
	Search     string // case-insensitive title substring
	Offset     int
	Limit      int
}

type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) (*domain.Task, error)
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// List returns one page ordered by created_at DESC plus the total match count.
	List(ctx context.Context, input ListTasksInput) ([]*domain.Task, int, error)
	// Save writes the editable fields of t. reminder_sent is cleared when
	// resetReminder is set and otherwise left as stored, so a sweep that marked
	// the task after it was read is not undone.
	Save(ctx context.Context, t *domain.Task, resetReminder bool) (*domain.Task, error)
	// Delete removes the task and its children, returning the storage keys of
	// its attachments.
	Delete(ctx context.Context, id string) ([]string, error)

	// ListDueForReminder returns tasks that are not done, have no reminder sent
	// and are due at or before cutoff. Tasks never attempted come first, then
	// those attempted longest ago.
	ListDueForReminder(ctx context.Context, cutoff time.Time, limit int) ([]*domain.DueReminder, error)
	// MarkReminderSent sets reminder_sent only if the task was not modified since
	// updatedAt. Reports whether the row was updated.
	MarkReminderSent(ctx context.Context, taskID string, updatedAt time.Time) (bool, error)
	// MarkReminderAttempted records a failed or skipped reminder without
	// touching updated_at.
	MarkReminderAttempted(ctx context.Context, taskID string) error
}

type AttachmentRepository interface {
	Add(ctx context.Context, a *domain.Attachment) (*domain.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error)
	Get(ctx context.Context, taskID, id string) (*domain.Attachment, error)
	Delete(ctx context.Context, id string) error
}
