package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
)

type NoteUsecase struct {
	notes repository.NoteRepository
	tasks repository.TaskRepository
	authz *Authorizer
}

func NewNoteUsecase(notes repository.NoteRepository, tasks repository.TaskRepository, authz *Authorizer) *NoteUsecase {
	return &NoteUsecase{notes: notes, tasks: tasks, authz: authz}
}

func (u *NoteUsecase) Create(ctx context.Context, userID, taskID, content string) (*domain.Note, error) {
	task, err := u.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}
	n, err := u.notes.Create(ctx, &domain.Note{
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		Content:   strings.TrimSpace(content),
		CreatedBy: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (u *NoteUsecase) ListByTask(ctx context.Context, userID, taskID string) ([]*domain.Note, error) {
	task, err := u.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}
	notes, err := u.notes.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (u *NoteUsecase) Update(ctx context.Context, userID, noteID, content string) (*domain.Note, error) {
	if err := u.requireAdminOrAssignee(ctx, userID, noteID); err != nil {
		return nil, err
	}
	n, err := u.notes.UpdateContent(ctx, noteID, strings.TrimSpace(content))
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

func (u *NoteUsecase) Delete(ctx context.Context, userID, noteID string) error {
	if err := u.requireAdminOrAssignee(ctx, userID, noteID); err != nil {
		return err
	}
	if err := u.notes.Delete(ctx, noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (u *NoteUsecase) requireAdminOrAssignee(ctx context.Context, userID, noteID string) error {
	n, err := u.notes.GetByID(ctx, noteID)
	if err != nil {
		return fmt.Errorf("get note: %w", err)
	}
	task, err := u.tasks.GetByID(ctx, n.TaskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	return u.authz.RequireAdminOrAssigneeOf(ctx, userID, task.ProjectID, task.AssignedTo, domain.ErrNoteNotFound)
}
