package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
)

type SubtaskUsecase struct {
	subtasks repository.SubtaskRepository
	tasks    repository.TaskRepository
	authz    *Authorizer
}

func NewSubtaskUsecase(subtasks repository.SubtaskRepository, tasks repository.TaskRepository, authz *Authorizer) *SubtaskUsecase {
	return &SubtaskUsecase{subtasks: subtasks, tasks: tasks, authz: authz}
}

func (u *SubtaskUsecase) Create(ctx context.Context, userID, taskID, title string) (*domain.Subtask, error) {
	task, err := u.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}
	s, err := u.subtasks.Create(ctx, &domain.Subtask{TaskID: task.ID, Title: strings.TrimSpace(title)})
	if err != nil {
		return nil, fmt.Errorf("create subtask: %w", err)
	}
	return s, nil
}

func (u *SubtaskUsecase) ListByTask(ctx context.Context, userID, taskID string) ([]*domain.Subtask, error) {
	task, err := u.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}
	subtasks, err := u.subtasks.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	return subtasks, nil
}

func (u *SubtaskUsecase) Toggle(ctx context.Context, userID, subtaskID string) (*domain.Subtask, error) {
	if err := u.requireAdminOrAssignee(ctx, userID, subtaskID); err != nil {
		return nil, err
	}
	s, err := u.subtasks.Toggle(ctx, subtaskID)
	if err != nil {
		return nil, fmt.Errorf("toggle subtask: %w", err)
	}
	return s, nil
}

func (u *SubtaskUsecase) Delete(ctx context.Context, userID, subtaskID string) error {
	if err := u.requireAdminOrAssignee(ctx, userID, subtaskID); err != nil {
		return err
	}
	if err := u.subtasks.Delete(ctx, subtaskID); err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return nil
}

// requireAdminOrAssignee checks against the parent task's project and assignee.
func (u *SubtaskUsecase) requireAdminOrAssignee(ctx context.Context, userID, subtaskID string) error {
	s, err := u.subtasks.GetByID(ctx, subtaskID)
	if err != nil {
		return fmt.Errorf("get subtask: %w", err)
	}
	task, err := u.tasks.GetByID(ctx, s.TaskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	return u.authz.RequireAdminOrAssigneeOf(ctx, userID, task.ProjectID, task.AssignedTo, domain.ErrSubtaskNotFound)
}
