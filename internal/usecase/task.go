package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/email"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
	"github.com/ErlanBelekov/task-tracker/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type TaskUsecase struct {
	tasks       repository.TaskRepository
	attachments repository.AttachmentRepository
	members     repository.MembershipRepository
	users       repository.UserRepository
	authz       *Authorizer
	mailer      email.Sender
	templates   *email.Templates
	store       storage.Store
	clientURL   string
	logger      *slog.Logger
}

func NewTaskUsecase(
	tasks repository.TaskRepository,
	attachments repository.AttachmentRepository,
	members repository.MembershipRepository,
	users repository.UserRepository,
	authz *Authorizer,
	mailer email.Sender,
	templates *email.Templates,
	store storage.Store,
	clientURL string,
	logger *slog.Logger,
) *TaskUsecase {
	return &TaskUsecase{
		tasks:       tasks,
		attachments: attachments,
		members:     members,
		users:       users,
		authz:       authz,
		mailer:      mailer,
		templates:   templates,
		store:       store,
		clientURL:   strings.TrimRight(clientURL, "/"),
		logger:      logger.With("component", "tasks"),
	}
}

type CreateTaskInput struct {
	ProjectID   string
	Title       string
	Description string
	AssignedTo  string // defaults to the creator
	Status      domain.TaskStatus
	Tags        []string
	DueDate     time.Time
}

func (u *TaskUsecase) Create(ctx context.Context, actor domain.Identity, in CreateTaskInput) (*domain.Task, error) {
	if in.Status == "" {
		in.Status = domain.TaskStatusTodo
	}
	if !in.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if err := u.authz.RequireMember(ctx, actor.UserID, in.ProjectID); err != nil {
		return nil, err
	}
	if in.AssignedTo == "" {
		in.AssignedTo = actor.UserID
	}
	if err := u.checkAssignee(ctx, in.ProjectID, in.AssignedTo); err != nil {
		return nil, err
	}

	created, err := u.tasks.Create(ctx, &domain.Task{
		ProjectID:   in.ProjectID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		AssignedTo:  in.AssignedTo,
		AssignedBy:  actor.UserID,
		Status:      in.Status,
		Tags:        normalizeTags(in.Tags),
		DueDate:     in.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	u.notifyAssignee(ctx, actor, created)
	return created, nil
}

// TaskFilter narrows a task listing. Page is 1-based.
type TaskFilter struct {
	Status     domain.TaskStatus
	AssignedTo string
	Tag        string
	Search     string
	Page       int
	Limit      int
}

type TaskPage struct {
	Tasks []*domain.Task
	Total int
	Page  int
	Limit int
}

// ListMine returns tasks assigned to or by the user, across projects.
func (u *TaskUsecase) ListMine(ctx context.Context, userID string, f TaskFilter) (*TaskPage, error) {
	return u.list(ctx, repository.ListTasksInput{UserID: userID}, f)
}

func (u *TaskUsecase) ListByProject(ctx context.Context, userID, projectID string, f TaskFilter) (*TaskPage, error) {
	if err := u.authz.RequireMember(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return u.list(ctx, repository.ListTasksInput{ProjectID: projectID}, f)
}

func (u *TaskUsecase) list(ctx context.Context, input repository.ListTasksInput, f TaskFilter) (*TaskPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}

	input.Status = f.Status
	input.AssignedTo = f.AssignedTo
	input.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	input.Search = strings.TrimSpace(f.Search)
	input.Limit = f.Limit
	input.Offset = (f.Page - 1) * f.Limit

	tasks, total, err := u.tasks.List(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return &TaskPage{Tasks: tasks, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Get returns the task with its attachments.
func (u *TaskUsecase) Get(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := u.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}
	if task.Attachments, err = u.attachments.ListByTask(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return task, nil
}

// Update applies a partial update. Changing the due date or status re-arms
// the reminder; reassignment notifies the new assignee.
func (u *TaskUsecase) Update(ctx context.Context, actor domain.Identity, taskID string, upd domain.TaskUpdate) (*domain.Task, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	task, err := u.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := u.authz.RequireMember(ctx, actor.UserID, task.ProjectID); err != nil {
		return nil, err
	}

	reassigned := upd.AssignedTo != nil && *upd.AssignedTo != task.AssignedTo
	if reassigned {
		if err := u.checkAssignee(ctx, task.ProjectID, *upd.AssignedTo); err != nil {
			return nil, err
		}
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		upd.Title = &title
	}
	if upd.Tags != nil {
		upd.Tags = normalizeTags(upd.Tags)
	}
	rearmed := task.Apply(upd)

	saved, err := u.tasks.Save(ctx, task, rearmed)
	if err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	if reassigned {
		u.notifyAssignee(ctx, actor, saved)
	}
	return saved, nil
}

func (u *TaskUsecase) Delete(ctx context.Context, userID, taskID string) error {
	task, err := u.load(ctx, taskID)
	if err != nil {
		return err
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return err
	}
	keys, err := u.tasks.Delete(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	removeObjects(ctx, u.store, u.logger, keys)
	return nil
}

func (u *TaskUsecase) load(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := u.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (u *TaskUsecase) checkAssignee(ctx context.Context, projectID, userID string) error {
	_, err := u.members.Get(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.ErrInvalidAssignee
		}
		return fmt.Errorf("check assignee: %w", err)
	}
	return nil
}

// notifyAssignee emails the assignee unless they assigned the task to
// themselves. Delivery failures never fail the request.
func (u *TaskUsecase) notifyAssignee(ctx context.Context, actor domain.Identity, task *domain.Task) {
	if task.AssignedTo == actor.UserID {
		return
	}
	assignee, err := u.users.FindByID(ctx, task.AssignedTo)
	if err != nil {
		u.logger.WarnContext(ctx, "load assignee for notification", "task_id", task.ID, "error", err)
		return
	}

	link := u.clientURL + "/tasks/" + task.ID
	msg, err := u.templates.TaskAssigned(assignee.Username, actor.Username, task.Title, link, task.DueDate)
	if err == nil {
		err = deliver(ctx, u.mailer, "task_assigned", assignee.Email, msg)
	}
	if err != nil {
		u.logger.ErrorContext(ctx, "send assignment email", "task_id", task.ID, "assignee_id", assignee.ID, "error", err)
	}
}

// normalizeTags lower-cases, trims and de-duplicates, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
