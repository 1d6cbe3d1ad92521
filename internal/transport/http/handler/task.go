package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

type taskUsecaser interface {
	Create(ctx context.Context, actor domain.Identity, in usecase.CreateTaskInput) (*domain.Task, error)
	ListMine(ctx context.Context, userID string, f usecase.TaskFilter) (*usecase.TaskPage, error)
	ListByProject(ctx context.Context, userID, projectID string, f usecase.TaskFilter) (*usecase.TaskPage, error)
	Get(ctx context.Context, userID, taskID string) (*domain.Task, error)
	Update(ctx context.Context, actor domain.Identity, taskID string, upd domain.TaskUpdate) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type TaskHandler struct {
	uc     taskUsecaser
	logger *slog.Logger
}

func NewTaskHandler(uc taskUsecaser, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{uc: uc, logger: logger.With("component", "task_handler")}
}

type createTaskRequest struct {
	ProjectID   string    `json:"project_id"  binding:"required,uuid"`
	Title       string    `json:"title"       binding:"required,max=200"`
	Description string    `json:"description" binding:"max=5000"`
	AssignedTo  string    `json:"assigned_to" binding:"omitempty,uuid"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags"        binding:"max=20,dive,max=40"`
	DueDate     time.Time `json:"due_date"    binding:"required"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"       binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=5000"`
	AssignedTo  *string    `json:"assigned_to" binding:"omitempty,uuid"`
	Status      *string    `json:"status"`
	Tags        []string   `json:"tags"        binding:"omitempty,max=20,dive,max=40"`
	DueDate     *time.Time `json:"due_date"`
}

type taskPageResponse struct {
	Tasks []taskResponse `json:"tasks"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.uc.Create(c.Request.Context(), id, usecase.CreateTaskInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Status:      domain.TaskStatus(req.Status),
		Tags:        req.Tags,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, h.logger, "create task", err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// GET /tasks?status=&assigned_to=&tag=&search=&page=&limit=
// Tasks assigned to or by the caller, across projects.
func (h *TaskHandler) ListMine(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	page, err := h.uc.ListMine(c.Request.Context(), id.UserID, taskFilter(c))
	if err != nil {
		respondError(c, h.logger, "list tasks", err)
		return
	}
	c.JSON(http.StatusOK, toTaskPageResponse(page))
}

// GET /projects/:projectId/tasks
func (h *TaskHandler) ListByProject(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}
	page, err := h.uc.ListByProject(c.Request.Context(), id.UserID, projectID, taskFilter(c))
	if err != nil {
		respondError(c, h.logger, "list project tasks", err)
		return
	}
	c.JSON(http.StatusOK, toTaskPageResponse(page))
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	task, err := h.uc.Get(c.Request.Context(), id.UserID, taskID)
	if err != nil {
		respondError(c, h.logger, "get task", err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	upd := domain.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		st := domain.TaskStatus(*req.Status)
		upd.Status = &st
	}

	task, err := h.uc.Update(c.Request.Context(), id, taskID, upd)
	if err != nil {
		respondError(c, h.logger, "update task", err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id.UserID, taskID); err != nil {
		respondError(c, h.logger, "delete task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func taskFilter(c *gin.Context) usecase.TaskFilter {
	return usecase.TaskFilter{
		Status:     domain.TaskStatus(c.Query("status")),
		AssignedTo: c.Query("assigned_to"),
		Tag:        c.Query("tag"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page"),
		Limit:      queryInt(c, "limit"),
	}
}

func toTaskPageResponse(p *usecase.TaskPage) taskPageResponse {
	return taskPageResponse{
		Tasks: mapSlice(p.Tasks, toTaskResponse),
		Total: p.Total,
		Page:  p.Page,
		Limit: p.Limit,
	}
}
