package handler

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

type SubtaskHandler struct {
	uc     *usecase.SubtaskUsecase
	logger *slog.Logger
}

func NewSubtaskHandler(uc *usecase.SubtaskUsecase, logger *slog.Logger) *SubtaskHandler {
	return &SubtaskHandler{uc: uc, logger: logger.With("component", "subtask_handler")}
}

type createSubtaskRequest struct {
	TaskID string `json:"task_id" binding:"required,uuid"`
	Title  string `json:"title"   binding:"required,max=200"`
}

func (h *SubtaskHandler) Create(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.uc.Create(c.Request.Context(), id.UserID, req.TaskID, req.Title)
	if err != nil {
		respondError(c, h.logger, "create subtask", err)
		return
	}
	c.JSON(http.StatusCreated, toSubtaskResponse(s))
}

func (h *SubtaskHandler) ListByTask(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	subtasks, err := h.uc.ListByTask(c.Request.Context(), id.UserID, taskID)
	if err != nil {
		respondError(c, h.logger, "list subtasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtasks": mapSlice(subtasks, toSubtaskResponse)})
}

// PATCH /subtasks/:subtaskId/toggle
func (h *SubtaskHandler) Toggle(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	subtaskID, ok := pathID(c, "subtaskId")
	if !ok {
		return
	}
	s, err := h.uc.Toggle(c.Request.Context(), id.UserID, subtaskID)
	if err != nil {
		respondError(c, h.logger, "toggle subtask", err)
		return
	}
	c.JSON(http.StatusOK, toSubtaskResponse(s))
}

func (h *SubtaskHandler) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	subtaskID, ok := pathID(c, "subtaskId")
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id.UserID, subtaskID); err != nil {
		respondError(c, h.logger, "delete subtask", err)
		return
	}
	c.Status(http.StatusNoContent)
}
