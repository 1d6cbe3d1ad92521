package handler

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	uc     *usecase.NoteUsecase
	logger *slog.Logger
}

func NewNoteHandler(uc *usecase.NoteUsecase, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{uc: uc, logger: logger.With("component", "note_handler")}
}

type createNoteRequest struct {
	TaskID  string `json:"task_id" binding:"required,uuid"`
	Content string `json:"content" binding:"required,max=10000"`
}

type updateNoteRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

func (h *NoteHandler) Create(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := h.uc.Create(c.Request.Context(), id.UserID, req.TaskID, req.Content)
	if err != nil {
		respondError(c, h.logger, "create note", err)
		return
	}
	c.JSON(http.StatusCreated, toNoteResponse(n))
}

func (h *NoteHandler) ListByTask(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	notes, err := h.uc.ListByTask(c.Request.Context(), id.UserID, taskID)
	if err != nil {
		respondError(c, h.logger, "list notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": mapSlice(notes, toNoteResponse)})
}

func (h *NoteHandler) Update(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	noteID, ok := pathID(c, "noteId")
	if !ok {
		return
	}
	var req updateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := h.uc.Update(c.Request.Context(), id.UserID, noteID, req.Content)
	if err != nil {
		respondError(c, h.logger, "update note", err)
		return
	}
	c.JSON(http.StatusOK, toNoteResponse(n))
}

func (h *NoteHandler) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	noteID, ok := pathID(c, "noteId")
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id.UserID, noteID); err != nil {
		respondError(c, h.logger, "delete note", err)
		return
	}
	c.Status(http.StatusNoContent)
}
