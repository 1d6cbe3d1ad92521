package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
)

// multipartOverhead covers boundaries and part headers on top of the file bytes.
const multipartOverhead = 64 << 10

type AttachmentHandler struct {
	uc       *usecase.AttachmentUsecase
	maxBytes int64
	logger   *slog.Logger
}

func NewAttachmentHandler(uc *usecase.AttachmentUsecase, maxFileBytes int64, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		uc:       uc,
		maxBytes: int64(usecase.MaxFilesPerUpload)*maxFileBytes + multipartOverhead,
		logger:   logger.With("component", "attachment_handler"),
	}
}

// POST /tasks/:taskId/attachments (multipart, field "files")
func (h *AttachmentHandler) Upload(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected a multipart form with files"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	files, closeAll, err := openParts(headers)
	defer closeAll()
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "open uploaded file", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded files"})
		return
	}

	saved, err := h.uc.Upload(c.Request.Context(), id.UserID, taskID, files)
	if err != nil {
		respondError(c, h.logger, "upload attachments", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachments": toAttachmentResponses(saved)})
}

// DELETE /tasks/:taskId/attachments/:attachmentId
func (h *AttachmentHandler) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	attachmentID, ok := pathID(c, "attachmentId")
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id.UserID, taskID, attachmentID); err != nil {
		respondError(c, h.logger, "delete attachment", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func openParts(headers []*multipart.FileHeader) ([]usecase.UploadFile, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	files := make([]usecase.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		files = append(files, usecase.UploadFile{Filename: fh.Filename, Content: f})
	}
	return files, closeAll, nil
}
