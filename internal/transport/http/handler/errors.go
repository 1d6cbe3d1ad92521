package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer     = "Internal server error"
	errUnauthorized       = "Unauthorized"
	errInvalidCredentials = "Invalid email or password"
	errTokenInvalid       = "Token is invalid or expired"
	errEmailNotVerified   = "Email is not verified"
	errInvalidID          = "Not found"
)

// errorMapping is checked in order with errors.Is. An empty message means the
// error's own text is safe to show, usually because it carries a reason.
var errorMapping = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrUnauthorized, http.StatusUnauthorized, errUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, errInvalidCredentials},
	{domain.ErrTokenInvalid, http.StatusUnauthorized, errTokenInvalid},
	{domain.ErrTokenExpired, http.StatusBadRequest, errTokenInvalid},
	{domain.ErrTokenNotFound, http.StatusBadRequest, errTokenInvalid},

	{domain.ErrForbidden, http.StatusForbidden, ""},
	{domain.ErrEmailNotVerified, http.StatusForbidden, errEmailNotVerified},

	{domain.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{domain.ErrProjectNotFound, http.StatusNotFound, "Project not found"},
	{domain.ErrMemberNotFound, http.StatusNotFound, "Member not found"},
	{domain.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
	{domain.ErrSubtaskNotFound, http.StatusNotFound, "Subtask not found"},
	{domain.ErrNoteNotFound, http.StatusNotFound, "Note not found"},
	{domain.ErrAttachmentNotFound, http.StatusNotFound, "Attachment not found"},

	{domain.ErrEmailTaken, http.StatusConflict, "Email already in use"},
	{domain.ErrUsernameTaken, http.StatusConflict, "Username already in use"},
	{domain.ErrProjectNameTaken, http.StatusConflict, "Project name already taken"},
	{domain.ErrAlreadyMember, http.StatusConflict, "User is already a member of this project"},
	{domain.ErrLastAdmin, http.StatusConflict, "Project must keep at least one admin"},

	{domain.ErrWeakPassword, http.StatusUnprocessableEntity, ""},
	{domain.ErrInvalidRole, http.StatusUnprocessableEntity, "Role must be admin or member"},
	{domain.ErrInvalidStatus, http.StatusUnprocessableEntity, "Status must be todo, in_progress or done"},
	{domain.ErrInvalidAssignee, http.StatusUnprocessableEntity, "Assignee is not a member of this project"},
	{domain.ErrUnsupportedFileType, http.StatusUnprocessableEntity, "Only .jpg, .png, or .pdf files are allowed"},
	{domain.ErrFileTooLarge, http.StatusUnprocessableEntity, ""},
	{domain.ErrTooManyFiles, http.StatusUnprocessableEntity, ""},
}

// respondError writes the mapped status for known domain errors and a 500 for
// everything else, logging only the latter.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = capitalize(err.Error())
			}
			c.JSON(m.status, gin.H{"error": msg})
			return
		}
	}
	logger.ErrorContext(c.Request.Context(), op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
