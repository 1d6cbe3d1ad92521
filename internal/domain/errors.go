package domain

import "errors"

// Credentials and tokens.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenNotFound      = errors.New("token not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrEmailTaken         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already in use")
)

// Projects and membership.
var (
	ErrForbidden        = errors.New("forbidden")
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectNameTaken = errors.New("project name already taken")
	ErrMemberNotFound   = errors.New("member not found")
	ErrAlreadyMember    = errors.New("user is already a member of this project")
	ErrLastAdmin        = errors.New("project must keep at least one admin")
	ErrInvalidRole      = errors.New("invalid role")
)

// Tasks and their children.
var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrInvalidStatus       = errors.New("invalid task status")
	ErrInvalidAssignee     = errors.New("assignee is not a member of this project")
	ErrSubtaskNotFound     = errors.New("subtask not found")
	ErrNoteNotFound        = errors.New("note not found")
	ErrAttachmentNotFound  = errors.New("attachment not found")
	ErrUnsupportedFileType = errors.New("only .jpg, .png, or .pdf files are allowed")
	ErrFileTooLarge        = errors.New("file is too large")
	ErrTooManyFiles        = errors.New("too many files")
)

// IsSingleUseTokenError reports whether err means a verification or reset token
// could not be consumed. Callers must not tell the two cases apart.
func IsSingleUseTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrTokenInvalid)
}
