package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
	"github.com/ErlanBelekov/task-tracker/internal/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MaxFilesPerUpload     = 5
	DefaultMaxUploadBytes = 2 << 20
)

// allowedTypes is matched against sniffed content, not the client's
// Content-Type header or the file extension.
var allowedTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// UploadFile is one file from a multipart request.
type UploadFile struct {
	Filename string
	Content  io.Reader
}

type AttachmentUsecase struct {
	tasks       repository.TaskRepository
	attachments repository.AttachmentRepository
	authz       *Authorizer
	store       storage.Store
	maxBytes    int64
	logger      *slog.Logger
}

func NewAttachmentUsecase(
	tasks repository.TaskRepository,
	attachments repository.AttachmentRepository,
	authz *Authorizer,
	store storage.Store,
	maxBytes int64,
	logger *slog.Logger,
) *AttachmentUsecase {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &AttachmentUsecase{
		tasks:       tasks,
		attachments: attachments,
		authz:       authz,
		store:       store,
		maxBytes:    maxBytes,
		logger:      logger.With("component", "attachments"),
	}
}

type checkedFile struct {
	name string
	data []byte
	mime *mimetype.MIME
}

// Upload validates every file before storing any of them, so a rejected
// batch leaves nothing behind.
func (u *AttachmentUsecase) Upload(ctx context.Context, userID, taskID string, files []UploadFile) ([]domain.Attachment, error) {
	if len(files) > MaxFilesPerUpload {
		return nil, fmt.Errorf("%w: at most %d per upload", domain.ErrTooManyFiles, MaxFilesPerUpload)
	}
	task, err := u.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}

	checked := make([]checkedFile, 0, len(files))
	for _, f := range files {
		c, err := u.check(f)
		if err != nil {
			return nil, err
		}
		checked = append(checked, c)
	}

	saved := make([]domain.Attachment, 0, len(checked))
	for _, c := range checked {
		a, err := u.putObject(ctx, task.ID, c)
		if err != nil {
			return nil, err
		}
		saved = append(saved, *a)
	}
	return saved, nil
}

func (u *AttachmentUsecase) check(f UploadFile) (checkedFile, error) {
	data, err := io.ReadAll(io.LimitReader(f.Content, u.maxBytes+1))
	if err != nil {
		return checkedFile{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return checkedFile{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrFileTooLarge, f.Filename, u.maxBytes)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return checkedFile{}, domain.ErrUnsupportedFileType
	}
	return checkedFile{name: cleanFilename(f.Filename), data: data, mime: mt}, nil
}

func (u *AttachmentUsecase) putObject(ctx context.Context, taskID string, c checkedFile) (*domain.Attachment, error) {
	key := "tasks/" + taskID + "/" + uuid.NewString() + c.mime.Extension()
	url, err := u.store.Put(ctx, key, c.mime.String(), bytes.NewReader(c.data), int64(len(c.data)))
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	a, err := u.attachments.Add(ctx, &domain.Attachment{
		TaskID:       taskID,
		Key:          key,
		URL:          url,
		MimeType:     c.mime.String(),
		Size:         int64(len(c.data)),
		OriginalName: c.name,
	})
	if err != nil {
		removeObjects(ctx, u.store, u.logger, []string{key})
		return nil, fmt.Errorf("save attachment: %w", err)
	}
	return a, nil
}

func (u *AttachmentUsecase) Delete(ctx context.Context, userID, taskID, attachmentID string) error {
	task, err := u.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if err := u.authz.RequireMember(ctx, userID, task.ProjectID); err != nil {
		return err
	}
	a, err := u.attachments.Get(ctx, task.ID, attachmentID)
	if err != nil {
		return fmt.Errorf("get attachment: %w", err)
	}
	if err := u.attachments.Delete(ctx, a.ID); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	removeObjects(ctx, u.store, u.logger, []string{a.Key})
	return nil
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
