package handler

import (
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
)

type userResponse struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Fullname        string    `json:"fullname"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		Fullname:        u.Fullname,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProjectResponse(p *domain.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type memberResponse struct {
	UserID    string      `json:"user_id"`
	Username  string      `json:"username,omitempty"`
	Email     string      `json:"email,omitempty"`
	Fullname  string      `json:"fullname,omitempty"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func toMemberResponse(m *domain.MemberView) memberResponse {
	return memberResponse{
		UserID:    m.UserID,
		Username:  m.Username,
		Email:     m.Email,
		Fullname:  m.Fullname,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}

type attachmentResponse struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	OriginalName string    `json:"original_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAttachmentResponses(in []domain.Attachment) []attachmentResponse {
	out := make([]attachmentResponse, len(in))
	for i, a := range in {
		out[i] = attachmentResponse{
			ID:           a.ID,
			URL:          a.URL,
			MimeType:     a.MimeType,
			Size:         a.Size,
			OriginalName: a.OriginalName,
			CreatedAt:    a.CreatedAt,
		}
	}
	return out
}

type taskResponse struct {
	ID           string               `json:"id"`
	ProjectID    string               `json:"project_id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	AssignedTo   string               `json:"assigned_to"`
	AssignedBy   string               `json:"assigned_by"`
	Status       domain.TaskStatus    `json:"status"`
	Tags         []string             `json:"tags"`
	DueDate      time.Time            `json:"due_date"`
	ReminderSent bool                 `json:"reminder_sent"`
	Attachments  []attachmentResponse `json:"attachments,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func toTaskResponse(t *domain.Task) taskResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskResponse{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		Title:        t.Title,
		Description:  t.Description,
		AssignedTo:   t.AssignedTo,
		AssignedBy:   t.AssignedBy,
		Status:       t.Status,
		Tags:         tags,
		DueDate:      t.DueDate,
		ReminderSent: t.ReminderSent,
		Attachments:  toAttachmentResponses(t.Attachments),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type subtaskResponse struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSubtaskResponse(s *domain.Subtask) subtaskResponse {
	return subtaskResponse{
		ID:          s.ID,
		TaskID:      s.TaskID,
		Title:       s.Title,
		IsCompleted: s.IsCompleted,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type noteResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	TaskID    string    `json:"task_id"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toNoteResponse(n *domain.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		ProjectID: n.ProjectID,
		TaskID:    n.TaskID,
		Content:   n.Content,
		CreatedBy: n.CreatedBy,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// mapSlice converts a slice of domain pointers with fn.
func mapSlice[T any, R any](in []*T, fn func(*T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
