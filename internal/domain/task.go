package domain

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	AssignedTo  string
	AssignedBy  string
	Status      TaskStatus
	Tags        []string
	DueDate     time.Time

	// ReminderSent flips to true once per due-date cycle.
	ReminderSent bool

	Attachments []Attachment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Status      *TaskStatus
	Tags        []string
	DueDate     *time.Time
}

// Apply merges u into t. A changed due date or status re-arms the reminder
// so the task becomes eligible for a fresh reminder cycle; the return value
// reports whether that happened.
func (t *Task) Apply(u TaskUpdate) (rearmed bool) {
	if u.DueDate != nil && !u.DueDate.Equal(t.DueDate) {
		t.DueDate = *u.DueDate
		rearmed = true
	}
	if u.Status != nil && *u.Status != t.Status {
		t.Status = *u.Status
		rearmed = true
	}
	if rearmed {
		t.ReminderSent = false
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.AssignedTo != nil {
		t.AssignedTo = *u.AssignedTo
	}
	if u.Tags != nil {
		t.Tags = u.Tags
	}
	return rearmed
}

// DueReminder is a task eligible for a reminder, joined with the assignee's
// contact details.
type DueReminder struct {
	TaskID           string
	ProjectID        string
	Title            string
	DueDate          time.Time
	UpdatedAt        time.Time
	AssigneeID       string
	AssigneeEmail    string
	AssigneeUsername string
}

type Subtask struct {
	ID          string
	TaskID      string
	Title       string
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Note struct {
	ID        string
	ProjectID string
	TaskID    string
	Content   string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Attachment struct {
	ID           string
	TaskID       string
	Key          string
	URL          string
	MimeType     string
	Size         int64
	OriginalName string
	CreatedAt    time.Time
}
