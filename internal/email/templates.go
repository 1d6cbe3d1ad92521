package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is a rendered email ready for a Sender.
type Message struct {
	Subject string
	HTML    string
}

// Templates renders the transactional emails. Each kind is parsed once
// against the shared layout.
type Templates struct {
	verification  *template.Template
	passwordReset *template.Template
	taskAssigned  *template.Template
	taskReminder  *template.Template
}

func NewTemplates() (*Templates, error) {
	parse := func(name string) (*template.Template, error) {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		return t, nil
	}

	var (
		t   Templates
		err error
	)
	if t.verification, err = parse("verification.html"); err != nil {
		return nil, err
	}
	if t.passwordReset, err = parse("password_reset.html"); err != nil {
		return nil, err
	}
	if t.taskAssigned, err = parse("task_assigned.html"); err != nil {
		return nil, err
	}
	if t.taskReminder, err = parse("task_reminder.html"); err != nil {
		return nil, err
	}
	return &t, nil
}

// MustTemplates is NewTemplates for wiring code and tests; the templates are
// embedded, so a parse error is a build defect.
func MustTemplates() *Templates {
	t, err := NewTemplates()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Templates) Verification(username, link string, expiresIn time.Duration) (Message, error) {
	return render(t.verification, "Please verify your email", map[string]any{
		"Username":  username,
		"Link":      link,
		"ExpiresIn": humanDuration(expiresIn),
	})
}

func (t *Templates) PasswordReset(username, link string, expiresIn time.Duration) (Message, error) {
	return render(t.passwordReset, "Reset your password", map[string]any{
		"Username":  username,
		"Link":      link,
		"ExpiresIn": humanDuration(expiresIn),
	})
}

func (t *Templates) TaskAssigned(username, assignedBy, taskTitle, link string, due time.Time) (Message, error) {
	return render(t.taskAssigned, "New task assigned: "+taskTitle, map[string]any{
		"Username":   username,
		"AssignedBy": assignedBy,
		"TaskTitle":  taskTitle,
		"DueDate":    due.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		"Link":       link,
	})
}

// TaskReminder wraps an already formatted reminder line, e.g.
// `The task "Ship" is due in 3 hours.`
func (t *Templates) TaskReminder(username, taskTitle, message, link string) (Message, error) {
	return render(t.taskReminder, "Task Reminder: "+taskTitle, map[string]any{
		"Username": username,
		"Message":  message,
		"Link":     link,
	})
}

func render(t *template.Template, subject string, data map[string]any) (Message, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return Message{}, fmt.Errorf("render %q: %w", subject, err)
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
