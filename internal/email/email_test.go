package email_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ErlanBelekov/task-tracker/internal/email"
)

func TestNewSender_SelectsTransport(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		transport string
		want      any
	}{
		{"log", &email.LogSender{}},
		{"resend", &email.ResendSender{}},
		{"smtp", &email.SMTPSender{}},
	}
	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			s, err := email.NewSender(email.Config{Transport: tt.transport, From: "noreply@example.com", SMTPPort: 587}, logger)
			if err != nil {
				t.Fatalf("NewSender: %v", err)
			}
			switch tt.want.(type) {
			case *email.LogSender:
				if _, ok := s.(*email.LogSender); !ok {
					t.Errorf("got %T, want *email.LogSender", s)
				}
			case *email.ResendSender:
				if _, ok := s.(*email.ResendSender); !ok {
					t.Errorf("got %T, want *email.ResendSender", s)
				}
			case *email.SMTPSender:
				if _, ok := s.(*email.SMTPSender); !ok {
					t.Errorf("got %T, want *email.SMTPSender", s)
				}
			}
		})
	}

	if _, err := email.NewSender(email.Config{Transport: "pigeon"}, logger); err == nil {
		t.Error("unknown transport: want error")
	}
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	s := email.NewSMTPSender("localhost", 2525, "", "", "noreply@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, "ada@example.com", "hi", "<p>hi</p>"); err == nil {
		t.Error("want error for canceled context")
	}
}
