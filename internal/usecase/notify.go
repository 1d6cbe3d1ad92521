package usecase

import (
	"context"

	"github.com/ErlanBelekov/task-tracker/internal/email"
	"github.com/ErlanBelekov/task-tracker/internal/metrics"
)

// deliver sends a rendered message and counts the outcome by kind.
func deliver(ctx context.Context, sender email.Sender, kind, to string, msg email.Message) error {
	err := sender.Send(ctx, to, msg.Subject, msg.HTML)
	metrics.EmailsTotal.WithLabelValues(kind, metrics.Outcome(err)).Inc()
	return err
}
