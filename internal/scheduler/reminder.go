package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/email"
	"github.com/ErlanBelekov/task-tracker/internal/metrics"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
	"github.com/robfig/cron/v3"
)

type ReminderConfig struct {
	// Spec is a standard five-field cron expression, evaluated in UTC.
	Spec       string
	Window     time.Duration
	BatchSize  int
	RunOnStart bool
	// ClientURL is where reminder links point.
	ClientURL string
}

// SweepResult counts what one sweep did. Eligible = Sent + Failed + Skipped
// unless the sweep was cut short by cancellation.
type SweepResult struct {
	Eligible int
	Sent     int
	Failed   int
	Skipped  int
}

type outcome string

const (
	outcomeSent    outcome = "sent"
	outcomeFailed  outcome = "failed"
	outcomeSkipped outcome = "skipped"
	// sent, but the task changed mid-sweep so the flag was left alone
	outcomeStale outcome = "stale"
)

// Reminder emails assignees about tasks that are due soon, at most once per
// due-date cycle. The reminder_sent flag is the only state it keeps.
type Reminder struct {
	tasks     repository.TaskRepository
	mailer    email.Sender
	templates *email.Templates
	cfg       ReminderConfig
	now       func() time.Time
	logger    *slog.Logger

	running sync.Mutex
}

func NewReminder(
	tasks repository.TaskRepository,
	mailer email.Sender,
	templates *email.Templates,
	cfg ReminderConfig,
	logger *slog.Logger,
) *Reminder {
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Reminder{
		tasks:     tasks,
		mailer:    mailer,
		templates: templates,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With("component", "reminder"),
	}
}

func (r *Reminder) WithClock(now func() time.Time) *Reminder {
	r.now = now
	return r
}

// Start runs sweeps on the cron schedule until ctx is cancelled, then waits
// for an in-flight sweep to return.
func (r *Reminder) Start(ctx context.Context) error {
	cl := cronLogger{logger: r.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(r.cfg.Spec, func() { r.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule reminder sweep %q: %w", r.cfg.Spec, err)
	}

	if r.cfg.RunOnStart {
		r.Sweep(ctx)
	}

	c.Start()
	r.logger.Info("reminder scheduler started", "spec", r.cfg.Spec, "window", r.cfg.Window, "batch_size", r.cfg.BatchSize)

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("reminder scheduler shut down")
	return nil
}

// Sweep sends one reminder per eligible task. Overlapping calls return
// immediately with an empty result.
func (r *Reminder) Sweep(ctx context.Context) SweepResult {
	if !r.running.TryLock() {
		metrics.ReminderSweepsTotal.WithLabelValues("skipped_overlap").Inc()
		r.logger.WarnContext(ctx, "reminder sweep already running, skipping")
		return SweepResult{}
	}
	defer r.running.Unlock()

	start := time.Now()
	now := r.now()

	due, err := r.tasks.ListDueForReminder(ctx, now.Add(r.cfg.Window), r.cfg.BatchSize)
	if err != nil {
		metrics.ReminderSweepsTotal.WithLabelValues("failed").Inc()
		r.logger.ErrorContext(ctx, "list tasks due for reminder", "error", err)
		return SweepResult{}
	}

	res := SweepResult{Eligible: len(due)}
	for _, t := range due {
		if ctx.Err() != nil {
			break
		}
		o := r.remind(ctx, t, now)
		metrics.RemindersTotal.WithLabelValues(string(o)).Inc()
		switch o {
		case outcomeSent, outcomeStale:
			res.Sent++
		case outcomeFailed:
			res.Failed++
		case outcomeSkipped:
			res.Skipped++
		}
		if o == outcomeFailed || o == outcomeSkipped {
			if err := r.tasks.MarkReminderAttempted(ctx, t.TaskID); err != nil {
				r.logger.ErrorContext(ctx, "mark reminder attempted", "task_id", t.TaskID, "error", err)
			}
		}
	}

	elapsed := time.Since(start)
	metrics.ReminderSweepDuration.Observe(elapsed.Seconds())
	metrics.ReminderSweepsTotal.WithLabelValues("completed").Inc()
	metrics.ReminderLastSweep.SetToCurrentTime()

	if res.Eligible > 0 {
		r.logger.InfoContext(ctx, "reminder sweep done",
			"eligible", res.Eligible, "sent", res.Sent, "failed", res.Failed, "skipped", res.Skipped,
			"duration", elapsed,
		)
	}
	return res
}

func (r *Reminder) remind(ctx context.Context, t *domain.DueReminder, now time.Time) outcome {
	log := r.logger.With("task_id", t.TaskID, "assignee_id", t.AssigneeID)
	if t.AssigneeEmail == "" {
		log.WarnContext(ctx, "task has no reachable assignee, skipping reminder")
		return outcomeSkipped
	}

	msg, err := r.templates.TaskReminder(t.AssigneeUsername, t.Title,
		ReminderMessage(t.Title, t.DueDate, now), r.cfg.ClientURL+"/tasks/"+t.TaskID)
	if err == nil {
		err = r.mailer.Send(ctx, t.AssigneeEmail, msg.Subject, msg.HTML)
		metrics.EmailsTotal.WithLabelValues("task_reminder", metrics.Outcome(err)).Inc()
	}
	if err != nil {
		log.ErrorContext(ctx, "send reminder", "error", err)
		return outcomeFailed
	}

	marked, err := r.tasks.MarkReminderSent(ctx, t.TaskID, t.UpdatedAt)
	if err != nil {
		// The email went out; the task stays eligible and may be reminded again.
		log.ErrorContext(ctx, "mark reminder sent", "error", err)
		return outcomeFailed
	}
	if !marked {
		log.InfoContext(ctx, "task changed during sweep, reminder flag left unset")
		return outcomeStale
	}
	return outcomeSent
}

// ReminderMessage phrases how long is left until due, rounding hours up.
func ReminderMessage(title string, due, now time.Time) string {
	hours := int(math.Ceil(due.Sub(now).Hours()))
	switch {
	case hours <= 0:
		return fmt.Sprintf(`The task "%s" is overdue!`, title)
	case hours == 1:
		return fmt.Sprintf(`The task "%s" is due in 1 hour.`, title)
	default:
		return fmt.Sprintf(`The task "%s" is due in %d hours.`, title, hours)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
