package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, project_id, title, description, assigned_to, assigned_by,
	status, tags, due_date, reminder_sent, created_at, updated_at`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	query := `
		INSERT INTO tasks (
			project_id, title, description, assigned_to, assigned_by,
			status, tags, due_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + taskColumns

	row := r.pool.QueryRow(ctx, query,
		t.ProjectID, t.Title, t.Description, t.AssignedTo, t.AssignedBy,
		t.Status, nonNilTags(t.Tags), t.DueDate,
	)
	created, err := scanTask(row)
	if err != nil {
		return nil, mapTaskWriteErr(err)
	}
	return created, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *TaskRepository) List(ctx context.Context, input repository.ListTasksInput) ([]*domain.Task, int, error) {
	var (
		args  []any
		where []string
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if input.UserID != "" {
		add("(assigned_to = $%[1]d OR assigned_by = $%[1]d)", input.UserID)
	}
	if input.ProjectID != "" {
		add("project_id = $%d", input.ProjectID)
	}
	if input.Status != "" {
		add("status = $%d", input.Status)
	}
	if input.AssignedTo != "" {
		add("assigned_to = $%d", input.AssignedTo)
	}
	if input.Tag != "" {
		add("$%d = ANY(tags)", input.Tag)
	}
	if input.Search != "" {
		add(`title ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(input.Search))
	}
	if len(where) == 0 {
		return nil, 0, errors.New("list tasks: user or project scope required")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	args = append(args, input.Limit, input.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		taskColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, total, nil
}

func (r *TaskRepository) Save(ctx context.Context, t *domain.Task, resetReminder bool) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET    title         = $2,
		       description   = $3,
		       assigned_to   = $4,
		       status        = $5,
		       tags          = $6,
		       due_date      = $7,
		       reminder_sent = CASE WHEN $8::boolean THEN FALSE ELSE reminder_sent END,
		       reminder_attempted_at = CASE WHEN $8::boolean THEN NULL ELSE reminder_attempted_at END,
		       updated_at    = NOW()
		WHERE id = $1
		RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, t.AssignedTo, t.Status,
		nonNilTags(t.Tags), t.DueDate, resetReminder,
	)
	saved, err := scanTask(row)
	if err != nil {
		return nil, mapTaskWriteErr(err)
	}
	return saved, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var keys []string
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT object_key FROM task_attachments WHERE task_id = $1`, id)
		if err != nil {
			return fmt.Errorf("list task attachments: %w", err)
		}
		if keys, err = collectKeys(rows); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *TaskRepository) ListDueForReminder(ctx context.Context, cutoff time.Time, limit int) ([]*domain.DueReminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.project_id, t.title, t.due_date, t.updated_at, t.assigned_to,
		       COALESCE(u.email, ''), COALESCE(u.username, '')
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_to
		WHERE t.reminder_sent = FALSE
		  AND t.status       <> 'done'
		  AND t.due_date     <= $1
		ORDER BY t.reminder_attempted_at ASC NULLS FIRST, t.due_date ASC, t.id ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var due []*domain.DueReminder
	for rows.Next() {
		var d domain.DueReminder
		if err := rows.Scan(
			&d.TaskID, &d.ProjectID, &d.Title, &d.DueDate, &d.UpdatedAt, &d.AssigneeID,
			&d.AssigneeEmail, &d.AssigneeUsername,
		); err != nil {
			return nil, fmt.Errorf("scan due task: %w", err)
		}
		due = append(due, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due tasks: %w", err)
	}
	return due, nil
}

// MarkReminderSent leaves updated_at alone; it is the optimistic-lock value
// the sweep read, and a task edited since then is left for the next sweep.
func (r *TaskRepository) MarkReminderSent(ctx context.Context, taskID string, updatedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET reminder_sent = TRUE
		WHERE id = $1
		  AND updated_at = $2
		  AND reminder_sent = FALSE
		  AND status <> 'done'`, taskID, updatedAt)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkReminderAttempted pushes a task that could not be reminded behind the
// ones never tried, so a full batch of undeliverable tasks cannot starve the rest.
func (r *TaskRepository) MarkReminderAttempted(ctx context.Context, taskID string) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE tasks SET reminder_attempted_at = NOW()
		WHERE id = $1 AND reminder_sent = FALSE`, taskID); err != nil {
		return fmt.Errorf("mark reminder attempted: %w", err)
	}
	return nil
}

func mapTaskWriteErr(err error) error {
	if name, ok := constraintViolation(err, codeFKViolation); ok {
		switch {
		case strings.Contains(name, "project_id"):
			return domain.ErrProjectNotFound
		case strings.Contains(name, "assigned_to"):
			return domain.ErrInvalidAssignee
		}
	}
	return err
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.AssignedTo, &t.AssignedBy,
		&t.Status, &t.Tags, &t.DueDate, &t.ReminderSent, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &t, nil
}
