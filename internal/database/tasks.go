package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const taskColumns = `id, user_id, title, subject, priority, due_date, due_time, start_time, end_time,
	completed, pomodoro_plan, created_at, updated_at, completed_at`

// TaskRepository handles task database operations
type TaskRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger used for slow or failed queries
func (r *TaskRepository) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Create inserts a new task. CreatedAt and UpdatedAt are set here.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	planJSON, err := marshalPlan(task.PomodoroPlan)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	created := now
	if !task.CreatedAt.IsZero() {
		created = task.CreatedAt.UTC()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		task.ID,
		task.UserID,
		task.Title,
		task.Subject,
		string(task.Priority),
		task.DueDate,
		nullableTime(task.DueTime),
		nullableTime(task.StartTime),
		nullableTime(task.EndTime),
		task.Completed,
		planJSON,
		created,
		now,
		nullableTimestamp(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.CreatedAt = created
	task.UpdatedAt = now
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListIncompleteTasks returns every incomplete task of a user in one query
func (r *TaskRepository) ListIncompleteTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return r.query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND completed = $2
		ORDER BY due_date ASC, COALESCE(due_time, '24:00') ASC, created_at ASC
	`, userID, false)
}

// ListByUser returns a user's tasks, optionally filtered by due date and completion
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	argIndex := 2

	if filter.DueDate != nil {
		query += fmt.Sprintf(" AND due_date = $%d", argIndex)
		args = append(args, *filter.DueDate)
		argIndex++
	}

	if filter.Completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argIndex)
		args = append(args, *filter.Completed)
	}

	query += " ORDER BY due_date ASC, COALESCE(due_time, '24:00') ASC, created_at ASC"

	return r.query(ctx, query, args...)
}

// Update writes every mutable field of task. UpdatedAt is refreshed.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	planJSON, err := marshalPlan(task.PomodoroPlan)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, subject = $3, priority = $4, due_date = $5, due_time = $6,
			start_time = $7, end_time = $8, completed = $9, pomodoro_plan = $10,
			updated_at = $11, completed_at = $12
		WHERE id = $1
	`,
		task.ID,
		task.Title,
		task.Subject,
		string(task.Priority),
		task.DueDate,
		nullableTime(task.DueTime),
		nullableTime(task.StartTime),
		nullableTime(task.EndTime),
		task.Completed,
		planJSON,
		now,
		nullableTimestamp(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if err := requireRow(result, task.ID); err != nil {
		return err
	}

	task.UpdatedAt = now
	return nil
}

// ToggleComplete flips the completed flag and stamps or clears CompletedAt
func (r *TaskRepository) ToggleComplete(ctx context.Context, id uuid.UUID, at time.Time) (*models.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Completed = !task.Completed
	if task.Completed {
		stamp := at.UTC()
		task.CompletedAt = &stamp
	} else {
		task.CompletedAt = nil
	}

	if err := r.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRow(result, id)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.Warn("failed_to_close_task_rows", zap.Error(closeErr))
		}
	}()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	r.logger.Debug("task_query_completed",
		zap.Int("rows", len(tasks)),
		zap.Duration("duration", time.Since(start)),
	)
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		priority    string
		planJSON    sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Subject,
		&priority,
		&task.DueDate,
		&task.DueTime,
		&task.StartTime,
		&task.EndTime,
		&task.Completed,
		&planJSON,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = models.Priority(priority)
	if task.DueDate.IsZero() {
		return nil, fmt.Errorf("task %s has no due_date", task.ID)
	}
	if planJSON.Valid && planJSON.String != "" {
		plan := &models.CyclePlan{}
		if err := json.Unmarshal([]byte(planJSON.String), plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pomodoro plan: %w", err)
		}
		task.PomodoroPlan = plan
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return task, nil
}

func marshalPlan(plan *models.CyclePlan) (any, error) {
	if plan == nil {
		return nil, nil
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pomodoro plan: %w", err)
	}
	return string(data), nil
}

// nullableTime binds a missing time of day as NULL and a set one through its
// driver.Valuer
func nullableTime(t *calendar.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func requireRow(result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}
