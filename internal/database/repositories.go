package database

import (
	"context"
	"time"

	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
)

// TaskRepositoryInterface defines the task operations handlers depend on.
// It enables mock implementations in tests.
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error)
	ListIncompleteTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	ToggleComplete(ctx context.Context, id uuid.UUID, at time.Time) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepositoryInterface defines the user operations middleware depends on
type UserRepositoryInterface interface {
	GetOrCreate(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface = (*TaskRepository)(nil)
	_ UserRepositoryInterface = (*UserRepository)(nil)
)
