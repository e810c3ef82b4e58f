package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/benvon/study-planner/internal/database"
	"github.com/benvon/study-planner/internal/models"
	"github.com/benvon/study-planner/internal/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// memoryTaskRepo is an in-memory TaskRepositoryInterface
type memoryTaskRepo struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*models.Task
	listErr   error
	listCalls int
}

func newMemoryTaskRepo(tasks ...*models.Task) *memoryTaskRepo {
	repo := &memoryTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range tasks {
		repo.tasks[t.ID] = t
	}
	return repo
}

func (m *memoryTaskRepo) Create(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == uuid.Nil {
		return errors.New("task ID is required")
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memoryTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTaskRepo) ListByUser(_ context.Context, userID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Task
	for _, t := range m.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.DueDate != nil && t.DueDate != *filter.DueDate {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryTaskRepo) ListIncompleteTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	m.mu.Lock()
	m.listCalls++
	err := m.listErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	completed := false
	return m.ListByUser(ctx, userID, models.TaskFilter{Completed: &completed})
}

func (m *memoryTaskRepo) Update(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return database.ErrNotFound
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memoryTaskRepo) ToggleComplete(_ context.Context, id uuid.UUID, at time.Time) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	t.Completed = !t.Completed
	if t.Completed {
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memoryTaskRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// withUser attaches user to the request the way the UserContext middleware does
func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(request.WithUser(r.Context(), user))
}

// withID sets the {id} route variable
func withID(r *http.Request, id string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"id": id})
}
