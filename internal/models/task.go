package models

import (
	"time"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/google/uuid"
)

// DefaultSubject is used when a task is created without a subject
const DefaultSubject = "General"

// Task represents a unit of study work
type Task struct {
	ID           uuid.UUID           `json:"id"`
	UserID       uuid.UUID           `json:"user_id"`
	Title        string              `json:"title"`
	Subject      string              `json:"subject"`
	Priority     Priority            `json:"priority"`
	DueDate      calendar.Date       `json:"due_date"`
	DueTime      *calendar.TimeOfDay `json:"due_time,omitempty"`   // nil means end of day
	StartTime    *calendar.TimeOfDay `json:"start_time,omitempty"` // work window start
	EndTime      *calendar.TimeOfDay `json:"end_time,omitempty"`   // work window end
	Completed    bool                `json:"completed"`
	PomodoroPlan *CyclePlan          `json:"pomodoro_plan,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

// Label returns the title used in human-readable messages
func (t *Task) Label() string {
	if t.Title == "" {
		return "Untitled task"
	}
	return t.Title
}

// TaskFilter narrows task listings
type TaskFilter struct {
	DueDate   *calendar.Date
	Completed *bool
}
