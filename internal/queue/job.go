package queue

import (
	"fmt"
	"time"

	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeOrderingSuggestion asks the worker to generate and cache an
	// AI ordering suggestion for two competing tasks
	JobTypeOrderingSuggestion JobType = "ordering_suggestion"

	// DefaultMaxRetries is how often a failed job is retried before it is dead-lettered
	DefaultMaxRetries = 3
)

// OrderingPayload carries the two tasks of an ordering suggestion job.
// Snapshots are sent rather than IDs because the candidate of a conflict
// check may not be persisted yet.
type OrderingPayload struct {
	First  models.Task `json:"first"`
	Second models.Task `json:"second"`
}

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID        `json:"id"`
	Type       JobType          `json:"type"`
	UserID     uuid.UUID        `json:"user_id"`
	Ordering   *OrderingPayload `json:"ordering,omitempty"`
	NotBefore  *time.Time       `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time       `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any   `json:"metadata,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	RetryCount int              `json:"retry_count"`
	MaxRetries int              `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewOrderingSuggestionJob creates a job for a pair of competing tasks
func NewOrderingSuggestionJob(userID uuid.UUID, first, second *models.Task) (*Job, error) {
	if first == nil || second == nil {
		return nil, fmt.Errorf("ordering suggestion job needs two tasks")
	}
	job := NewJob(JobTypeOrderingSuggestion, userID)
	job.Ordering = &OrderingPayload{First: *first, Second: *second}
	return job, nil
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	return j.ShouldProcessAt(time.Now())
}

// ShouldProcessAt checks the NotBefore/NotAfter window against now
func (j *Job) ShouldProcessAt(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
