// Package conflict decides whether a candidate task collides with a user's
// existing incomplete tasks. Detection is advisory: it never returns an error
// and never blocks task creation.
package conflict

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OverloadThreshold is the number of tasks already on a day at which one
// more task is reported as a date overload
const OverloadThreshold = 3

const tracerName = "github.com/benvon/study-planner/internal/conflict"

// TaskLister is the single read the detector performs against the task store
type TaskLister interface {
	ListIncompleteTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

// OrderingSuggester produces a natural-language ordering suggestion for two
// competing tasks. It may be slow or unavailable.
type OrderingSuggester interface {
	SuggestOrdering(ctx context.Context, first, second *models.Task) (string, error)
}

// PriorityConflictHook is called after a priority conflict is found, with the
// candidate and the competing high-priority task
type PriorityConflictHook func(ctx context.Context, candidate, competing *models.Task)

// Detector runs conflict checks against a task store
type Detector struct {
	store      TaskLister
	suggester  OrderingSuggester
	onPriority PriorityConflictHook
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures a Detector
type Option func(*Detector)

// WithSuggester plugs in a natural-language ordering generator
func WithSuggester(s OrderingSuggester) Option {
	return func(d *Detector) {
		d.suggester = s
	}
}

// WithPriorityConflictHook registers a callback for priority conflicts
func WithPriorityConflictHook(h PriorityConflictHook) Option {
	return func(d *Detector) {
		d.onPriority = h
	}
}

// WithLogger sets the logger used for store and generator failures
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDetector creates a detector reading from store
func NewDetector(store TaskLister, opts ...Option) *Detector {
	d := &Detector{
		store:  store,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckConflicts loads the user's incomplete tasks once and classifies the
// candidate against them. A failed store read is logged and reported as no
// conflict.
func (d *Detector) CheckConflicts(ctx context.Context, userID uuid.UUID, candidate *models.Task) models.ConflictReport {
	ctx, span := d.tracer.Start(ctx, "conflict.check",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.String("due_date", candidate.DueDate.String()),
		),
	)
	defer span.End()

	existing, err := d.store.ListIncompleteTasks(ctx, userID)
	if err != nil {
		d.logger.Warn("conflict_store_read_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "task store read failed")
		return models.NoConflict()
	}

	report := d.Evaluate(ctx, candidate, existing)
	span.SetAttributes(
		attribute.String("conflict_type", string(report.ConflictType)),
		attribute.Int("conflicting_tasks", len(report.ConflictingTasks)),
	)
	return report
}

// Evaluate classifies candidate against an already loaded task set and
// builds the recommendation, consulting the suggester for priority conflicts
func (d *Detector) Evaluate(ctx context.Context, candidate *models.Task, existing []*models.Task) models.ConflictReport {
	kind, conflicting := classify(candidate, existing)
	if kind == models.ConflictNone {
		return models.NoConflict()
	}

	var recommendation string
	if kind == models.ConflictPriority {
		competing := conflicting[0]
		recommendation = priorityRecommendation(competing, d.RecommendOrdering(ctx, candidate, competing))
		if d.onPriority != nil {
			d.onPriority(ctx, candidate, competing)
		}
	} else {
		recommendation = recommendationFor(kind, candidate, conflicting)
	}

	return models.ConflictReport{
		HasConflict:      true,
		ConflictType:     kind,
		ConflictingTasks: conflicting,
		Recommendation:   recommendation,
	}
}

// RecommendOrdering suggests which of two same-day tasks to do first. The
// suggester's text is used when it succeeds; otherwise the deterministic rule
// applies. It never fails.
func (d *Detector) RecommendOrdering(ctx context.Context, a, b *models.Task) string {
	if d.suggester != nil {
		text, err := d.suggester.SuggestOrdering(ctx, a, b)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			d.logger.Debug("ordering_suggester_failed_using_fallback", zap.Error(err))
		}
	}
	return DeterministicOrdering(a, b)
}

// Classify is the pure form of a conflict check: no store read, no
// suggester, deterministic recommendation text
func Classify(candidate *models.Task, existing []*models.Task) models.ConflictReport {
	kind, conflicting := classify(candidate, existing)
	if kind == models.ConflictNone {
		return models.NoConflict()
	}
	var recommendation string
	if kind == models.ConflictPriority {
		recommendation = priorityRecommendation(conflicting[0], DeterministicOrdering(candidate, conflicting[0]))
	} else {
		recommendation = recommendationFor(kind, candidate, conflicting)
	}
	return models.ConflictReport{
		HasConflict:      true,
		ConflictType:     kind,
		ConflictingTasks: conflicting,
		Recommendation:   recommendation,
	}
}

// classify runs the three rules in severity order; the first match wins
func classify(candidate *models.Task, existing []*models.Task) (models.ConflictType, []*models.Task) {
	sameDate := make([]*models.Task, 0, len(existing))
	for _, t := range existing {
		if t == nil || t.Completed {
			continue
		}
		if candidate.ID != uuid.Nil && t.ID == candidate.ID {
			continue
		}
		if t.DueDate == candidate.DueDate {
			sameDate = append(sameDate, t)
		}
	}

	if candidate.DueTime != nil {
		var sameTime []*models.Task
		for _, t := range sameDate {
			if t.DueTime != nil && *t.DueTime == *candidate.DueTime {
				sameTime = append(sameTime, t)
			}
		}
		if len(sameTime) > 0 {
			return models.ConflictTime, sameTime
		}
	}

	if candidate.Priority == models.PriorityHigh {
		var samePriority []*models.Task
		for _, t := range sameDate {
			if t.Priority == models.PriorityHigh {
				samePriority = append(samePriority, t)
			}
		}
		if len(samePriority) > 0 {
			return models.ConflictPriority, samePriority
		}
	}

	if len(sameDate) >= OverloadThreshold {
		return models.ConflictDate, sameDate
	}

	return models.ConflictNone, nil
}

func recommendationFor(kind models.ConflictType, candidate *models.Task, conflicting []*models.Task) string {
	switch kind {
	case models.ConflictTime:
		first := conflicting[0]
		return fmt.Sprintf("You already have %q scheduled at %s on %s. Consider adjusting the time for this task.",
			first.Label(), first.DueTime.Display(), candidate.DueDate)
	case models.ConflictDate:
		return fmt.Sprintf("You already have %d tasks due on %s. That day is getting busy; consider moving some tasks to another day.",
			len(conflicting), candidate.DueDate)
	default:
		return ""
	}
}

func priorityRecommendation(competing *models.Task, ordering string) string {
	return fmt.Sprintf("%q is also a High priority task due on %s. %s", competing.Label(), competing.DueDate, ordering)
}
