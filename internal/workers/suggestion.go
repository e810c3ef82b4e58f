package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/study-planner/internal/models"
	"github.com/benvon/study-planner/internal/queue"
	"github.com/benvon/study-planner/internal/services/ai"
	"go.uber.org/zap"
)

// OrderingGenerator produces a natural-language ordering suggestion
type OrderingGenerator interface {
	SuggestOrdering(ctx context.Context, first, second *models.Task) (string, error)
}

// SuggestionStore persists generated suggestions for later conflict checks
type SuggestionStore interface {
	Get(ctx context.Context, first, second *models.Task) (string, bool, error)
	Put(ctx context.Context, first, second *models.Task, text string) error
}

// JobEnqueuer re-publishes jobs that should be retried later
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// SuggestionWorker processes ordering suggestion jobs
type SuggestionWorker struct {
	generator OrderingGenerator
	store     SuggestionStore
	jobQueue  JobEnqueuer
	logger    *zap.Logger
	now       func() time.Time
}

// NewSuggestionWorker creates a new suggestion worker. jobQueue may be nil,
// in which case failed jobs go straight to the DLQ.
func NewSuggestionWorker(generator OrderingGenerator, store SuggestionStore, jobQueue JobEnqueuer, logger *zap.Logger) *SuggestionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionWorker{
		generator: generator,
		store:     store,
		jobQueue:  jobQueue,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessJob processes a job based on its type and settles the message
func (w *SuggestionWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if job == nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Error("job_nack_failed", zap.Error(nackErr))
		}
		return errors.New("message has no job")
	}

	switch job.Type {
	case queue.JobTypeOrderingSuggestion:
		if err := w.processOrderingSuggestion(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		// Unknown job type, send to DLQ
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *SuggestionWorker) processOrderingSuggestion(ctx context.Context, job *queue.Job) error {
	if job.Ordering == nil {
		return errPermanent{errors.New("ordering payload is required for ordering suggestion job")}
	}
	first, second := &job.Ordering.First, &job.Ordering.Second

	if _, ok, err := w.store.Get(ctx, first, second); err == nil && ok {
		w.logger.Debug("ordering_suggestion_cached", zap.String("job_id", job.ID.String()))
		return nil
	}

	ctx = ai.WithRequestID(ctx, job.ID.String())
	text, err := w.generator.SuggestOrdering(ctx, first, second)
	if err != nil {
		return fmt.Errorf("failed to generate ordering suggestion: %w", err)
	}

	if err := w.store.Put(ctx, first, second, text); err != nil {
		return fmt.Errorf("failed to store ordering suggestion: %w", err)
	}

	w.logger.Info("ordering_suggestion_stored",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
	)
	return nil
}

// errPermanent marks failures that retrying cannot fix
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

// handleJobError re-enqueues the job with backoff while it has retries left
// and dead-letters it otherwise
func (w *SuggestionWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	var permanent errPermanent
	if errors.As(err, &permanent) || !job.CanRetry() || w.jobQueue == nil {
		w.logger.Warn("job_dead_lettered",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("job %s failed: %w", job.ID, err)
	}

	retryDelay := ai.GetRetryDelay(err, job.RetryCount)
	notBefore := w.now().Add(retryDelay)

	retry := *job
	retry.NotBefore = &notBefore
	retry.IncrementRetry()

	if enqueueErr := w.jobQueue.Enqueue(ctx, &retry); enqueueErr != nil {
		w.logger.Error("job_requeue_failed", zap.String("job_id", job.ID.String()), zap.Error(enqueueErr))
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue job %s: %w", job.ID, enqueueErr)
	}

	// Ack only after the retry is safely published
	if ackErr := msg.Ack(); ackErr != nil {
		w.logger.Error("job_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
	}

	w.logger.Info("job_retry_scheduled",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", retry.RetryCount),
		zap.Duration("retry_delay", retryDelay),
		zap.Bool("rate_limited", ai.IsRateLimitError(err)),
		zap.Bool("quota_exceeded", ai.IsQuotaError(err)),
	)
	return nil
}
