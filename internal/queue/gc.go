package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultGCSchedule runs the DLQ purge at the top of every hour
const DefaultGCSchedule = "@hourly"

// GarbageCollector runs DLQ purges on a cron schedule, removing messages
// older than retention
type GarbageCollector struct {
	dlqPurger DLQPurger
	schedule  string
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector creates a new garbage collector. schedule is a cron
// expression or descriptor such as "@every 30m"; empty means hourly.
func NewGarbageCollector(purger DLQPurger, schedule string, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if schedule == "" {
		schedule = DefaultGCSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		dlqPurger: purger,
		schedule:  schedule,
		retention: retention,
		logger:    logger,
	}
}

// Start runs the schedule until ctx is cancelled. It returns an error only
// when the schedule cannot be parsed.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(gc.schedule, func() {
		if err := gc.collect(ctx); err != nil {
			gc.logger.Error("dlq_gc_failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid DLQ GC schedule %q: %w", gc.schedule, err)
	}

	c.Start()
	gc.logger.Info("dlq_gc_started",
		zap.String("schedule", gc.schedule),
		zap.Duration("retention", gc.retention),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// collect purges DLQ messages older than retention.
func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		gc.logger.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return nil
}
