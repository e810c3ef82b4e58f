// Package cache stores AI-generated ordering suggestions in Redis so a pair
// of competing tasks is only sent to the model once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/study-planner/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultSuggestionTTL is how long a cached suggestion stays valid
const DefaultSuggestionTTL = 24 * time.Hour

const keyPrefix = "study_planner:ordering:"

// ErrMiss is returned when no suggestion is cached and no generator is set
var ErrMiss = errors.New("suggestion not cached")

// Generator produces a suggestion on a cache miss
type Generator interface {
	SuggestOrdering(ctx context.Context, first, second *models.Task) (string, error)
}

// kv is the subset of the Redis client used here
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// SuggestionCache answers ordering suggestions from Redis, optionally
// falling through to a generator on a miss
type SuggestionCache struct {
	client kv
	ttl    time.Duration
	next   Generator
	logger *zap.Logger
}

// NewSuggestionCache creates a cache. With a nil generator a miss returns
// ErrMiss and callers use their own fallback.
func NewSuggestionCache(client *redis.Client, ttl time.Duration, next Generator, logger *zap.Logger) *SuggestionCache {
	return newSuggestionCache(client, ttl, next, logger)
}

func newSuggestionCache(client kv, ttl time.Duration, next Generator, logger *zap.Logger) *SuggestionCache {
	if ttl <= 0 {
		ttl = DefaultSuggestionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionCache{client: client, ttl: ttl, next: next, logger: logger}
}

// SuggestOrdering returns the cached text for the pair or generates and caches it
func (c *SuggestionCache) SuggestOrdering(ctx context.Context, first, second *models.Task) (string, error) {
	text, ok, err := c.Get(ctx, first, second)
	if err != nil {
		c.logger.Warn("suggestion_cache_read_failed", zap.Error(err))
	} else if ok {
		return text, nil
	}

	if c.next == nil {
		return "", ErrMiss
	}

	text, err = c.next.SuggestOrdering(ctx, first, second)
	if err != nil {
		return "", err
	}
	if err := c.Put(ctx, first, second, text); err != nil {
		c.logger.Warn("suggestion_cache_write_failed", zap.Error(err))
	}
	return text, nil
}

// Get reads a cached suggestion. ok is false on a miss.
func (c *SuggestionCache) Get(ctx context.Context, first, second *models.Task) (string, bool, error) {
	text, err := c.client.Get(ctx, PairKey(first, second)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read suggestion: %w", err)
	}
	return text, true, nil
}

// Put stores text for the pair. Blank text is not cached.
func (c *SuggestionCache) Put(ctx context.Context, first, second *models.Task, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := c.client.Set(ctx, PairKey(first, second), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write suggestion: %w", err)
	}
	return nil
}

// PairKey identifies a pair of tasks by the fields that drive ordering. It is
// symmetric, and editing either task's title, priority or due date/time moves
// the pair to a new key.
func PairKey(a, b *models.Task) string {
	fa, fb := fingerprint(a), fingerprint(b)
	if fb < fa {
		fa, fb = fb, fa
	}
	sum := sha256.Sum256([]byte(fa + "\x00" + fb))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

func fingerprint(t *models.Task) string {
	due := ""
	if t.DueTime != nil {
		due = t.DueTime.String()
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(t.Title)),
		t.Subject,
		string(t.Priority),
		t.DueDate.String(),
		due,
	}, "|")
}
