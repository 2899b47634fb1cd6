package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is the key-value contract consumed by the search subsystems. Writes
// are idempotent (same key, equivalent value) so last-write-wins is fine.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// GetOrCompute looks up key in the store and unmarshals the cached JSON value
// on a hit. On a miss it invokes compute, caches the result with the given
// TTL, and returns it. The second return value reports whether the value came
// from the cache.
//
// Cache failures are never fatal: a failing Get degrades to compute, a failing
// Set is logged and ignored. Only compute errors propagate.
func GetOrCompute[T any](
	ctx context.Context,
	store Store,
	logger *slog.Logger,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) (T, error),
) (T, bool, error) {
	var zero T

	data, err := store.Get(ctx, key)
	if err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, true, nil
		}
		// Corrupt entry: fall through to compute and overwrite.
		logger.WarnContext(ctx, "cache entry unmarshal failed, recomputing",
			slog.String("key", key),
		)
	} else if !errors.Is(err, ErrMiss) {
		logger.WarnContext(ctx, "cache read failed, computing live",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, false, err
	}

	data, err = json.Marshal(value)
	if err != nil {
		logger.WarnContext(ctx, "cache value marshal failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return value, false, nil
	}

	if err := store.Set(ctx, key, data, ttl); err != nil {
		logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return value, false, nil
}
