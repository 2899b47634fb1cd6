package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"
)

type payload struct {
	Value string `json:"value"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	calls := 0
	compute := func(ctx context.Context) (payload, error) {
		calls++
		return payload{Value: "computed"}, nil
	}

	got, hit, err := GetOrCompute(ctx, store, discardLogger(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "computed", got.Value)
	assert.Equal(t, 1, calls)

	got, hit, err = GetOrCompute(ctx, store, discardLogger(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "computed", got.Value)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_ComputeError(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	wantErr := errors.New("store down")
	_, hit, err := GetOrCompute(ctx, store, discardLogger(), "k", time.Minute,
		func(ctx context.Context) (payload, error) {
			return payload{}, wantErr
		})

	assert.ErrorIs(t, err, wantErr)
	assert.False(t, hit)

	// Errors are never cached.
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestGetOrCompute_CorruptEntryRecomputes(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("{not json"), time.Minute))

	got, hit, err := GetOrCompute(ctx, store, discardLogger(), "k", time.Minute,
		func(ctx context.Context) (payload, error) {
			return payload{Value: "fresh"}, nil
		})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", got.Value)

	// The corrupt entry was overwritten.
	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"fresh"}`, string(data))
}

func TestGetOrCompute_CacheDownDegradesToCompute(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)

	mr.Close()

	got, hit, err := GetOrCompute(ctx, store, discardLogger(), "k", time.Minute,
		func(ctx context.Context) (payload, error) {
			return payload{Value: "live"}, nil
		})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "live", got.Value)
}

func TestGetOrCompute_CachesNilPointer(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	calls := 0
	compute := func(ctx context.Context) (*payload, error) {
		calls++
		return nil, nil
	}

	got, hit, err := GetOrCompute(ctx, store, discardLogger(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)

	// The negative outcome is served from the cache on the second call.
	got, hit, err = GetOrCompute(ctx, store, discardLogger(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Nil(t, got)
	assert.Equal(t, 1, calls)
}
