package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrochef/internal/nutrition"
)

type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	setCall int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.setCall++
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type countingLookup struct {
	calls  int
	macros nutrition.Macros
	found  bool
	err    error
}

func (l *countingLookup) Per100g(ctx context.Context, name string) (nutrition.Macros, bool, error) {
	l.calls++
	return l.macros, l.found, l.err
}

var spinach = nutrition.Macros{Protein: 2.9, Carbs: 3.6, Fat: 0.4, Fiber: 2.2, Calories: 23}

func TestCacheReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	next := &countingLookup{macros: spinach, found: true}
	c := New(next, rdb, 0)
	ctx := context.Background()

	m, found, err := c.Per100g(ctx, "Spinach")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, spinach, m)
	assert.Equal(t, DefaultTTL, rdb.ttls[Key("spinach")])

	m, found, err = c.Per100g(ctx, "  spinach ")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, spinach, m)
	assert.Equal(t, 1, next.calls, "second lookup is served from redis")
}

func TestCacheStoresMisses(t *testing.T) {
	rdb := newFakeRedis()
	next := &countingLookup{found: false}
	c := New(next, rdb, time.Hour)

	for i := 0; i < 2; i++ {
		_, found, err := c.Per100g(context.Background(), "unobtainium")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	rdb := newFakeRedis()
	boom := errors.New("usda down")
	c := New(&countingLookup{err: boom}, rdb, time.Hour)

	_, _, err := c.Per100g(context.Background(), "rice")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, rdb.setCall)
}

func TestCacheRedisFailuresAreIgnored(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	rdb.setErr = errors.New("connection refused")
	next := &countingLookup{macros: spinach, found: true}
	c := New(next, rdb, time.Hour)

	m, found, err := c.Per100g(context.Background(), "spinach")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, spinach, m)
	assert.Equal(t, 1, next.calls)
}

func TestCacheMalformedEntry(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data[Key("spinach")] = "not json"
	next := &countingLookup{macros: spinach, found: true}

	m, _, err := New(next, rdb, time.Hour).Per100g(context.Background(), "spinach")
	require.NoError(t, err)
	assert.Equal(t, spinach, m)
	assert.Equal(t, 1, next.calls)
}
