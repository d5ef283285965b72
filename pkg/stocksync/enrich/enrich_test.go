package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingService struct {
	calls map[string]int
	err   error
}

func (s *countingService) Title(_ context.Context, sym string) (string, error) {
	s.calls[sym]++
	if s.err != nil {
		return "", s.err
	}
	return sym + " Inc", nil
}

func TestCacheServiceHitsAndExpiry(t *testing.T) {
	next := &countingService{calls: map[string]int{}}
	c := NewCacheService(next, time.Minute, 10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := c.Title(ctx, "ABC")
		require.NoError(t, err)
		assert.Equal(t, "ABC Inc", got)
	}
	assert.Equal(t, 1, next.calls["ABC"])

	now = now.Add(2 * time.Minute)
	_, err := c.Title(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls["ABC"])
}

func TestCacheServiceEvictsOldest(t *testing.T) {
	next := &countingService{calls: map[string]int{}}
	c := NewCacheService(next, time.Hour, 2)
	ctx := context.Background()
	for _, s := range []string{"A", "B", "A", "C", "A", "B"} {
		_, err := c.Title(ctx, s)
		require.NoError(t, err)
	}
	// A was touched after B, so C evicted B.
	assert.Equal(t, 1, next.calls["A"])
	assert.Equal(t, 2, next.calls["B"])
	assert.Equal(t, 1, next.calls["C"])
}

func TestCacheServiceDoesNotCacheErrors(t *testing.T) {
	next := &countingService{calls: map[string]int{}, err: errors.New("boom")}
	c := NewCacheService(next, time.Hour, 2)
	_, err := c.Title(context.Background(), "X")
	require.Error(t, err)
	_, err = c.Title(context.Background(), "X")
	require.Error(t, err)
	assert.Equal(t, 2, next.calls["X"])
}
