package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/dcasim/pricing"
)

func counter(n *int) pricing.Source {
	return pricing.SourceFunc(func(ctx context.Context, coin string, date time.Time) (float64, error) {
		*n++
		return 1, nil
	})
}

func TestThrottleSpacesCalls(t *testing.T) {
	t.Parallel()

	calls := 0
	s := New(counter(&calls), 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Price(ctx, "ETH", time.Now())
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.Equal(t, 3, calls)
	// first call is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestThrottleDisabled(t *testing.T) {
	t.Parallel()

	calls := 0
	s := New(counter(&calls), 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		_, err := s.Price(context.Background(), "ETH", time.Now())
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 100, calls)
}

func TestThrottleHonorsContext(t *testing.T) {
	t.Parallel()

	calls := 0
	s := New(counter(&calls), time.Hour)
	_, err := s.Price(context.Background(), "ETH", time.Now())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Price(ctx, "ETH", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttle")
	assert.Equal(t, 1, calls)
}
