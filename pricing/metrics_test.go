package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentCountsResults(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())
	calls := 0
	src := Instrument("test", SourceFunc(func(ctx context.Context, coin string, date time.Time) (float64, error) {
		calls++
		switch calls {
		case 1:
			return 10, nil
		case 2:
			return 0, fmt.Errorf("coin %s: %w", coin, ErrNotFound)
		default:
			return 0, errors.New("upstream down")
		}
	}), m)

	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p, err := src.Price(ctx, "ETH", day)
	require.NoError(t, err)
	assert.Equal(t, 10.0, p)

	_, err = src.Price(ctx, "XXX", day)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Price(ctx, "ETH", day)
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("test", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("test", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("test", "error")))
}

func TestInstrumentNilMetrics(t *testing.T) {
	t.Parallel()

	src := SourceFunc(func(context.Context, string, time.Time) (float64, error) { return 3, nil })
	wrapped := Instrument("x", src, nil)
	p, err := wrapped.Price(context.Background(), "BTC", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3.0, p)
}

func TestNewMetricsTwice(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		NewMetrics(nil)
		NewMetrics(nil)
	})
}
