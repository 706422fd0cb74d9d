package dca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource returns base + day offset from start and records each call.
type countingSource struct {
	start  time.Time
	base   float64
	calls  []time.Time
	failOn time.Time
	err    error
}

func (s *countingSource) Price(ctx context.Context, coin string, date time.Time) (float64, error) {
	s.calls = append(s.calls, date)
	if !s.failOn.IsZero() && date.Equal(s.failOn) {
		return 0, s.err
	}
	return s.base + float64(DaysBetween(s.start, date)), nil
}

func drain(t *testing.T, f Feed) ([]DatedPrice, error) {
	t.Helper()
	var out []DatedPrice
	for {
		p, ok, err := f.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, p)
	}
}

func TestPriceIteratorDaily(t *testing.T) {
	t.Parallel()

	start := Date(2024, 1, 30)
	src := &countingSource{start: start, base: 100}
	it, err := NewPriceIterator(context.Background(), src, "BTC", start, Date(2024, 2, 2), 1)
	require.NoError(t, err)

	got, err := drain(t, it)
	require.NoError(t, err)
	require.Len(t, got, 4)

	want := []time.Time{Date(2024, 1, 30), Date(2024, 1, 31), Date(2024, 2, 1), Date(2024, 2, 2)}
	for i, p := range got {
		assert.True(t, p.Date.Equal(want[i]), "row %d date %s", i, FormatDate(p.Date))
		assert.Equal(t, 100+float64(i), p.Price)
	}
	assert.Len(t, src.calls, 4, "one lookup per produced date")

	// exhausted iterators stay exhausted
	_, ok, err := it.Next()
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Len(t, src.calls, 4)
}

func TestPriceIteratorStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		step  int
		want  int
	}{
		{"single day", Date(2024, 1, 1), Date(2024, 1, 1), 1, 1},
		{"weekly inclusive end", Date(2024, 1, 1), Date(2024, 1, 15), 7, 3},
		{"weekly end inside step", Date(2024, 1, 1), Date(2024, 1, 14), 7, 2},
		{"leap year february", Date(2024, 2, 27), Date(2024, 3, 1), 1, 4},
		{"end before start", Date(2024, 1, 2), Date(2024, 1, 1), 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &countingSource{start: tt.start, base: 10}
			it, err := NewPriceIterator(context.Background(), src, "ETH", tt.start, tt.end, tt.step)
			require.NoError(t, err)

			got, err := drain(t, it)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for i := 1; i < len(got); i++ {
				assert.True(t, got[i].Date.After(got[i-1].Date))
				assert.Equal(t, tt.step, DaysBetween(got[i-1].Date, got[i].Date))
			}
		})
	}
}

func TestPriceIteratorLookupFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	start := Date(2024, 1, 1)
	src := &countingSource{start: start, base: 1, failOn: Date(2024, 1, 3), err: boom}
	it, err := NewPriceIterator(context.Background(), src, "ETH", start, Date(2024, 1, 10), 1)
	require.NoError(t, err)

	got, err := drain(t, it)
	require.Error(t, err)
	assert.Len(t, got, 2)

	assert.ErrorIs(t, err, ErrLookup)
	assert.ErrorIs(t, err, boom)

	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "ETH", le.Coin)
	assert.True(t, le.Date.Equal(Date(2024, 1, 3)))
	assert.Contains(t, err.Error(), "lookup ETH on 2024-01-03")

	// the failure is sticky and nothing else is fetched
	_, ok, err2 := it.Next()
	assert.False(t, ok)
	assert.Equal(t, err, err2)
	assert.Len(t, src.calls, 3)
}

func TestPriceIteratorCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	start := Date(2024, 1, 1)
	src := &countingSource{start: start, base: 1}
	it, err := NewPriceIterator(ctx, src, "ETH", start, Date(2024, 1, 5), 1)
	require.NoError(t, err)

	_, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	_, ok, err = it.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, src.calls, 1)
}

func TestNewPriceIteratorInvalid(t *testing.T) {
	t.Parallel()

	_, err := NewPriceIterator(context.Background(), nil, "ETH", Date(2024, 1, 1), Date(2024, 1, 2), 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	src := PriceSourceFunc(func(context.Context, string, time.Time) (float64, error) { return 1, nil })
	_, err = NewPriceIterator(context.Background(), src, "ETH", Date(2024, 1, 1), Date(2024, 1, 2), 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSliceFeed(t *testing.T) {
	t.Parallel()

	f := NewSliceFeed(
		DatedPrice{Date: Date(2024, 1, 1), Price: 1},
		DatedPrice{Date: Date(2024, 1, 2), Price: 2},
	)
	got, err := drain(t, f)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, ok, err := f.Next()
	assert.False(t, ok)
	assert.NoError(t, err)
}
