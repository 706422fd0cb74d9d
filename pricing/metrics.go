package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts price lookups per source layer.
type Metrics struct {
	Lookups       *prometheus.CounterVec
	LookupLatency *prometheus.HistogramVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
}

// NewMetrics registers the pricing metrics on reg. A nil reg uses a private
// registry, which keeps repeated construction in tests from colliding.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcasim",
			Subsystem: "pricing",
			Name:      "lookups_total",
			Help:      "Price lookups by source and result",
		}, []string{"source", "result"}),
		LookupLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dcasim",
			Subsystem: "pricing",
			Name:      "lookup_duration_seconds",
			Help:      "Price lookup latency by source",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dcasim",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Prices served from the local cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dcasim",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Prices fetched from upstream because the cache had none or it expired",
		}),
	}
}

// Instrument wraps src so every lookup is counted under name.
func Instrument(name string, src Source, m *Metrics) Source {
	if m == nil {
		return src
	}
	return SourceFunc(func(ctx context.Context, coin string, date time.Time) (float64, error) {
		start := time.Now()
		price, err := src.Price(ctx, coin, date)
		m.LookupLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
		m.Lookups.WithLabelValues(name, result(err)).Inc()
		return price, err
	})
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
