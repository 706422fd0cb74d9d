// Package throttle spaces out calls to an upstream price source. Put it
// underneath the cache so that cached answers are never delayed.
package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/rustyeddy/dcasim/pricing"
)

// DefaultInterval matches the upstream's public rate allowance.
const DefaultInterval = time.Second

type Source struct {
	src     pricing.Source
	limiter *rate.Limiter
}

// New allows one call per interval with no burst. interval <= 0 disables
// throttling.
func New(src pricing.Source, interval time.Duration) *Source {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Source{
		src:     src,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (s *Source) Price(ctx context.Context, coin string, date time.Time) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("throttle: %w", err)
	}
	return s.src.Price(ctx, coin, date)
}
