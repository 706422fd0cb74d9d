package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/dcasim/pricing"
)

// DefaultTTL keeps historical prices for a year; they do not change.
const DefaultTTL = 365 * 24 * time.Hour

// Cached serves prices from a Store and falls back to an upstream source on
// a miss or an expired entry. Only upstream answers are written back.
type Cached struct {
	store   *Store
	name    string
	src     pricing.Source
	ttl     time.Duration
	now     func() time.Time
	log     *zap.SugaredLogger
	metrics *pricing.Metrics
}

// Wrap puts src behind store under the given source name. A ttl <= 0 never
// expires entries.
func Wrap(store *Store, name string, src pricing.Source, ttl time.Duration) *Cached {
	return &Cached{
		store: store,
		name:  name,
		src:   src,
		ttl:   ttl,
		now:   time.Now,
		log:   zap.NewNop().Sugar(),
	}
}

func (c *Cached) WithLogger(log *zap.SugaredLogger) *Cached {
	if log != nil {
		c.log = log
	}
	return c
}

func (c *Cached) WithMetrics(m *pricing.Metrics) *Cached {
	c.metrics = m
	return c
}

func (c *Cached) Price(ctx context.Context, coin string, date time.Time) (float64, error) {
	key := Key{Source: c.name, Coin: coin, Date: date}

	e, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warnw("cache read failed", "coin", coin, "date", date.Format(dateLayout), "err", err)
	case ok && c.fresh(e):
		c.hit()
		c.log.Debugw("cache hit", "coin", coin, "date", date.Format(dateLayout), "price", e.Price)
		return e.Price, nil
	}

	c.miss()
	price, err := c.src.Price(ctx, coin, date)
	if err != nil {
		return 0, err
	}

	if err := c.store.Put(ctx, Entry{Key: key, Price: price, FetchedAt: c.now()}); err != nil {
		c.log.Warnw("cache write failed", "coin", coin, "date", date.Format(dateLayout), "err", err)
	}
	return price, nil
}

func (c *Cached) fresh(e Entry) bool {
	if c.ttl <= 0 {
		return true
	}
	return c.now().Sub(e.FetchedAt) < c.ttl
}

func (c *Cached) hit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *Cached) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}
