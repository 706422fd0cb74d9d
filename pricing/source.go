// Package pricing holds the price source abstraction shared by the coinbase
// client, the CSV source and the caching/throttling wrappers.
package pricing

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (possibly wrapped) when no price exists for a
// coin/date pair.
var ErrNotFound = errors.New("price not found")

// Source resolves the fiat spot price of a coin on a calendar date.
type Source interface {
	Price(ctx context.Context, coin string, date time.Time) (float64, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, coin string, date time.Time) (float64, error)

func (f SourceFunc) Price(ctx context.Context, coin string, date time.Time) (float64, error) {
	return f(ctx, coin, date)
}
