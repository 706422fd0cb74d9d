package dca

import (
	"context"
	"time"
)

// DatedPrice is one fiat price sample for a calendar date.
type DatedPrice struct {
	Date  time.Time
	Price float64
}

// Feed yields prices in increasing date order. Next returns ok=false once the
// sequence is exhausted; an error ends it for good.
type Feed interface {
	Next() (DatedPrice, bool, error)
}

// PriceSource resolves the spot price of a coin on a date.
type PriceSource interface {
	Price(ctx context.Context, coin string, date time.Time) (float64, error)
}

// PriceSourceFunc adapts a function to PriceSource.
type PriceSourceFunc func(ctx context.Context, coin string, date time.Time) (float64, error)

func (f PriceSourceFunc) Price(ctx context.Context, coin string, date time.Time) (float64, error) {
	return f(ctx, coin, date)
}

// SliceFeed replays an in-memory series.
type SliceFeed struct {
	prices []DatedPrice
	i      int
}

func NewSliceFeed(prices ...DatedPrice) *SliceFeed {
	return &SliceFeed{prices: prices}
}

func (f *SliceFeed) Next() (DatedPrice, bool, error) {
	if f.i >= len(f.prices) {
		return DatedPrice{}, false, nil
	}
	p := f.prices[f.i]
	f.i++
	return p, true, nil
}

// PriceIterator walks [start, end] in fixed day steps and asks the source for
// each date as it is pulled. It cannot be restarted.
type PriceIterator struct {
	ctx  context.Context
	src  PriceSource
	coin string
	next time.Time
	end  time.Time
	step int
	err  error
}

func NewPriceIterator(ctx context.Context, src PriceSource, coin string, start, end time.Time, stepDays int) (*PriceIterator, error) {
	if src == nil {
		return nil, invalid("price source is nil")
	}
	if stepDays < 1 {
		return nil, invalid("sampling interval must be at least 1 day (got %d)", stepDays)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &PriceIterator{
		ctx:  ctx,
		src:  src,
		coin: coin,
		next: Day(start),
		end:  Day(end),
		step: stepDays,
	}, nil
}

func (it *PriceIterator) Next() (DatedPrice, bool, error) {
	if it.err != nil {
		return DatedPrice{}, false, it.err
	}
	if it.next.After(it.end) {
		return DatedPrice{}, false, nil
	}

	date := it.next
	if err := it.ctx.Err(); err != nil {
		it.err = &LookupError{Coin: it.coin, Date: date, Err: err}
		return DatedPrice{}, false, it.err
	}

	price, err := it.src.Price(it.ctx, it.coin, date)
	if err != nil {
		it.err = &LookupError{Coin: it.coin, Date: date, Err: err}
		return DatedPrice{}, false, it.err
	}

	it.next = AddDays(date, it.step)
	return DatedPrice{Date: date, Price: price}, true, nil
}
