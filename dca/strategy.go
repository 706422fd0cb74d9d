package dca

import (
	"context"
	"math"
	"strings"
	"time"
)

// StrategyConfig describes one recurring-buy plan. It is not modified by a
// Simulation.
type StrategyConfig struct {
	Coin            string
	StartingBalance float64 // coin units held before the first buy
	BuyAmount       float64 // fiat spent per purchase; the fee comes out of it
	Fee             float64 // fiat fee per purchase
	Start           time.Time
	End             time.Time // inclusive
	IntervalDays    int       // days between purchases
	SampleDays      int       // days between ledger rows, 0 means daily
}

// Sampling returns the effective sampling interval in days.
func (c StrategyConfig) Sampling() int {
	if c.SampleDays == 0 {
		return 1
	}
	return c.SampleDays
}

// Purchases returns how many buys fire over the window when every
// purchase date is sampled.
func (c StrategyConfig) Purchases() int {
	if c.IntervalDays < 1 || c.End.Before(c.Start) {
		return 0
	}
	return DaysBetween(c.Start, c.End)/c.IntervalDays + 1
}

func (c StrategyConfig) Validate() error {
	if strings.TrimSpace(c.Coin) == "" {
		return invalid("coin is required")
	}
	if err := nonNegative("starting_balance", c.StartingBalance); err != nil {
		return err
	}
	if err := nonNegative("buy_amount", c.BuyAmount); err != nil {
		return err
	}
	if err := nonNegative("fee", c.Fee); err != nil {
		return err
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return invalid("start and end dates are required")
	}
	if Day(c.Start).After(Day(c.End)) {
		return invalid("start %s is after end %s", FormatDate(c.Start), FormatDate(c.End))
	}
	if c.IntervalDays < 1 {
		return invalid("interval_days must be at least 1 (got %d)", c.IntervalDays)
	}
	if c.SampleDays < 0 {
		return invalid("sample_days must be at least 1 (got %d)", c.SampleDays)
	}
	// A purchase only fires on a sampled date, so the buy cadence has to
	// land on the sampling grid.
	if c.IntervalDays%c.Sampling() != 0 {
		return invalid("interval_days %d is not a multiple of sample_days %d", c.IntervalDays, c.Sampling())
	}
	return nil
}

// Prices returns the daily price iterator for this plan's window.
func (c StrategyConfig) Prices(ctx context.Context, src PriceSource) (*PriceIterator, error) {
	return NewPriceIterator(ctx, src, c.Coin, c.Start, c.End, c.Sampling())
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("%s must be a finite number", name)
	}
	if v < 0 {
		return invalid("%s must not be negative (got %v)", name, v)
	}
	return nil
}
