package dca

import (
	"fmt"
	"math"
	"time"
)

// State is the running position of one simulation.
type State struct {
	CoinBalance float64
	Invested    float64 // sum of BuyAmount over fired purchases
	Fees        float64
	NextBuy     time.Time
	Buys        int
}

// LedgerRecord is the snapshot emitted for one sampled date.
type LedgerRecord struct {
	Coin  string
	Date  time.Time
	Price float64

	CoinBalance   float64
	PositionValue float64

	Invested float64
	Fees     float64

	Bought        bool
	InvestedToday float64
	FeeToday      float64
	CoinBought    float64

	Gain    float64
	GainPct float64 // 0 until the first purchase
}

// Simulation folds a price feed into ledger records, one per price.
type Simulation struct {
	cfg   StrategyConfig
	feed  Feed
	state State
	err   error
}

func NewSimulation(cfg StrategyConfig, feed Feed) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, invalid("price feed is nil")
	}
	return &Simulation{
		cfg:  cfg,
		feed: feed,
		state: State{
			CoinBalance: cfg.StartingBalance,
			NextBuy:     Day(cfg.Start),
		},
	}, nil
}

func (s *Simulation) Config() StrategyConfig { return s.cfg }

// State returns a copy of the running state.
func (s *Simulation) State() State { return s.state }

func (s *Simulation) Next() (LedgerRecord, bool, error) {
	if s.err != nil {
		return LedgerRecord{}, false, s.err
	}

	p, ok, err := s.feed.Next()
	if err != nil {
		s.err = err
		return LedgerRecord{}, false, err
	}
	if !ok {
		return LedgerRecord{}, false, nil
	}

	rec, err := s.apply(p)
	if err != nil {
		s.err = err
		return LedgerRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Simulation) apply(p DatedPrice) (LedgerRecord, error) {
	date := Day(p.Date)
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
		return LedgerRecord{}, fmt.Errorf("%w: price %v for %s on %s", ErrNumericAnomaly, p.Price, s.cfg.Coin, FormatDate(date))
	}

	rec := LedgerRecord{
		Coin:  s.cfg.Coin,
		Date:  date,
		Price: p.Price,
	}

	if date.Equal(s.state.NextBuy) {
		rec.Bought = true
		rec.InvestedToday = s.cfg.BuyAmount
		rec.FeeToday = s.cfg.Fee
		rec.CoinBought = (rec.InvestedToday - rec.FeeToday) / p.Price

		s.state.Invested += rec.InvestedToday
		s.state.Fees += rec.FeeToday
		s.state.CoinBalance += rec.CoinBought
		s.state.Buys++
		s.state.NextBuy = AddDays(s.state.NextBuy, s.cfg.IntervalDays)
	}

	rec.CoinBalance = s.state.CoinBalance
	rec.Invested = s.state.Invested
	rec.Fees = s.state.Fees
	// explicit conversion keeps the product from being fused into Gain
	rec.PositionValue = float64(rec.CoinBalance * rec.Price)
	rec.Gain = rec.PositionValue - rec.Invested
	if rec.Invested != 0 {
		rec.GainPct = rec.Gain / rec.Invested * 100
	}
	return rec, nil
}

// Run pulls every record and hands it to fn, stopping at the first error.
func (s *Simulation) Run(fn func(LedgerRecord) error) error {
	for {
		rec, ok, err := s.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Collect drains the simulation. On error the records emitted so far are
// returned with it.
func (s *Simulation) Collect() ([]LedgerRecord, error) {
	var out []LedgerRecord
	err := s.Run(func(r LedgerRecord) error {
		out = append(out, r)
		return nil
	})
	return out, err
}
