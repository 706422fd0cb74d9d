package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/dcasim/dca"
	"github.com/rustyeddy/dcasim/internal/id"
	"github.com/rustyeddy/dcasim/internal/logger"
)

// Sink consumes ledger records in emission order.
type Sink interface {
	Record(dca.LedgerRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(dca.LedgerRecord) error

func (f SinkFunc) Record(r dca.LedgerRecord) error { return f(r) }

// Runner wires a price source to a simulation and fans records out to sinks.
type Runner struct {
	Source   dca.PriceSource
	Strategy dca.StrategyConfig
	Log      *zap.SugaredLogger // nil: the logger carried by ctx
}

// Run executes one simulation:
//  1. pull the next (date, price) from the source
//  2. fold it into the ledger
//  3. hand the record to every sink
//
// On failure the Result covers the records emitted before the error.
func (r *Runner) Run(ctx context.Context, sinks ...Sink) (Result, error) {
	if r.Source == nil {
		return Result{}, fmt.Errorf("backtest: Source is required")
	}
	log := r.Log
	if log == nil {
		log = logger.FromContext(ctx)
	}

	res := newResult(id.New(), r.Strategy)
	log = log.With("run_id", res.RunID, "coin", r.Strategy.Coin)

	prices, err := r.Strategy.Prices(ctx, r.Source)
	if err != nil {
		return res, err
	}
	sim, err := dca.NewSimulation(r.Strategy, prices)
	if err != nil {
		return res, err
	}

	cfg := sim.Config()
	log.Infow("simulation started",
		"start", dca.FormatDate(cfg.Start),
		"end", dca.FormatDate(cfg.End),
		"buy_amount", cfg.BuyAmount,
		"fee", cfg.Fee,
		"interval_days", cfg.IntervalDays,
		"sample_days", cfg.Sampling(),
	)

	err = sim.Run(func(rec dca.LedgerRecord) error {
		res.add(rec)
		for _, s := range sinks {
			if err := s.Record(rec); err != nil {
				return fmt.Errorf("sink: %w", err)
			}
		}
		return nil
	})
	res.finish()

	if err != nil {
		log.Errorw("simulation failed", "rows", res.Rows, "err", err)
		return res, err
	}

	log.Infow("simulation finished",
		"rows", res.Rows,
		"buys", res.Buys,
		"position_value", res.Final.PositionValue,
		"invested", res.Final.Invested,
		"gain_pct", res.Final.GainPct,
	)
	return res, nil
}
