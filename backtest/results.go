package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/rustyeddy/dcasim/dca"
	"github.com/rustyeddy/dcasim/internal/id"
)

// Result is a summary of a simulation run.
type Result struct {
	RunID    string
	Created  time.Time // the time encoded in RunID
	Strategy dca.StrategyConfig

	Rows int
	Buys int

	First dca.LedgerRecord
	Final dca.LedgerRecord

	CoinBought float64 // units added by purchases, starting balance excluded
	AvgCost    float64 // fiat paid per purchased unit, fees included

	MinPrice    float64
	MaxPrice    float64
	MeanPrice   float64
	MedianPrice float64

	BestGainPct    float64
	WorstGainPct   float64
	MaxDrawdownPct float64 // largest peak-to-trough fall in position value

	prices   []float64
	gainPcts []float64
	peak     float64
}

func newResult(runID string, s dca.StrategyConfig) Result {
	created, err := id.Time(runID)
	if err != nil {
		created = time.Now().UTC()
	}
	return Result{
		RunID:    runID,
		Created:  created,
		Strategy: s,
	}
}

func (r *Result) add(rec dca.LedgerRecord) {
	if r.Rows == 0 {
		r.First = rec
	}
	r.Rows++
	r.Final = rec
	if rec.Bought {
		r.Buys++
		r.CoinBought += rec.CoinBought
	}

	r.prices = append(r.prices, rec.Price)
	if rec.Invested > 0 {
		r.gainPcts = append(r.gainPcts, rec.GainPct)
	}

	if rec.PositionValue > r.peak {
		r.peak = rec.PositionValue
	}
	if r.peak > 0 {
		dd := (r.peak - rec.PositionValue) / r.peak * 100
		if dd > r.MaxDrawdownPct {
			r.MaxDrawdownPct = dd
		}
	}
}

func (r *Result) finish() {
	if r.CoinBought > 0 {
		r.AvgCost = r.Final.Invested / r.CoinBought
	}

	prices := stats.Float64Data(r.prices)
	if prices.Len() > 0 {
		r.MinPrice, _ = prices.Min()
		r.MaxPrice, _ = prices.Max()
		r.MeanPrice, _ = prices.Mean()
		r.MedianPrice, _ = prices.Median()
	}

	gains := stats.Float64Data(r.gainPcts)
	if gains.Len() > 0 {
		r.BestGainPct, _ = gains.Max()
		r.WorstGainPct, _ = gains.Min()
	}
}

// PrintResult writes a human readable run summary.
func PrintResult(w io.Writer, r Result, fiat string) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " DCA Simulation Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Coin:          %s\n", r.Strategy.Coin)
	fmt.Fprintf(w, "Period:        %s .. %s\n", dca.FormatDate(r.Strategy.Start), dca.FormatDate(r.Strategy.End))
	fmt.Fprintf(w, "Plan:          %.2f %s every %d day(s), fee %.2f\n",
		r.Strategy.BuyAmount, fiat, r.Strategy.IntervalDays, r.Strategy.Fee)

	if r.Rows == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No rows were produced.")
		return
	}

	f := r.Final
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Position")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Rows:          %d\n", r.Rows)
	fmt.Fprintf(w, "Buys:          %d\n", r.Buys)
	fmt.Fprintf(w, "Coin Balance:  %.8f %s\n", f.CoinBalance, f.Coin)
	fmt.Fprintf(w, "Invested:      %.2f %s\n", f.Invested, fiat)
	fmt.Fprintf(w, "Fees:          %.2f %s\n", f.Fees, fiat)
	fmt.Fprintf(w, "Value:         %.2f %s\n", f.PositionValue, fiat)
	fmt.Fprintf(w, "Gain:          %.2f %s (%.2f%%)\n", f.Gain, fiat, f.GainPct)
	if r.AvgCost > 0 {
		fmt.Fprintf(w, "Avg Cost:      %.2f %s per %s\n", r.AvgCost, fiat, f.Coin)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Prices")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "First/Last:    %.2f / %.2f\n", r.First.Price, f.Price)
	fmt.Fprintf(w, "Min/Max:       %.2f / %.2f\n", r.MinPrice, r.MaxPrice)
	fmt.Fprintf(w, "Mean/Median:   %.2f / %.2f\n", r.MeanPrice, r.MedianPrice)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Best Gain:     %.2f%%\n", r.BestGainPct)
	fmt.Fprintf(w, "Worst Gain:    %.2f%%\n", r.WorstGainPct)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdownPct)

	fmt.Fprintln(w)
}
