package api

import (
	"github.com/rustyeddy/dcasim/backtest"
	"github.com/rustyeddy/dcasim/dca"
)

// SimulateResponse is the body of a successful POST /api/v1/simulate.
type SimulateResponse struct {
	RunID   string      `json:"run_id"`
	Status  string      `json:"status"`
	Fiat    string      `json:"fiat"`
	Summary Summary     `json:"summary"`
	Ledger  []LedgerRow `json:"ledger,omitempty"`
}

type Summary struct {
	Coin         string  `json:"coin"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	IntervalDays int     `json:"interval_days"`
	BuyAmount    float64 `json:"buy_amount"`
	Fee          float64 `json:"fee"`

	Rows          int     `json:"rows"`
	Buys          int     `json:"buys"`
	CoinBalance   float64 `json:"coin_balance"`
	Invested      float64 `json:"invested"`
	Fees          float64 `json:"fees"`
	PositionValue float64 `json:"position_value"`
	Gain          float64 `json:"gain"`
	GainPct       float64 `json:"gain_pct"`
	AvgCost       float64 `json:"avg_cost"`

	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
	MeanPrice      float64 `json:"mean_price"`
	MedianPrice    float64 `json:"median_price"`
	BestGainPct    float64 `json:"best_gain_pct"`
	WorstGainPct   float64 `json:"worst_gain_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

type LedgerRow struct {
	Date          string  `json:"date"`
	Price         float64 `json:"price"`
	CoinBalance   float64 `json:"coin_balance"`
	PositionValue float64 `json:"position_value"`
	Invested      float64 `json:"invested"`
	Fees          float64 `json:"fees"`
	Bought        bool    `json:"bought"`
	InvestedToday float64 `json:"invested_today"`
	FeeToday      float64 `json:"fee_today"`
	CoinBought    float64 `json:"coin_bought"`
	Gain          float64 `json:"gain"`
	GainPct       float64 `json:"gain_pct"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func summaryOf(r backtest.Result) Summary {
	f := r.Final
	return Summary{
		Coin:         r.Strategy.Coin,
		Start:        dca.FormatDate(r.Strategy.Start),
		End:          dca.FormatDate(r.Strategy.End),
		IntervalDays: r.Strategy.IntervalDays,
		BuyAmount:    r.Strategy.BuyAmount,
		Fee:          r.Strategy.Fee,

		Rows:          r.Rows,
		Buys:          r.Buys,
		CoinBalance:   f.CoinBalance,
		Invested:      f.Invested,
		Fees:          f.Fees,
		PositionValue: f.PositionValue,
		Gain:          f.Gain,
		GainPct:       f.GainPct,
		AvgCost:       r.AvgCost,

		MinPrice:       r.MinPrice,
		MaxPrice:       r.MaxPrice,
		MeanPrice:      r.MeanPrice,
		MedianPrice:    r.MedianPrice,
		BestGainPct:    r.BestGainPct,
		WorstGainPct:   r.WorstGainPct,
		MaxDrawdownPct: r.MaxDrawdownPct,
	}
}

func rowOf(rec dca.LedgerRecord) LedgerRow {
	return LedgerRow{
		Date:          dca.FormatDate(rec.Date),
		Price:         rec.Price,
		CoinBalance:   rec.CoinBalance,
		PositionValue: rec.PositionValue,
		Invested:      rec.Invested,
		Fees:          rec.Fees,
		Bought:        rec.Bought,
		InvestedToday: rec.InvestedToday,
		FeeToday:      rec.FeeToday,
		CoinBought:    rec.CoinBought,
		Gain:          rec.Gain,
		GainPct:       rec.GainPct,
	}
}
