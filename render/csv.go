package render

import (
	"encoding/csv"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/rustyeddy/dcasim/dca"
)

// csvRow is the flat column layout of the CSV ledger.
type csvRow struct {
	Date          string  `csv:"date"`
	Coin          string  `csv:"coin"`
	Price         float64 `csv:"price"`
	CoinBalance   float64 `csv:"coin_balance"`
	PositionValue float64 `csv:"position_value"`
	Invested      float64 `csv:"invested"`
	Fees          float64 `csv:"fees"`
	Bought        bool    `csv:"bought"`
	InvestedToday float64 `csv:"invested_today"`
	FeeToday      float64 `csv:"fee_today"`
	CoinBought    float64 `csv:"coin_bought"`
	Gain          float64 `csv:"gain"`
	GainPct       float64 `csv:"gain_pct"`
}

// CSV streams ledger records as comma separated rows, header first.
type CSV struct {
	w       *gocsv.SafeCSVWriter
	started bool
}

func NewCSV(w io.Writer) *CSV {
	return &CSV{w: gocsv.NewSafeCSVWriter(csv.NewWriter(w))}
}

func (c *CSV) Record(r dca.LedgerRecord) error {
	rows := []csvRow{{
		Date:          dca.FormatDate(r.Date),
		Coin:          r.Coin,
		Price:         r.Price,
		CoinBalance:   r.CoinBalance,
		PositionValue: r.PositionValue,
		Invested:      r.Invested,
		Fees:          r.Fees,
		Bought:        r.Bought,
		InvestedToday: r.InvestedToday,
		FeeToday:      r.FeeToday,
		CoinBought:    r.CoinBought,
		Gain:          r.Gain,
		GainPct:       r.GainPct,
	}}

	if c.started {
		return gocsv.MarshalCSVWithoutHeaders(&rows, c.w)
	}
	c.started = true
	return gocsv.MarshalCSV(&rows, c.w)
}
