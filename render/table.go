package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rustyeddy/dcasim/dca"
)

// DefaultHeaderEvery repeats the header so long runs stay readable.
const DefaultHeaderEvery = 25

type TableOptions struct {
	HeaderEvery int // 0 prints the header once
	NoColor     bool
}

// Table renders one line per ledger record. Each row is colored against the
// previous one only, so it works on an unbounded stream.
type Table struct {
	w    io.Writer
	opts TableOptions
	p    *message.Printer

	rows int
	last dca.LedgerRecord

	header *color.Color
	red    *color.Color
	green  *color.Color
}

func NewTable(w io.Writer, opts TableOptions) *Table {
	t := &Table{
		w:      w,
		opts:   opts,
		p:      message.NewPrinter(language.English),
		header: color.New(color.FgWhite, color.BgBlue, color.Bold),
		red:    color.New(color.FgRed),
		green:  color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{t.header, t.red, t.green} {
		if opts.NoColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return t
}

func (t *Table) Record(r dca.LedgerRecord) error {
	if t.rows == 0 || (t.opts.HeaderEvery > 0 && t.rows%t.opts.HeaderEvery == 0) {
		if _, err := fmt.Fprintln(t.w, t.headerLine(r.Coin)); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(t.w, t.line(r)); err != nil {
		return err
	}
	t.last = r
	t.rows++
	return nil
}

func (t *Table) headerLine(coin string) string {
	h := fmt.Sprintf("%-15s|%10s |%10s |%10s |%10s |%10s |%10s |%-34s| %-34s",
		coin, "Price", "Balance", "Invested", "Fees", "Gain", "Gain(%)", " Coin Amount", "Coin Value")
	return t.header.Sprint(h)
}

func (t *Table) line(r dca.LedgerRecord) string {
	hasLast := t.rows > 0
	priceDown := hasLast && t.last.Price > r.Price

	price := t.pick(priceDown).Sprint(t.p.Sprintf("%10.2f", r.Price))
	balance := t.pick(r.Invested > r.PositionValue).Sprint(t.p.Sprintf("%10.2f", r.PositionValue))

	invested := fmt.Sprintf("%10s", "")
	fees := fmt.Sprintf("%10s", "")
	if r.InvestedToday != 0 {
		invested = t.p.Sprintf("%10.0f", r.Invested)
	}
	if r.FeeToday != 0 {
		fees = t.red.Sprint(t.p.Sprintf("%10.2f", r.Fees))
	}

	gain := t.pick(r.Gain < 0).Sprintf("%10.2f", r.Gain)
	gainPct := t.pick(r.GainPct < 0).Sprintf("%9.0f%%", r.GainPct)
	value := t.pick(priceDown).Sprint(t.p.Sprintf("$%.2f", r.CoinBalance*r.Price))

	amount := fmt.Sprintf("%23s", "")
	breakdown := ""
	if hasLast && r.CoinBought != 0 {
		amount = fmt.Sprintf(" = %.6f + %.6f", t.last.CoinBalance, r.CoinBought)
		breakdown = t.p.Sprintf(" = %.2f + %.2f", t.last.CoinBalance*r.Price, r.CoinBought*r.Price)
	}

	return fmt.Sprintf("%s |%s |%s |%s |%s |%s |%s | %.6f%s | %s%s",
		r.Date.Format("2006-01-02 Mon"),
		price, balance, invested, fees, gain, gainPct,
		r.CoinBalance, amount,
		value, breakdown,
	)
}

func (t *Table) pick(bad bool) *color.Color {
	if bad {
		return t.red
	}
	return t.green
}
