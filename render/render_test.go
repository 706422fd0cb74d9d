package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/dcasim/dca"
)

func ledger(t *testing.T, prices ...float64) []dca.LedgerRecord {
	t.Helper()
	start := dca.Date(2024, 1, 1)
	cfg := dca.StrategyConfig{
		Coin:         "ETH",
		BuyAmount:    50,
		Fee:          2,
		Start:        start,
		End:          dca.AddDays(start, len(prices)-1),
		IntervalDays: 7,
	}
	pts := make([]dca.DatedPrice, len(prices))
	for i, p := range prices {
		pts[i] = dca.DatedPrice{Date: dca.AddDays(start, i), Price: p}
	}
	sim, err := dca.NewSimulation(cfg, dca.NewSliceFeed(pts...))
	require.NoError(t, err)
	recs, err := sim.Collect()
	require.NoError(t, err)
	return recs
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{" CSV ", FormatCSV, false},
		{"none", FormatNone, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	s, err := New(FormatTable, &buf, TableOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Table{}, s)

	s, err = New(FormatCSV, &buf, TableOptions{})
	require.NoError(t, err)
	assert.IsType(t, &CSV{}, s)

	s, err = New(FormatNone, &buf, TableOptions{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = New("bogus", &buf, TableOptions{})
	assert.Error(t, err)
}

func TestTable_PlainRows(t *testing.T) {
	recs := ledger(t, 100, 120, 80, 90, 110, 100, 100, 100)

	var buf bytes.Buffer
	tbl := NewTable(&buf, TableOptions{NoColor: true})
	for _, r := range recs {
		require.NoError(t, tbl.Record(r))
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1+len(recs), "one header and one line per record")

	assert.True(t, strings.HasPrefix(lines[0], "ETH"))
	assert.Contains(t, lines[0], "Invested")
	assert.NotContains(t, lines[0], "\x1b[", "no escape codes with NoColor")

	// First row is a buy.
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-01 Mon"))
	cols := strings.Split(lines[1], "|")
	require.GreaterOrEqual(t, len(cols), 5)
	assert.Equal(t, "50", strings.TrimSpace(cols[3]))
	assert.Equal(t, "2.00", strings.TrimSpace(cols[4]))

	// Non-buy rows leave invested and fees blank.
	cols = strings.Split(lines[2], "|")
	require.GreaterOrEqual(t, len(cols), 5)
	assert.Equal(t, "", strings.TrimSpace(cols[3]))
	assert.Equal(t, "", strings.TrimSpace(cols[4]))

	// Second buy shows the balance breakdown.
	assert.Contains(t, lines[8], "= 0.480000 + 0.480000")
	assert.Contains(t, lines[8], "$96.00 = 48.00 + 48.00")
}

func TestTable_HeaderRepeats(t *testing.T) {
	recs := ledger(t, 1, 2, 3, 4, 5, 6, 7)

	var buf bytes.Buffer
	tbl := NewTable(&buf, TableOptions{HeaderEvery: 3, NoColor: true})
	for _, r := range recs {
		require.NoError(t, tbl.Record(r))
	}

	// Headers before rows 0, 3 and 6.
	assert.Equal(t, 3, strings.Count(buf.String(), "Coin Amount"))
}

func TestTable_Colors(t *testing.T) {
	recs := ledger(t, 100, 90, 120)

	var buf bytes.Buffer
	tbl := NewTable(&buf, TableOptions{})
	for _, r := range recs {
		require.NoError(t, tbl.Record(r))
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	// 100 -> 90: price drops and the position sits below invested.
	assert.Regexp(t, `\x1b\[31m\s*90\.00`, lines[2])
	// 90 -> 120: price rises.
	assert.Regexp(t, `\x1b\[32m\s*120\.00`, lines[3])
}

func TestTable_GroupsThousands(t *testing.T) {
	recs := ledger(t, 2500)

	var buf bytes.Buffer
	require.NoError(t, NewTable(&buf, TableOptions{NoColor: true}).Record(recs[0]))
	assert.Contains(t, buf.String(), "2,500.00")
}

func TestCSV(t *testing.T) {
	recs := ledger(t, 100, 120, 80)

	var buf bytes.Buffer
	w := NewCSV(&buf)
	for _, r := range recs {
		require.NoError(t, w.Record(r))
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "date,coin,price,coin_balance"))

	var rows []csvRow
	require.NoError(t, gocsv.UnmarshalString(buf.String(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.True(t, rows[0].Bought)
	assert.InDelta(t, 0.48, rows[0].CoinBalance, 1e-12)
	assert.False(t, rows[1].Bought)
	assert.InDelta(t, 57.6, rows[1].PositionValue, 1e-9)
	assert.InDelta(t, -23.2, rows[2].GainPct, 1e-9)
}

func TestTable_ZeroAmountsLeaveColumnsBlank(t *testing.T) {
	start := dca.Date(2024, 1, 1)
	cfg := dca.StrategyConfig{
		Coin:            "ETH",
		StartingBalance: 1,
		BuyAmount:       50,
		Start:           start,
		End:             dca.AddDays(start, 1),
		IntervalDays:    1,
	}
	freePlan, err := dca.NewSimulation(cfg, dca.NewSliceFeed(
		dca.DatedPrice{Date: start, Price: 100},
		dca.DatedPrice{Date: dca.AddDays(start, 1), Price: 100},
	))
	require.NoError(t, err)
	recs, err := freePlan.Collect()
	require.NoError(t, err)

	cfg.BuyAmount, cfg.Fee = 0, 0
	idle, err := dca.NewSimulation(cfg, dca.NewSliceFeed(dca.DatedPrice{Date: start, Price: 100}))
	require.NoError(t, err)
	idleRecs, err := idle.Collect()
	require.NoError(t, err)
	recs = append(recs, idleRecs...)

	var buf bytes.Buffer
	tbl := NewTable(&buf, TableOptions{NoColor: true})
	for _, r := range recs {
		require.True(t, r.Bought)
		require.NoError(t, tbl.Record(r))
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	// Purchase without a fee: invested shown, fees blank.
	for _, line := range lines[1:3] {
		cols := strings.Split(line, "|")
		require.GreaterOrEqual(t, len(cols), 5)
		assert.NotEmpty(t, strings.TrimSpace(cols[3]))
		assert.Equal(t, "", strings.TrimSpace(cols[4]))
	}

	// Zero-amount purchase: both blank.
	cols := strings.Split(lines[3], "|")
	require.GreaterOrEqual(t, len(cols), 5)
	assert.Equal(t, "", strings.TrimSpace(cols[3]))
	assert.Equal(t, "", strings.TrimSpace(cols[4]))
}
