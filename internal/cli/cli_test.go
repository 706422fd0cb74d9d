package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/dcasim/internal/logger"
	"github.com/rustyeddy/dcasim/pricing/cache"
)

const weekCSV = `date,coin,price
2024-01-01,ETH,100
2024-01-02,ETH,120
2024-01-03,ETH,80
2024-01-04,ETH,90
2024-01-05,ETH,110
2024-01-06,ETH,100
2024-01-07,ETH,100
2024-01-08,ETH,100
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dcasim dev\n", out)
}

func TestRun_CSVOutput(t *testing.T) {
	prices := writeFile(t, "prices.csv", weekCSV)

	out, errOut, err := execute(t, "run",
		"--csv", prices,
		"--start", "2024-01-01", "--end", "2024-01-08",
		"--buy", "50", "--fee", "2",
		"--format", "csv",
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[0], "date,coin,price"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-01,ETH,100,"))

	// The summary goes to stderr so stdout stays valid CSV.
	assert.Contains(t, errOut, "DCA Simulation Result")
	assert.Contains(t, errOut, "Buys:          2")
}

func TestRun_Table(t *testing.T) {
	prices := writeFile(t, "prices.csv", weekCSV)

	out, _, err := execute(t, "--no-color", "run",
		"--source", "csv", "--csv", prices,
		"--start", "2024-01-01", "--end", "2024-01-08",
		"--fee", "2",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "2024-01-01 Mon")
	assert.Contains(t, out, "2024-01-08 Mon")
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Invested:      100.00 USD")
	assert.Contains(t, out, "Value:         96.00 USD")
}

func TestRun_ConfigFileAndOverrides(t *testing.T) {
	prices := writeFile(t, "prices.csv", weekCSV)
	cfgPath := writeFile(t, "dca.yaml", `
strategy:
  coin: eth
  buy_amount: 50
  fee: 2
  start: "2024-01-01"
  end: "2024-01-08"
  interval_days: 1
source:
  type: csv
  fiat: USD
  csv_path: `+prices+`
output:
  format: none
  summary: true
`)

	out, _, err := execute(t, "--config", cfgPath, "run", "--interval", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Buys:          2")
	assert.NotContains(t, out, "2024-01-01 Mon")
}

func TestRun_MissingPrice(t *testing.T) {
	prices := writeFile(t, "prices.csv", weekCSV)

	out, _, err := execute(t, "run",
		"--csv", prices,
		"--start", "2024-01-05", "--end", "2024-01-10",
		"--format", "none",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulation stopped after 4 rows")
	assert.Contains(t, err.Error(), "2024-01-09")
	// Partial summary still printed.
	assert.Contains(t, out, "Rows:          4")
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero interval", []string{"run", "--interval", "0", "--no-cache"}},
		{"bad format", []string{"run", "--format", "xml", "--no-cache"}},
		{"bad date", []string{"run", "--start", "yesterday", "--no-cache"}},
		{"csv without path", []string{"run", "--source", "csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dca.yaml")

	out, _, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	require.FileExists(t, path)

	out, _, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration valid")
	assert.Contains(t, out, "50.00 USD of ETH every 7 day(s), fee 1.99")

	out, _, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "coin: ETH")
	assert.Contains(t, out, "type: coinbase")
}

func TestConfigValidate_Invalid(t *testing.T) {
	path := writeFile(t, "bad.yaml", "strategy:\n  interval_days: 0\n")

	_, _, err := execute(t, "config", "validate", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestCacheCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "prices.sqlite")

	store, err := cache.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Put(ctx, cache.Entry{Key: cache.Key{Source: "coinbase:USD", Coin: "ETH", Date: day}, Price: 1, FetchedAt: old}))
	require.NoError(t, store.Put(ctx, cache.Entry{Key: cache.Key{Source: "coinbase:USD", Coin: "BTC", Date: day}, Price: 2, FetchedAt: time.Now()}))
	require.NoError(t, store.Close())

	out, _, err := execute(t, "--cache", dbPath, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:  2")
	assert.Contains(t, out, dbPath)

	out, _, err = execute(t, "--cache", dbPath, "cache", "purge", "--older-than", "24h")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 entries")

	out, _, err = execute(t, "--cache", dbPath, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 entries")

	_, _, err = execute(t, "--cache", dbPath, "cache", "purge", "--older-than", "0s")
	assert.Error(t, err)
}

func TestSetupStoresLoggerOnContext(t *testing.T) {
	cmd := &cobra.Command{Use: "setup"}
	cmd.SetContext(context.Background())

	rc := &RootConfig{LogLevel: "info"}
	require.NoError(t, rc.setup(cmd))

	require.NotNil(t, rc.Log)
	assert.Same(t, rc.Log, logger.FromContext(cmd.Context()))
	assert.Equal(t, "ETH", rc.Config.Strategy.Coin)
}
