package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rustyeddy/dcasim/backtest"
	"github.com/rustyeddy/dcasim/config"
	"github.com/rustyeddy/dcasim/internal/logger"
	"github.com/rustyeddy/dcasim/internal/sources"
	"github.com/rustyeddy/dcasim/render"
)

// runFlags mirror the config file; only flags set on the command line
// override it.
type runFlags struct {
	coin      string
	balance   float64
	buy       float64
	fee       float64
	start     string
	end       string
	lookback  int
	interval  int
	sample    int
	source    string
	csvPath   string
	fiat      string
	rateLimit string
	noCache   bool
	format    string
	noSummary bool
	header    int
}

func newRunCmd(rc *RootConfig) *cobra.Command {
	def := config.Default()
	f := runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a recurring buy plan and print the daily ledger",
		Long: `Run walks the configured window one sampled day at a time, buying on every
purchase day, and prints one ledger row per day followed by a summary.

With no flags and no config file it buys 50 USD of ETH every 7 days, paying
a 1.99 fee, over the last 270 days.

Examples:
  dcasim run
  dcasim run --coin BTC --buy 100 --fee 0 --interval 14 --start 2023-01-01 --end 2023-12-31
  dcasim run --source csv --csv prices.csv --format csv > ledger.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd.Flags(), rc.Config)
			return runSimulation(cmd, rc)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.coin, "coin", "c", def.Strategy.Coin, "Coin symbol")
	fs.Float64Var(&f.balance, "balance", def.Strategy.StartingBalance, "Coin units held before the first purchase")
	fs.Float64VarP(&f.buy, "buy", "b", def.Strategy.BuyAmount, "Fiat spent per purchase, fee included")
	fs.Float64Var(&f.fee, "fee", def.Strategy.Fee, "Flat fee per purchase")
	fs.StringVar(&f.start, "start", "", "First day, YYYY-MM-DD (default: end minus --days)")
	fs.StringVar(&f.end, "end", "", "Last day, YYYY-MM-DD (default: today)")
	fs.IntVar(&f.lookback, "days", config.DefaultLookbackDays, "Window length when --start is not given")
	fs.IntVarP(&f.interval, "interval", "i", def.Strategy.IntervalDays, "Days between purchases")
	fs.IntVar(&f.sample, "sample", 1, "Days between ledger rows")
	fs.StringVar(&f.source, "source", def.Source.Type, "Price source: coinbase|csv")
	fs.StringVar(&f.csvPath, "csv", "", "Price CSV (date,coin,price) for --source csv")
	fs.StringVar(&f.fiat, "fiat", def.Source.Fiat, "Quote currency")
	fs.StringVar(&f.rateLimit, "rate-limit", def.Source.RateLimit, "Minimum spacing between uncached lookups")
	fs.BoolVar(&f.noCache, "no-cache", false, "Bypass the local price cache")
	fs.StringVarP(&f.format, "format", "f", def.Output.Format, "Output: table|csv|none")
	fs.BoolVar(&f.noSummary, "no-summary", false, "Skip the run summary")
	fs.IntVar(&f.header, "header-every", def.Output.HeaderEvery, "Repeat the table header every N rows (0: once)")

	return cmd
}

func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	s := &cfg.Strategy
	if fs.Changed("coin") {
		s.Coin = f.coin
	}
	if fs.Changed("balance") {
		s.StartingBalance = f.balance
	}
	if fs.Changed("buy") {
		s.BuyAmount = f.buy
	}
	if fs.Changed("fee") {
		s.Fee = f.fee
	}
	if fs.Changed("start") {
		s.Start = f.start
	}
	if fs.Changed("end") {
		s.End = f.end
	}
	if fs.Changed("days") {
		s.LookbackDays = f.lookback
	}
	if fs.Changed("interval") {
		s.IntervalDays = f.interval
	}
	if fs.Changed("sample") {
		s.SampleDays = f.sample
	}

	src := &cfg.Source
	if fs.Changed("source") {
		src.Type = f.source
	}
	if fs.Changed("csv") {
		src.CSVPath = f.csvPath
		if !fs.Changed("source") {
			src.Type = "csv"
		}
	}
	if fs.Changed("fiat") {
		src.Fiat = f.fiat
	}
	if fs.Changed("rate-limit") {
		src.RateLimit = f.rateLimit
	}
	if f.noCache {
		src.Cache.Enabled = false
	}

	out := &cfg.Output
	if fs.Changed("format") {
		out.Format = f.format
	}
	if f.noSummary {
		out.Summary = false
	}
	if fs.Changed("header-every") {
		out.HeaderEvery = f.header
	}
}

func runSimulation(cmd *cobra.Command, rc *RootConfig) error {
	cfg := rc.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	strategy, err := cfg.Strategy.Resolve(time.Now())
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()
	log := logger.FromContext(ctx)

	st, err := sources.Open(cfg.Source, log, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	stdout := cmd.OutOrStdout()
	sink, err := render.New(format, stdout, render.TableOptions{
		HeaderEvery: cfg.Output.HeaderEvery,
		NoColor:     rc.NoColor || color.NoColor,
	})
	if err != nil {
		return err
	}
	var sinks []backtest.Sink
	if sink != nil {
		sinks = append(sinks, sink)
	}

	runner := &backtest.Runner{Source: st.Source, Strategy: strategy}
	res, runErr := runner.Run(ctx, sinks...)

	if cfg.Output.Summary && res.Rows > 0 {
		// Keep stdout parseable when it carries CSV.
		var w io.Writer = stdout
		if format == render.FormatCSV {
			w = cmd.ErrOrStderr()
		}
		fmt.Fprintln(w)
		backtest.PrintResult(w, res, st.Fiat)
	}

	if runErr != nil {
		return fmt.Errorf("simulation stopped after %d rows: %w", res.Rows, runErr)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
