package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/dcasim/internal/api"
	"github.com/rustyeddy/dcasim/internal/logger"
	"github.com/rustyeddy/dcasim/internal/sources"
	"github.com/rustyeddy/dcasim/pricing"
)

const envAddr = "DCASIM_ADDR"

func newServeCmd(rc *RootConfig) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulations over HTTP",
		Long: `Serve exposes POST /api/v1/simulate, GET /health and GET /metrics.

The request body uses the strategy section of the config file; fields it
leaves out come from the loaded configuration.

Example:
  dcasim serve --addr :8080
  curl -d '{"coin":"BTC","start":"2024-01-01","end":"2024-03-31"}' localhost:8080/api/v1/simulate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v := os.Getenv(envAddr); v != "" && !cmd.Flags().Changed("addr") {
				addr = v
			}

			cfg := rc.Config
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			log := logger.FromContext(commandContext(cmd))
			st, err := sources.Open(cfg.Source, log, pricing.NewMetrics(reg))
			if err != nil {
				return err
			}
			defer st.Close()

			srv := &api.Server{
				Source:   st.Source,
				Fiat:     st.Fiat,
				Defaults: cfg.Strategy,
				Registry: reg,
				Log:      log,
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (env DCASIM_ADDR)")
	return cmd
}
