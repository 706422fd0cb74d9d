// Package cli implements the dcasim command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "dcasim",
		Short: "Dollar-cost-averaging backtests on historical crypto prices",
		Long: `dcasim replays a recurring crypto purchase plan against daily spot prices
and reports, day by day, what the position is worth against the cash put in.

Prices come from the Coinbase spot API (cached locally) or a CSV file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "dotenv file loaded before anything else")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.CachePath, "cache", "", "Price cache database (default: user cache dir)")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.setup(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if rc.Log != nil {
			_ = rc.Log.Sync()
		}
	}

	cmd.AddCommand(
		newRunCmd(rc),
		newConfigCmd(rc),
		newCacheCmd(rc),
		newServeCmd(rc),
		newVersionCmd(),
	)

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
