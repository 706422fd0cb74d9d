package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/dcasim/config"
	"github.com/rustyeddy/dcasim/internal/logger"
)

// RootConfig holds the persistent flags and what PersistentPreRunE builds
// from them.
type RootConfig struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	CachePath  string
	NoColor    bool

	Config *config.Config
	Log    *zap.SugaredLogger
}

// setup loads the env file, the logger and the configuration, in that order,
// so the env file can feed both. The logger also rides on cmd's context.
func (rc *RootConfig) setup(cmd *cobra.Command) error {
	if rc.EnvFile != "" {
		if err := godotenv.Load(rc.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	log, err := logger.New(rc.LogLevel)
	if err != nil {
		return err
	}
	rc.Log = log
	cmd.SetContext(logger.WithContext(commandContext(cmd), log))

	cfg := config.Default()
	if rc.ConfigPath != "" {
		cfg, err = config.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return err
		}
	}
	cfg.ApplyEnv()
	if rc.CachePath != "" {
		cfg.Source.Cache.Path = rc.CachePath
	}
	rc.Config = cfg

	rc.Log.Debugw("configuration loaded", "path", rc.ConfigPath, "source", cfg.Source.Type, "coin", cfg.Strategy.Coin)
	return nil
}
