// Package sources builds the price source chain described by a config:
// upstream, then metrics, then throttling, with the SQLite cache on top.
package sources

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rustyeddy/dcasim/config"
	"github.com/rustyeddy/dcasim/pricing"
	"github.com/rustyeddy/dcasim/pricing/cache"
	"github.com/rustyeddy/dcasim/pricing/coinbase"
	"github.com/rustyeddy/dcasim/pricing/csvsource"
	"github.com/rustyeddy/dcasim/pricing/throttle"
)

// Stack is an assembled source plus whatever it holds open.
type Stack struct {
	Source pricing.Source
	Name   string
	Fiat   string
	Store  *cache.Store // nil when caching is off
}

// Close releases the cache store, if any.
func (s *Stack) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// Open builds the chain for cfg. m may be nil.
func Open(cfg config.SourceConfig, log *zap.SugaredLogger, m *pricing.Metrics) (*Stack, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	switch cfg.Type {
	case "csv":
		src, err := csvsource.Load(cfg.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("load price csv: %w", err)
		}
		log.Debugw("csv prices loaded", "path", cfg.CSVPath, "rows", src.Len())
		return &Stack{
			Source: pricing.Instrument("csv", src, m),
			Name:   "csv",
			Fiat:   strings.ToUpper(cfg.Fiat),
		}, nil

	case "coinbase", "":
		return openCoinbase(cfg, log, m)

	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func openCoinbase(cfg config.SourceConfig, log *zap.SugaredLogger, m *pricing.Metrics) (*Stack, error) {
	interval, err := cfg.RateInterval()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Cache.TTLDuration()
	if err != nil {
		return nil, err
	}

	client := coinbase.NewClient(cfg.BaseURL, cfg.Fiat).WithLogger(log)
	st := &Stack{
		Name: "coinbase:" + client.Fiat(),
		Fiat: client.Fiat(),
	}

	var src pricing.Source = pricing.Instrument("coinbase", client, m)
	src = throttle.New(src, interval)

	if cfg.Cache.Enabled {
		path := cfg.Cache.Path
		if path == "" {
			path = cache.DefaultPath()
		}
		store, err := cache.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open price cache: %w", err)
		}
		log.Debugw("price cache opened", "path", store.Path(), "ttl", ttl)
		st.Store = store
		src = cache.Wrap(store, st.Name, src, ttl).WithLogger(log).WithMetrics(m)
	}

	st.Source = src
	return st, nil
}
