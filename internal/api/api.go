// Package api serves simulations over HTTP.
//
//	GET  /health
//	GET  /metrics
//	POST /api/v1/simulate
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rustyeddy/dcasim/backtest"
	"github.com/rustyeddy/dcasim/config"
	"github.com/rustyeddy/dcasim/dca"
	"github.com/rustyeddy/dcasim/internal/logger"
	"github.com/rustyeddy/dcasim/pricing"
	"github.com/rustyeddy/dcasim/pricing/coinbase"
)

// Server owns the shared price source; every request runs its own simulation.
type Server struct {
	Source   dca.PriceSource
	Fiat     string
	Defaults config.StrategyConfig
	Registry *prometheus.Registry
	Log      *zap.SugaredLogger
	Now      func() time.Time

	requests *prometheus.CounterVec
}

func (s *Server) init() {
	if s.Log == nil {
		s.Log = zap.NewNop().Sugar()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Registry == nil {
		s.Registry = prometheus.NewRegistry()
	}
	if s.requests == nil {
		s.requests = promauto.With(s.Registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "dcasim",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"})
	}
}

// Router builds the gin engine without CORS.
func (s *Server) Router() *gin.Engine {
	s.init()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.logRequests)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/simulate", s.simulate)
	}
	return router
}

// Handler is the router behind a permissive CORS policy.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.Router())
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Log.Infow("api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// logRequests hands each request a logger tagged with its method and path.
func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	log := s.Log.With("method", c.Request.Method, "path", c.Request.URL.Path)
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	s.requests.WithLabelValues(route, fmt.Sprint(status)).Inc()
	log.Debugw("http request",
		"status", status,
		"latency", time.Since(start),
	)
}

// simulate handles POST /api/v1/simulate. The body is a strategy in the
// config file layout; missing fields take the server defaults. ?ledger=false
// leaves out the per-day rows.
func (s *Server) simulate(c *gin.Context) {
	req := s.Defaults
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	strategy, err := req.Resolve(s.Now())
	if err != nil {
		abort(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}

	includeLedger := c.DefaultQuery("ledger", "true") != "false"
	var rows []LedgerRow
	sink := backtest.SinkFunc(func(rec dca.LedgerRecord) error {
		if includeLedger {
			rows = append(rows, rowOf(rec))
		}
		return nil
	})

	runner := &backtest.Runner{Source: s.Source, Strategy: strategy}
	res, err := runner.Run(c.Request.Context(), sink)
	if err != nil {
		s.fail(c, res, err)
		return
	}

	c.JSON(http.StatusOK, SimulateResponse{
		RunID:   res.RunID,
		Status:  "ok",
		Fiat:    s.Fiat,
		Summary: summaryOf(res),
		Ledger:  rows,
	})
}

func (s *Server) fail(c *gin.Context, res backtest.Result, err error) {
	details := map[string]any{"run_id": res.RunID, "rows": res.Rows}

	var lookup *dca.LookupError
	if errors.As(err, &lookup) {
		details["coin"] = lookup.Coin
		details["date"] = dca.FormatDate(lookup.Date)
	}

	var apiErr *coinbase.APIError
	switch {
	case errors.Is(err, dca.ErrInvalidConfig):
		abort(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), details)
	case errors.Is(err, pricing.ErrNotFound):
		abort(c, http.StatusNotFound, "PRICE_NOT_FOUND", err.Error(), details)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests:
		details["retry_after"] = apiErr.RetryAfter
		abort(c, http.StatusTooManyRequests, apiErr.Code, apiErr.Message, details)
	case errors.Is(err, dca.ErrLookup):
		abort(c, http.StatusBadGateway, "LOOKUP_FAILED", err.Error(), details)
	case errors.Is(err, dca.ErrNumericAnomaly):
		abort(c, http.StatusBadGateway, "NUMERIC_ANOMALY", err.Error(), details)
	default:
		logger.FromContext(c.Request.Context()).Errorw("simulation failed", "err", err)
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), details)
	}
}

func abort(c *gin.Context, status int, code, msg string, details map[string]any) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: msg, Details: details},
	})
}
