package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/dcasim/pricing"
)

const (
	// DefaultBaseURL is the public Coinbase API host.
	DefaultBaseURL = "https://api.coinbase.com"
	// DefaultFiat is the quote currency used when none is configured.
	DefaultFiat = "USD"
)

// Client fetches historical spot prices from the Coinbase v2 API.
// It needs no credentials.
type Client struct {
	baseURL    string
	fiat       string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// NewClient creates a client. Empty baseURL or fiat fall back to the defaults.
func NewClient(baseURL, fiat string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if fiat == "" {
		fiat = DefaultFiat
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fiat:    strings.ToUpper(fiat),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: zap.NewNop().Sugar(),
	}
}

// WithLogger sets the logger used for request tracing.
func (c *Client) WithLogger(log *zap.SugaredLogger) *Client {
	if log != nil {
		c.log = log
	}
	return c
}

func (c *Client) Fiat() string { return c.fiat }

// APIError is a non-200 answer from Coinbase.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("coinbase: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("coinbase: %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 answers onto pricing.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return pricing.ErrNotFound
	}
	return nil
}

// spotResponse is the body of GET /v2/prices/{pair}/spot.
type spotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Price returns the spot price of coin in the client's fiat on date.
func (c *Client) Price(ctx context.Context, coin string, date time.Time) (float64, error) {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return 0, fmt.Errorf("coin is required")
	}
	if date.IsZero() {
		return 0, fmt.Errorf("date is required")
	}

	params := url.Values{}
	params.Set("currency", c.fiat)
	params.Set("date", date.Format("2006-01-02"))
	apiURL := fmt.Sprintf("%s/v2/prices/%s-%s/spot?%s", c.baseURL, url.PathEscape(coin), c.fiat, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debugw("coinbase spot",
		"coin", coin,
		"date", date.Format("2006-01-02"),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK {
		return 0, c.apiError(resp)
	}

	var spot spotResponse
	if err := json.NewDecoder(resp.Body).Decode(&spot); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if spot.Data.Amount == "" {
		return 0, fmt.Errorf("coinbase: empty amount for %s-%s on %s: %w", coin, c.fiat, date.Format("2006-01-02"), pricing.ErrNotFound)
	}

	amount, err := decimal.NewFromString(spot.Data.Amount)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", spot.Data.Amount, err)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("coinbase: non-positive amount %s for %s on %s", amount, coin, date.Format("2006-01-02"))
	}
	return amount.InexactFloat64(), nil
}

func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       "API_ERROR",
		Message:    strings.TrimSpace(string(body)),
	}

	var er errorResponse
	if json.Unmarshal(body, &er) == nil && len(er.Errors) > 0 {
		apiErr.Code = er.Errors[0].ID
		apiErr.Message = er.Errors[0].Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = resp.Header.Get("Retry-After")
	}

	c.log.Warnw("coinbase error", "status", resp.StatusCode, "code", apiErr.Code, "message", apiErr.Message)
	return apiErr
}
