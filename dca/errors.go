package dca

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig is wrapped by every StrategyConfig validation failure.
	ErrInvalidConfig = errors.New("invalid strategy config")

	// ErrNumericAnomaly is returned when a price is NaN, infinite or not positive.
	ErrNumericAnomaly = errors.New("numeric anomaly")

	// ErrLookup matches any *LookupError with errors.Is.
	ErrLookup = errors.New("price lookup failed")
)

// LookupError reports a price source failure for one coin/date pair.
type LookupError struct {
	Coin string
	Date time.Time
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s on %s: %v", e.Coin, FormatDate(e.Date), e.Err)
}

func (e *LookupError) Unwrap() []error {
	return []error{ErrLookup, e.Err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
