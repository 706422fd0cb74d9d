// Package render turns ledger records into console output.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/rustyeddy/dcasim/backtest"
)

// Format names an output layout.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatNone  Format = "none"
)

// ParseFormat accepts the names used in config files and flags.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatNone:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, csv or none)", s)
	}
}

// New returns the sink for format, or nil for FormatNone.
func New(format Format, w io.Writer, opts TableOptions) (backtest.Sink, error) {
	switch format {
	case FormatTable:
		return NewTable(w, opts), nil
	case FormatCSV:
		return NewCSV(w), nil
	case FormatNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
