// Package csvsource serves prices from a local CSV file, for offline runs
// and reproducible fixtures.
//
// The file needs a header row:
//
//	date,coin,price
//	2024-01-01,ETH,2352.04
//
// date is YYYY-MM-DD. coin may be left empty, in which case the row applies
// to every coin.
package csvsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/rustyeddy/dcasim/pricing"
)

const dateLayout = "2006-01-02"

type row struct {
	Date  string  `csv:"date"`
	Coin  string  `csv:"coin,omitempty"`
	Price float64 `csv:"price"`
}

type key struct {
	coin string
	date string
}

// Source is an immutable in-memory index of a price CSV.
type Source struct {
	prices map[key]float64
}

func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

func Read(r io.Reader) (*Source, error) {
	var rows []row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}

	s := &Source{prices: make(map[key]float64, len(rows))}
	for i, rw := range rows {
		ds := strings.TrimSpace(rw.Date)
		if ds == "" {
			continue
		}
		d, err := time.Parse(dateLayout, ds)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", i+2, rw.Date, err)
		}
		s.prices[key{coin: normCoin(rw.Coin), date: d.Format(dateLayout)}] = rw.Price
	}
	return s, nil
}

func (s *Source) Len() int { return len(s.prices) }

func (s *Source) Price(ctx context.Context, coin string, date time.Time) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ds := date.Format(dateLayout)
	if p, ok := s.prices[key{coin: normCoin(coin), date: ds}]; ok {
		return p, nil
	}
	if p, ok := s.prices[key{date: ds}]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%s on %s: %w", normCoin(coin), ds, pricing.ErrNotFound)
}

func normCoin(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
