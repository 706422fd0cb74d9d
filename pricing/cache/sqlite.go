package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dateLayout = "2006-01-02"

// Key identifies one cached price. Source separates upstreams and quote
// currencies, e.g. "coinbase:USD".
type Key struct {
	Source string
	Coin   string
	Date   time.Time
}

type Entry struct {
	Key
	Price     float64
	FetchedAt time.Time
}

type Stats struct {
	Entries int
	Coins   []string
	Oldest  time.Time
	Newest  time.Time
}

// Store is an on-disk price cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns <user cache dir>/dcasim/prices.sqlite.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "dcasim", "prices.sqlite")
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time avoids "database is locked" under the API server
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context, k Key) (Entry, bool, error) {
	var (
		price     float64
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT price, fetched_at FROM prices
		WHERE source = ? AND coin = ? AND date = ?`,
		k.Source, normCoin(k.Coin), k.Date.Format(dateLayout),
	).Scan(&price, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Key: k, Price: price, FetchedAt: time.Unix(fetchedAt, 0).UTC()}, true, nil
}

func (s *Store) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prices (source, coin, date, price, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source, coin, date) DO UPDATE SET
			price = excluded.price,
			fetched_at = excluded.fetched_at`,
		e.Source, normCoin(e.Coin), e.Date.Format(dateLayout), e.Price, e.FetchedAt.Unix(),
	)
	return err
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		st             Stats
		oldest, newest sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(fetched_at), MAX(fetched_at) FROM prices`).
		Scan(&st.Entries, &oldest, &newest)
	if err != nil {
		return Stats{}, err
	}
	if oldest.Valid {
		st.Oldest = time.Unix(oldest.Int64, 0).UTC()
	}
	if newest.Valid {
		st.Newest = time.Unix(newest.Int64, 0).UTC()
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT coin FROM prices ORDER BY coin`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var coin string
		if err := rows.Scan(&coin); err != nil {
			return Stats{}, err
		}
		st.Coins = append(st.Coins, coin)
	}
	return st, rows.Err()
}

// Clear removes every cached price and returns how many were dropped.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prices`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Purge removes prices fetched before cutoff.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prices WHERE fetched_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func normCoin(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
