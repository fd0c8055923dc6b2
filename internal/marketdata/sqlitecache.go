package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Provider = (*SQLiteCache)(nil)

// SQLiteCache decorates a Provider with an on-disk cache of daily bars, so
// repeated backtest runs over the same range do not refetch history. Only
// price bars are cached; the other calls pass through.
type SQLiteCache struct {
	inner Provider
	db    *sql.DB
	log   zerolog.Logger
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS bars (
	ticker TEXT NOT NULL,
	date   TEXT NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (ticker, date)
);
CREATE TABLE IF NOT EXISTS spans (
	ticker     TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL
);
`

// NewSQLiteCache opens (or creates) the cache database at path and wraps inner.
func NewSQLiteCache(path string, inner Provider, log zerolog.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open price cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init price cache schema: %w", err)
	}
	return &SQLiteCache{inner: inner, db: db, log: log}, nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error { return c.db.Close() }

// Name reports the wrapped provider's identifier.
func (c *SQLiteCache) Name() string { return c.inner.Name() }

// Prices serves bars from the cache when a previously fetched span covers
// the requested range, otherwise delegates to the wrapped provider and
// stores the result.
func (c *SQLiteCache) Prices(ctx context.Context, ticker string, start, end time.Time) ([]Price, error) {
	startDay := Day(start).Format("2006-01-02")
	endDay := Day(end).Format("2006-01-02")

	covered, err := c.spanCovered(ctx, ticker, startDay, endDay)
	if err != nil {
		return nil, err
	}
	if covered {
		return c.readBars(ctx, ticker, startDay, endDay)
	}

	bars, err := c.inner.Prices(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if err := c.storeBars(ctx, ticker, startDay, endDay, bars); err != nil {
		// Caching is best effort; the fetched bars are still good.
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("price cache write failed")
	}
	return bars, nil
}

// LineItems passes through to the wrapped provider.
func (c *SQLiteCache) LineItems(ctx context.Context, ticker string, items []string, period string, end time.Time, limit int) ([]LineItem, error) {
	return c.inner.LineItems(ctx, ticker, items, period, end, limit)
}

// News passes through to the wrapped provider.
func (c *SQLiteCache) News(ctx context.Context, ticker string, end time.Time, limit int) ([]NewsItem, error) {
	return c.inner.News(ctx, ticker, end, limit)
}

// InsiderTrades passes through to the wrapped provider.
func (c *SQLiteCache) InsiderTrades(ctx context.Context, ticker string, end time.Time, limit int) ([]InsiderTrade, error) {
	return c.inner.InsiderTrades(ctx, ticker, end, limit)
}

func (c *SQLiteCache) spanCovered(ctx context.Context, ticker, start, end string) (bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM spans WHERE ticker = ? AND start_date <= ? AND end_date >= ?`,
		ticker, start, end)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("query cache spans: %w", err)
	}
	return n > 0, nil
}

func (c *SQLiteCache) readBars(ctx context.Context, ticker, start, end string) ([]Price, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT date, open, high, low, close, volume FROM bars
		 WHERE ticker = ? AND date >= ? AND date <= ? ORDER BY date`,
		ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("read cached bars: %w", err)
	}
	defer rows.Close()

	var out []Price
	for rows.Next() {
		var dateStr string
		var p Price
		if err := rows.Scan(&dateStr, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan cached bar: %w", err)
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		p.Date = date
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *SQLiteCache) storeBars(ctx context.Context, ticker, start, end string, bars []Price) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range bars {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO bars (ticker, date, open, high, low, close, volume)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ticker, Day(b.Date).Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return err
		}
	}
	// Coalesce with any overlapping spans so the table stays one row per
	// contiguous cached range. Widening can reach further spans, so merge
	// until the bounds are stable.
	for {
		row := tx.QueryRowContext(ctx,
			`SELECT MIN(start_date), MAX(end_date) FROM spans
			 WHERE ticker = ? AND start_date <= ? AND end_date >= ?`,
			ticker, end, start)
		var minStart, maxEnd sql.NullString
		if err := row.Scan(&minStart, &maxEnd); err != nil {
			return err
		}
		if !minStart.Valid {
			break
		}
		grown := false
		if minStart.String < start {
			start, grown = minStart.String, true
		}
		if maxEnd.String > end {
			end, grown = maxEnd.String, true
		}
		if !grown {
			break
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM spans WHERE ticker = ? AND start_date <= ? AND end_date >= ?`,
		ticker, end, start); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO spans (ticker, start_date, end_date) VALUES (?, ?, ?)`,
		ticker, start, end); err != nil {
		return err
	}
	return tx.Commit()
}
