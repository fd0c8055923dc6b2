package marketdata

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// countingProvider wraps a Provider and counts Prices calls.
type countingProvider struct {
	Provider
	calls atomic.Int64
}

func (c *countingProvider) Prices(ctx context.Context, ticker string, start, end time.Time) ([]Price, error) {
	c.calls.Add(1)
	return c.Provider.Prices(ctx, ticker, start, end)
}

func TestSQLiteCacheServesSecondRead(t *testing.T) {
	stub := NewStub()
	stub.SetPrices("AAPL", []Price{
		{Date: day(2024, 1, 2), Open: 100, High: 102, Low: 99, Close: 101, Volume: 500},
		{Date: day(2024, 1, 3), Open: 101, High: 103, Low: 100, Close: 102, Volume: 600},
	})
	inner := &countingProvider{Provider: stub}

	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "bars.db"), inner, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteCache error: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	first, err := cache.Prices(ctx, "AAPL", day(2024, 1, 1), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("first read error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(first))
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", inner.calls.Load())
	}

	second, err := cache.Prices(ctx, "AAPL", day(2024, 1, 1), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("second read error: %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected cached read, upstream calls = %d", inner.calls.Load())
	}
	if len(second) != 2 || second[0].Close != 101 || second[1].Close != 102 {
		t.Fatalf("unexpected cached bars: %+v", second)
	}

	// Narrower sub-range is covered by the recorded span.
	sub, err := cache.Prices(ctx, "AAPL", day(2024, 1, 3), day(2024, 1, 3))
	if err != nil {
		t.Fatalf("sub-range read error: %v", err)
	}
	if inner.calls.Load() != 1 || len(sub) != 1 || sub[0].Close != 102 {
		t.Fatalf("expected cached sub-range, calls=%d bars=%+v", inner.calls.Load(), sub)
	}

	// A wider range is not covered and goes upstream again.
	if _, err := cache.Prices(ctx, "AAPL", day(2023, 12, 1), day(2024, 1, 5)); err != nil {
		t.Fatalf("wide read error: %v", err)
	}
	if inner.calls.Load() != 2 {
		t.Fatalf("expected second upstream call for wider range, got %d", inner.calls.Load())
	}
}

func TestSQLiteCacheCoalescesSpans(t *testing.T) {
	stub := NewStub()
	bars := make([]Price, 0, 31)
	for i := 0; i < 31; i++ {
		bars = append(bars, Price{Date: day(2024, 1, 1+i), Close: 100 + float64(i), Volume: 100})
	}
	stub.SetPrices("AAPL", bars)
	inner := &countingProvider{Provider: stub}

	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "bars.db"), inner, testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteCache error: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	ranges := [][2]time.Time{
		{day(2024, 1, 1), day(2024, 1, 10)},
		{day(2024, 1, 8), day(2024, 1, 20)},  // overlaps the first
		{day(2024, 1, 15), day(2024, 1, 31)}, // overlaps the second
	}
	for _, r := range ranges {
		if _, err := cache.Prices(ctx, "AAPL", r[0], r[1]); err != nil {
			t.Fatalf("read %s..%s error: %v", r[0].Format("2006-01-02"), r[1].Format("2006-01-02"), err)
		}
	}

	var spans int
	if err := cache.db.QueryRow(`SELECT COUNT(1) FROM spans WHERE ticker = ?`, "AAPL").Scan(&spans); err != nil {
		t.Fatalf("count spans: %v", err)
	}
	if spans != 1 {
		t.Fatalf("overlapping fetches should merge into one span, got %d", spans)
	}

	// The merged span covers the whole month, so a full-range read stays local.
	calls := inner.calls.Load()
	full, err := cache.Prices(ctx, "AAPL", day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("full-range read error: %v", err)
	}
	if inner.calls.Load() != calls {
		t.Fatalf("expected merged span to cover full range, upstream calls went %d->%d", calls, inner.calls.Load())
	}
	if len(full) != 31 {
		t.Fatalf("expected 31 cached bars, got %d", len(full))
	}
}
