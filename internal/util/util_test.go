package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	want := errors.New("down")
	err := Retry(context.Background(), 2, time.Millisecond, func() error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected final error %v, got %v", want, err)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 5, time.Minute, func() error { return errors.New("transient") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
