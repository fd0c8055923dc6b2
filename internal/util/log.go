// Package util holds small shared helpers: logging and retry.
package util

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a timestamped zerolog logger at the requested level,
// falling back to info when the level string is not recognised.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}
