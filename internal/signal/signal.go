// Package signal standardizes the record every analyst emits for the decision layer.
package signal

import (
	"fmt"
	"time"
)

// Stance is the directional call an analyst makes on a ticker.
type Stance string

const (
	// Bullish favors long exposure.
	Bullish Stance = "bullish"
	// Bearish favors short exposure.
	Bearish Stance = "bearish"
	// Neutral carries no directional preference.
	Neutral Stance = "neutral"
)

// Signal expresses one analyst's view of one ticker on one date.
type Signal struct {
	Ticker     string    `json:"ticker"`
	Stance     Stance    `json:"stance"`
	Confidence float64   `json:"confidence"` // 0..100
	Rationale  string    `json:"rationale"`
	Analyst    string    `json:"analyst"`
	Date       time.Time `json:"date"`
}

// NoOpinion builds the neutral zero-confidence record used when an analyst
// declines to evaluate, errors out, or times out.
func NoOpinion(ticker, analyst string, date time.Time) Signal {
	return Signal{
		Ticker:     ticker,
		Stance:     Neutral,
		Confidence: 0,
		Rationale:  "no opinion",
		Analyst:    analyst,
		Date:       date,
	}
}

// Validate checks the record for structural violations.
func (s Signal) Validate() error {
	if s.Ticker == "" {
		return fmt.Errorf("signal missing ticker")
	}
	switch s.Stance {
	case Bullish, Bearish, Neutral:
	default:
		return fmt.Errorf("unknown stance %q", s.Stance)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return fmt.Errorf("confidence %.2f out of range [0,100]", s.Confidence)
	}
	return nil
}
