package analyst

import "strings"

// Params expresses tunable knobs required by analyst constructors.
type Params struct {
	MomentumLookback    int
	MomentumThreshold   float64
	MeanRevWindow       int
	MeanRevZEntry       float64
	FundamentalsMargin  float64
	FundamentalsGrowth  float64
	ValuationYieldFloor float64
	SentimentNewsWeight float64
	SentimentInsiderWgt float64
}

// Build returns a registry holding the requested analysts. Unknown names are
// skipped; an empty list enables everything.
func Build(enabled []string, params Params) *Registry {
	if len(enabled) == 0 {
		enabled = []string{"momentum", "mean_reversion", "fundamentals", "valuation", "sentiment"}
	}
	r := NewRegistry()
	for _, name := range enabled {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "momentum":
			r.Register(NewMomentum(params.MomentumLookback, params.MomentumThreshold))
		case "mean_reversion", "meanrev":
			r.Register(NewMeanReversion(params.MeanRevWindow, params.MeanRevZEntry))
		case "fundamentals":
			r.Register(NewFundamentals(params.FundamentalsMargin, params.FundamentalsGrowth))
		case "valuation":
			r.Register(NewValuation(params.ValuationYieldFloor))
		case "sentiment":
			r.Register(NewSentiment(params.SentimentNewsWeight, params.SentimentInsiderWgt))
		}
	}
	return r
}
