package backtest

import (
	"math"
	"time"
)

// tradingDaysPerYear is the annualization base for returns and Sharpe.
const tradingDaysPerYear = 252

// DailyValue is one end-of-day mark of the portfolio.
type DailyValue struct {
	Date          time.Time `json:"date"`
	Cash          float64   `json:"cash"`
	Equity        float64   `json:"equity"`
	LongExposure  float64   `json:"long_exposure"`
	ShortExposure float64   `json:"short_exposure"`
	GrossExposure float64   `json:"gross_exposure"`
	NetExposure   float64   `json:"net_exposure"`
}

// Summary holds the performance statistics of a completed run.
type Summary struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	TradingDays      int     `json:"trading_days"`
	FinalEquity      float64 `json:"final_equity"`
}

// Summarize computes performance statistics from the daily equity series.
// An empty series yields a zero Summary.
func Summarize(initialCash float64, series []DailyValue) Summary {
	if len(series) == 0 || initialCash <= 0 {
		return Summary{}
	}

	final := series[len(series)-1].Equity
	s := Summary{
		TotalReturn: final/initialCash - 1,
		TradingDays: len(series),
		FinalEquity: final,
	}

	years := float64(len(series)) / tradingDaysPerYear
	if years > 0 && final > 0 {
		s.AnnualizedReturn = math.Pow(final/initialCash, 1/years) - 1
	}

	returns := make([]float64, 0, len(series))
	prev := initialCash
	for _, dv := range series {
		if prev > 0 {
			returns = append(returns, dv.Equity/prev-1)
		}
		prev = dv.Equity
	}
	if len(returns) >= 2 {
		var mean float64
		for _, r := range returns {
			mean += r
		}
		mean /= float64(len(returns))
		var variance float64
		for _, r := range returns {
			d := r - mean
			variance += d * d
		}
		variance /= float64(len(returns) - 1)
		if std := math.Sqrt(variance); std > 0 {
			s.SharpeRatio = mean / std * math.Sqrt(tradingDaysPerYear)
		}
	}

	peak := initialCash
	for _, dv := range series {
		if dv.Equity > peak {
			peak = dv.Equity
		}
		if peak > 0 {
			if dd := 1 - dv.Equity/peak; dd > s.MaxDrawdown {
				s.MaxDrawdown = dd
			}
		}
	}
	return s
}
