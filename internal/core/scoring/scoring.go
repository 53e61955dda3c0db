package scoring

import (
	"github.com/shopspring/decimal"
)

// Weights is the named weight table behind the popularity score. All weights
// are decimal to keep the formula exact before the final 2dp rounding.
//
// Rationale for the standard profile: clicks are the strongest intent signal
// ("I want to use this tool"), shares the next ("worth recommending"), dwell
// time signals deliberate evaluation, and raw views are the weakest signal.
type Weights struct {
	Click        decimal.Decimal `yaml:"click"`
	Share        decimal.Decimal `yaml:"share"`
	DurationUnit decimal.Decimal `yaml:"duration_unit"` // applied per 10s of average dwell
	View         decimal.Decimal `yaml:"view"`
}

// Standard is the canonical click-inclusive weight table:
// score = clicks*5.0 + shares*2.0 + (avg_duration/10)*0.5 + views*0.3
func Standard() Weights {
	return Weights{
		Click:        decimal.NewFromFloat(5.0),
		Share:        decimal.NewFromFloat(2.0),
		DurationUnit: decimal.NewFromFloat(0.5),
		View:         decimal.NewFromFloat(0.3),
	}
}

// Legacy is the earlier click-exclusive variant kept for comparison runs:
// score = views*0.5 + (avg_duration/10)*0.3 + shares*2.0
func Legacy() Weights {
	return Weights{
		Click:        decimal.Zero,
		Share:        decimal.NewFromFloat(2.0),
		DurationUnit: decimal.NewFromFloat(0.3),
		View:         decimal.NewFromFloat(0.5),
	}
}

var ten = decimal.NewFromInt(10)

// Score computes the weighted popularity score for one tool's window counters,
// rounded to 2 decimal places. Pure and deterministic: no I/O, no clock.
func (w Weights) Score(views, clicks, shares int, avgDurationSeconds float64) float64 {
	score := decimal.NewFromInt(int64(clicks)).Mul(w.Click).
		Add(decimal.NewFromInt(int64(shares)).Mul(w.Share)).
		Add(decimal.NewFromFloat(avgDurationSeconds).Div(ten).Mul(w.DurationUnit)).
		Add(decimal.NewFromInt(int64(views)).Mul(w.View))

	f, _ := score.Round(2).Float64()
	return f
}
