// Package interval provides confidence intervals for forecasts.
package interval

import (
	"math"
	"time"

	"github.com/rpggio/evtrack/internal/domain/schedule"
)

// Viability scores how far an interval can be trusted.
type Viability int

const (
	ViabilityNone Viability = iota
	ViabilityNominal
	ViabilityAcceptable
	ViabilityGood
)

// Viable reports whether v is above the acceptable threshold.
func (v Viability) Viable() bool { return v > ViabilityAcceptable }

func (v Viability) String() string {
	switch v {
	case ViabilityNominal:
		return "nominal"
	case ViabilityAcceptable:
		return "acceptable"
	case ViabilityGood:
		return "good"
	default:
		return "none"
	}
}

// Interval predicts a value along with percentile bounds.
type Interval interface {
	Prediction() float64
	// Quantile returns the value at cumulative probability q in (0,1).
	Quantile(q float64) float64
	Viability() Viability
}

// Viable reports whether i is present and trustworthy.
func Viable(i Interval) bool {
	return i != nil && i.Viability().Viable()
}

// LPI returns the lower bound of the central p interval, or NaN for a
// missing interval.
func LPI(i Interval, p float64) float64 {
	if i == nil {
		return math.NaN()
	}
	return i.Quantile((1 - p) / 2)
}

// UPI returns the upper bound of the central p interval, or NaN for a
// missing interval.
func UPI(i Interval, p float64) float64 {
	if i == nil {
		return math.NaN()
	}
	return i.Quantile((1 + p) / 2)
}

func clampProbability(q float64) float64 {
	const eps = 1e-9
	if math.IsNaN(q) {
		return 0.5
	}
	return math.Min(1-eps, math.Max(eps, q))
}

// Ratioed is implemented by intervals fitted to an actual/plan ratio.
type Ratioed interface {
	ActualVsPlanRatio() float64
}

// DateValue encodes t as fractional Unix seconds so dates can be sampled.
func DateValue(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ValueDate decodes a DateValue. Non-finite values and values at or past
// schedule.Never decode to the zero time.
func ValueDate(v float64) time.Time {
	if math.IsNaN(v) || math.IsInf(v, 0) || v >= DateValue(schedule.Never) {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
