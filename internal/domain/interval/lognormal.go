package interval

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rpggio/evtrack/internal/domain/schedule"
)

// minViablePoints is the sample size below which a log-normal interval is
// only nominal.
const minViablePoints = 3

// DataPoint pairs a planned and an actual quantity.
type DataPoint struct {
	Plan   float64
	Actual float64
}

// LogNormal models the ratio actual/plan as log-normally distributed and
// scales it by an input quantity.
type LogNormal struct {
	mu, sigma float64
	input     float64
	n         int
}

// NewLogNormal builds an interval from explicit log-space parameters.
func NewLogNormal(mu, sigma, input float64, n int) *LogNormal {
	return &LogNormal{mu: mu, sigma: sigma, input: input, n: n}
}

// NewCostInterval fits the estimating bias of completed tasks. Points with
// no plan are liabilities: they raise the bias without a ratio of their own.
func NewCostInterval(points []DataPoint) *LogNormal {
	var sumPlan, sumActual float64
	var logs []float64
	for _, p := range points {
		if !finite(p.Plan) || !finite(p.Actual) || p.Plan < 0 || p.Actual < 0 {
			continue
		}
		sumPlan += p.Plan
		sumActual += p.Actual
		if p.Plan > 0 && p.Actual > 0 {
			logs = append(logs, math.Log(p.Actual/p.Plan))
		}
	}
	c := &LogNormal{n: len(logs), mu: math.NaN()}
	if sumPlan > 0 && sumActual > 0 {
		c.mu = math.Log(sumActual / sumPlan)
	}
	c.sigma = stdDev(logs)
	return c
}

// NewTimeErrInterval fits the ratio of actual to planned direct time over
// the schedule periods that ended before the effective date. With
// recenter set, the bias is removed so the median ratio is 1.
func NewTimeErrInterval(s *schedule.Schedule, recenter bool) *LogNormal {
	var logs []float64
	var sumPlan, sumActual float64
	eff := s.EffectiveDate()
	for i := 1; i < s.Len(); i++ {
		p := s.Period(i)
		if eff.IsZero() || !p.End.Before(eff) {
			break
		}
		if p.PlanDirectTime <= 0 || p.ActualDirectTime <= 0 {
			continue
		}
		sumPlan += p.PlanDirectTime
		sumActual += p.ActualDirectTime
		logs = append(logs, math.Log(p.ActualDirectTime/p.PlanDirectTime))
	}
	c := &LogNormal{n: len(logs), mu: math.NaN(), input: 1}
	if sumPlan > 0 {
		c.mu = math.Log(sumActual / sumPlan)
	}
	if recenter && len(logs) > 0 {
		c.mu = 0
	}
	c.sigma = stdDev(logs)
	return c
}

// SetInput sets the quantity the ratio is applied to.
func (c *LogNormal) SetInput(x float64) { c.input = x }

// Recenter removes the bias, leaving only the spread.
func (c *LogNormal) Recenter() { c.mu = 0 }

func (c *LogNormal) Prediction() float64 {
	return c.input * math.Exp(c.mu)
}

func (c *LogNormal) Quantile(q float64) float64 {
	if !finite(c.mu) || !finite(c.sigma) {
		return math.NaN()
	}
	ratio := distuv.LogNormal{Mu: c.mu, Sigma: c.sigma}.Quantile(clampProbability(q))
	return c.input * ratio
}

func (c *LogNormal) Viability() Viability {
	switch {
	case c.n == 0 || !finite(c.mu) || !finite(c.sigma):
		return ViabilityNone
	case c.n < minViablePoints:
		return ViabilityNominal
	default:
		return ViabilityGood
	}
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		if len(values) == 1 {
			return 0
		}
		return math.NaN()
	}
	return stat.StdDev(values, nil)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ActualVsPlanRatio returns the fitted bias, or NaN when unknown.
func (c *LogNormal) ActualVsPlanRatio() float64 { return math.Exp(c.mu) }
