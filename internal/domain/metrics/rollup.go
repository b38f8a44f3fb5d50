package metrics

import (
	"math"
	"time"

	"github.com/rpggio/evtrack/internal/domain/interval"
	"github.com/rpggio/evtrack/internal/domain/schedule"
)

type rollupState struct {
	forecastCost float64
	ofRollups    bool

	// Latest optimized dates seen among child rollups.
	childOptPlan     time.Time
	childOptReplan   time.Time
	childOptForecast time.Time

	optimizedPlanDate     time.Time
	optimizedReplanDate   time.Time
	optimizedForecastDate time.Time
	optimizedDateInterval interval.Interval
}

// NewRollup returns metrics that aggregate the metrics of other task lists.
func NewRollup() *Metrics {
	m := New()
	m.rollup = &rollupState{}
	return m
}

// IsRollup reports whether m aggregates other metrics.
func (m *Metrics) IsRollup() bool { return m.rollup != nil }

// IsRollupOfRollups reports whether any aggregated metrics were themselves
// a rollup.
func (m *Metrics) IsRollupOfRollups() bool {
	return m.rollup != nil && m.rollup.ofRollups
}

// ResetRollup clears the aggregate. Forecast dates start from the
// LongAgo sentinel so that any child without a forecast clears them.
func (m *Metrics) ResetRollup(effective time.Time) {
	if m.rollup == nil {
		m.rollup = &rollupState{}
	}
	m.totalPlan, m.earned, m.actual, m.plan, m.indirect, m.spent = 0, 0, 0, 0, 0, 0
	m.schedulePlan, m.scheduleActual = 0, 0
	m.baselineCost = math.NaN()
	m.current = effective
	m.start, m.planDate, m.baselineDate = time.Time{}, time.Time{}, time.Time{}
	m.replanDate, m.forecastDate = schedule.LongAgo, schedule.LongAgo
	m.errors = nil
	*m.rollup = rollupState{
		childOptReplan:   schedule.LongAgo,
		childOptForecast: schedule.LongAgo,
	}
}

// AddMetrics folds a child's metrics into the rollup. Child errors are
// prefixed with the child's error qualifier.
func (m *Metrics) AddMetrics(c *Metrics) {
	r := m.rollup
	m.totalPlan += c.totalPlan
	m.earned += c.earned
	m.actual += c.actual
	m.plan += c.plan
	m.indirect += c.indirect
	m.spent += c.spent
	m.schedulePlan += c.schedulePlan
	m.scheduleActual += c.scheduleActual
	fc, ok := c.IndependentForecastCostEff()
	if !ok {
		fc = math.NaN()
	}
	r.forecastCost += fc

	m.start = minDate(m.start, c.start)
	m.planDate = maxPlanDate(m.planDate, c.planDate)
	m.replanDate = maxForecastDate(m.replanDate, c.replanDate)
	m.forecastDate = maxForecastDate(m.forecastDate, c.forecastDate)

	if c.rollup != nil {
		r.ofRollups = true
		r.childOptPlan = maxPlanDate(r.childOptPlan, orDate(c.rollup.optimizedPlanDate, c.planDate))
		r.childOptReplan = maxForecastDate(r.childOptReplan, orDate(c.rollup.optimizedReplanDate, c.replanDate))
		r.childOptForecast = maxForecastDate(r.childOptForecast, orDate(c.rollup.optimizedForecastDate, c.forecastDate))
	} else {
		r.childOptPlan = maxPlanDate(r.childOptPlan, c.planDate)
		r.childOptReplan = maxForecastDate(r.childOptReplan, c.replanDate)
		r.childOptForecast = maxForecastDate(r.childOptForecast, c.forecastDate)
	}

	for msg, path := range c.errors {
		m.AddError(c.errorQualifier+msg, path)
	}
}

// FinishRollup turns sentinel forecast dates into unknown ones. For a
// rollup of rollups it also derives the optimized dates from the
// children; otherwise the caller supplies them with SetOptimizedDates.
func (m *Metrics) FinishRollup() {
	m.replanDate = knownForecast(m.replanDate)
	m.forecastDate = knownForecast(m.forecastDate)
	r := m.rollup
	if r == nil || !r.ofRollups {
		return
	}
	r.optimizedPlanDate = uniqueDate(r.childOptPlan, m.planDate)
	r.optimizedReplanDate = knownForecast(uniqueDate(r.childOptReplan, m.replanDate))
	r.optimizedForecastDate = knownForecast(uniqueDate(r.childOptForecast, m.forecastDate))
}

// SetOptimizedDates records completion dates computed against the merged
// schedule rather than the children's own schedules.
func (m *Metrics) SetOptimizedDates(plan, replan, forecast time.Time) {
	if m.rollup == nil {
		return
	}
	m.rollup.optimizedPlanDate = knownDate(plan)
	m.rollup.optimizedReplanDate = knownForecast(replan)
	m.rollup.optimizedForecastDate = knownForecast(forecast)
}

// SetOptimizedDateInterval records the date interval for the optimized
// forecast.
func (m *Metrics) SetOptimizedDateInterval(ci interval.Interval) {
	if m.rollup != nil {
		m.rollup.optimizedDateInterval = ci
	}
}

func (m *Metrics) OptimizedPlanDate() time.Time {
	if m.rollup == nil {
		return time.Time{}
	}
	return m.rollup.optimizedPlanDate
}

func (m *Metrics) OptimizedReplanDate() time.Time {
	if m.rollup == nil {
		return time.Time{}
	}
	return m.rollup.optimizedReplanDate
}

func (m *Metrics) OptimizedForecastDate() time.Time {
	if m.rollup == nil {
		return time.Time{}
	}
	return m.rollup.optimizedForecastDate
}

func (m *Metrics) OptimizedForecastDuration() (float64, bool) {
	return duration(m.start, m.OptimizedForecastDate())
}

func (m *Metrics) OptimizedForecastDateLPI() time.Time {
	if m.rollup == nil || m.rollup.optimizedDateInterval == nil {
		return time.Time{}
	}
	return interval.ValueDate(interval.LPI(m.rollup.optimizedDateInterval, m.confidence))
}

func (m *Metrics) OptimizedForecastDateUPI() time.Time {
	if m.rollup == nil || m.rollup.optimizedDateInterval == nil {
		return time.Time{}
	}
	return interval.ValueDate(interval.UPI(m.rollup.optimizedDateInterval, m.confidence))
}

func orDate(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	return a
}

func uniqueDate(a, b time.Time) time.Time {
	if a.IsZero() || a.Equal(b) {
		return time.Time{}
	}
	return a
}

func knownForecast(t time.Time) time.Time {
	if t.Equal(schedule.LongAgo) {
		return time.Time{}
	}
	return knownDate(t)
}
