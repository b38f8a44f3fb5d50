package metrics

import (
	"math"
	"time"

	"github.com/rpggio/evtrack/internal/domain/interval"
)

// Every derived indicator reports false when it is unavailable, for
// example when a divisor is zero.

func value(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func ratio(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return value(num / den)
}

func (m *Metrics) CostVariance() (float64, bool) {
	return value(m.earned - m.actual)
}

func (m *Metrics) ScheduleVariance() (float64, bool) {
	return value(m.earned - m.plan)
}

func (m *Metrics) CostVariancePercentage() (float64, bool) {
	return ratio(m.earned-m.actual, m.earned)
}

func (m *Metrics) ScheduleVariancePercentage() (float64, bool) {
	return ratio(m.earned-m.plan, m.plan)
}

// TimeEstimatingError is the fraction by which completed tasks overran
// their plan.
func (m *Metrics) TimeEstimatingError() (float64, bool) {
	cv, ok := m.CostVariancePercentage()
	if !ok {
		return 0, false
	}
	return -cv, true
}

func (m *Metrics) BaselineGrowth() (float64, bool) {
	return value(m.totalPlan - m.baselineCost)
}

func (m *Metrics) BaselineGrowthPercentage() (float64, bool) {
	return ratio(m.totalPlan-m.baselineCost, m.baselineCost)
}

func (m *Metrics) CostPerformanceIndex() (float64, bool) {
	return ratio(m.earned, m.actual)
}

// CostPerformanceIndexEff falls back to the bias of the cost interval when
// there is no completed work to measure.
func (m *Metrics) CostPerformanceIndexEff() (float64, bool) {
	return performanceIndex(m.CostPerformanceIndex, m.costInterval)
}

func (m *Metrics) SchedulePerformanceIndex() (float64, bool) {
	return ratio(m.earned, m.plan)
}

// DirectTimePerformanceIndex compares planned to actual direct time over
// the elapsed schedule.
func (m *Metrics) DirectTimePerformanceIndex() (float64, bool) {
	return ratio(m.schedulePlan, m.scheduleActual)
}

func (m *Metrics) DirectTimePerformanceIndexEff() (float64, bool) {
	return performanceIndex(m.DirectTimePerformanceIndex, m.timeErrInterval)
}

func performanceIndex(idx func() (float64, bool), ci interval.Interval) (float64, bool) {
	if v, ok := idx(); ok {
		return v, true
	}
	if r, ok := ci.(interval.Ratioed); ok {
		return ratio(1, r.ActualVsPlanRatio())
	}
	return 0, false
}

func (m *Metrics) PercentComplete() (float64, bool) {
	return ratio(m.earned, m.totalPlan)
}

// PercentSpent counts all direct time logged to counted tasks, finished
// or not.
func (m *Metrics) PercentSpent() (float64, bool) {
	return ratio(m.spent, m.totalPlan)
}

func (m *Metrics) IncompleteTaskPlanTime() float64 {
	return m.totalPlan - m.earned
}

// ToCompletePerformanceIndex is the efficiency the remaining work needs to
// finish within the total plan.
func (m *Metrics) ToCompletePerformanceIndex() (float64, bool) {
	return ratio(m.totalPlan-m.earned, m.totalPlan-m.actual)
}

func (m *Metrics) ImprovementRatio() (float64, bool) {
	tcpi, ok := m.ToCompletePerformanceIndex()
	if !ok {
		return 0, false
	}
	cpi, ok := m.CostPerformanceIndex()
	if !ok {
		return 0, false
	}
	r, ok := ratio(tcpi, cpi)
	return r - 1, ok
}

func (m *Metrics) ReplanCost() (float64, bool) {
	cv, ok := m.CostVariance()
	if !ok {
		return 0, false
	}
	return value(m.totalPlan - cv)
}

// IndependentForecastCost extrapolates the total cost at the current cost
// performance. For a rollup it is the sum of the children's forecasts.
func (m *Metrics) IndependentForecastCost() (float64, bool) {
	if m.rollup != nil {
		return value(m.rollup.forecastCost)
	}
	cpi, ok := m.CostPerformanceIndex()
	if !ok {
		return 0, false
	}
	return ratio(m.totalPlan, cpi)
}

// IndependentForecastCostEff falls back to the cost interval's prediction
// when there is no completed work to extrapolate from.
func (m *Metrics) IndependentForecastCostEff() (float64, bool) {
	if v, ok := m.IndependentForecastCost(); ok {
		return v, true
	}
	if m.costInterval == nil {
		return 0, false
	}
	return value(m.actual + m.costInterval.Prediction())
}

func (m *Metrics) IndependentForecastCostLPI() (float64, bool) {
	if m.costInterval == nil {
		return 0, false
	}
	return value(m.actual + interval.LPI(m.costInterval, m.confidence))
}

func (m *Metrics) IndependentForecastCostUPI() (float64, bool) {
	if m.costInterval == nil {
		return 0, false
	}
	return value(m.actual + interval.UPI(m.costInterval, m.confidence))
}

// Elapsed returns the minutes between the start and current dates.
func (m *Metrics) Elapsed() (float64, bool) {
	return duration(m.start, m.current)
}

// ScheduleVarianceDuration converts the schedule variance into calendar
// minutes at the observed earning rate.
func (m *Metrics) ScheduleVarianceDuration() (float64, bool) {
	sv, ok := m.ScheduleVariance()
	if !ok {
		return 0, false
	}
	elapsed, ok := m.Elapsed()
	if !ok {
		return 0, false
	}
	return ratio(sv*elapsed, m.earned)
}

func (m *Metrics) IndependentForecastDuration() (float64, bool) {
	return duration(m.start, m.forecastDate)
}

func (m *Metrics) IndependentForecastDateLPI() time.Time {
	if m.dateInterval == nil {
		return time.Time{}
	}
	return interval.ValueDate(interval.LPI(m.dateInterval, m.confidence))
}

func (m *Metrics) IndependentForecastDateUPI() time.Time {
	if m.dateInterval == nil {
		return time.Time{}
	}
	return interval.ValueDate(interval.UPI(m.dateInterval, m.confidence))
}

func duration(from, to time.Time) (float64, bool) {
	if from.IsZero() || to.IsZero() {
		return 0, false
	}
	return to.Sub(from).Minutes(), true
}
