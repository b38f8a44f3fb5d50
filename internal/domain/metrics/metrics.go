// Package metrics derives earned-value indicators from the totals a
// calculator accumulates for one task list.
package metrics

import (
	"maps"
	"math"
	"time"

	"github.com/rpggio/evtrack/internal/domain/interval"
	"github.com/rpggio/evtrack/internal/domain/schedule"
)

// DefaultConfidence is the central probability of reported ranges.
const DefaultConfidence = 0.70

// Metrics is the earned-value snapshot of a task list as of its current
// date. Times are in minutes.
type Metrics struct {
	totalPlan float64
	earned    float64
	actual    float64
	plan      float64
	indirect  float64
	spent     float64

	schedulePlan   float64
	scheduleActual float64

	start         time.Time
	current       time.Time
	periodEnd     time.Time
	periodPercent float64

	planDate     time.Time
	replanDate   time.Time
	forecastDate time.Time

	baselineDate time.Time
	baselineCost float64

	costInterval    interval.Interval
	timeErrInterval interval.Interval
	dateInterval    interval.Interval
	confidence      float64

	errors         map[string]string
	errorQualifier string

	rollup *rollupState
}

// New returns empty metrics.
func New() *Metrics {
	return &Metrics{baselineCost: math.NaN(), confidence: DefaultConfidence}
}

// Reset clears every total. The current period, when known, determines how
// much of the plan due within it counts as due by current.
func (m *Metrics) Reset(start, current, periodStart, periodEnd time.Time) {
	m.totalPlan, m.earned, m.actual, m.plan, m.indirect, m.spent = 0, 0, 0, 0, 0, 0
	m.schedulePlan, m.scheduleActual = 0, 0
	m.baselineCost = math.NaN()
	m.start = start
	m.current = current
	m.planDate, m.replanDate, m.forecastDate, m.baselineDate = time.Time{}, time.Time{}, time.Time{}, time.Time{}
	m.errors = nil
	m.periodEnd = periodEnd
	m.periodPercent = 0
	if periodStart.IsZero() || periodEnd.IsZero() {
		m.periodEnd = current
		return
	}
	length := periodEnd.Sub(periodStart)
	if length <= 0 {
		return
	}
	m.periodPercent = math.Min(1, math.Max(0, float64(current.Sub(periodStart))/float64(length)))
}

// AddTask accumulates one counted task. A zero completed date means the
// task is not done.
func (m *Metrics) AddTask(plan, actual float64, planDate, completed time.Time) {
	m.totalPlan += plan
	m.spent += actual
	if !completed.IsZero() {
		m.earned += plan
		m.actual += actual
	}
	if !planDate.IsZero() {
		if planDate.Before(m.current) {
			m.plan += plan
		} else if !m.periodEnd.Before(planDate) {
			m.plan += plan * m.periodPercent
		}
	}
	m.planDate = maxPlanDate(m.planDate, planDate)
}

// AddIndirectTime accumulates level-of-effort time.
func (m *Metrics) AddIndirectTime(minutes float64) {
	m.indirect += minutes
}

// AddError records a problem found at the node with the given path.
// Messages ending in a space are warnings.
func (m *Metrics) AddError(message, path string) {
	if m.errors == nil {
		m.errors = make(map[string]string)
	}
	m.errors[message] = path
}

// SetErrorQualifier sets the prefix applied when these errors are rolled up.
func (m *Metrics) SetErrorQualifier(q string) { m.errorQualifier = q }

// Errors returns a copy of the recorded problems keyed by message.
func (m *Metrics) Errors() map[string]string {
	if m.errors == nil {
		return nil
	}
	return maps.Clone(m.errors)
}

// WarningsOnly reports whether every recorded problem is a warning.
func WarningsOnly(errs map[string]string) bool {
	for msg := range errs {
		if len(msg) == 0 || msg[len(msg)-1] != ' ' {
			return false
		}
	}
	return true
}

// SetBaseline records the baseline completion date and cost.
func (m *Metrics) SetBaseline(date time.Time, cost float64) {
	m.baselineDate = date
	m.baselineCost = cost
}

// SetReplanDate records the replanned completion date. Never is stored as
// unknown.
func (m *Metrics) SetReplanDate(t time.Time) { m.replanDate = knownDate(t) }

// SetForecastDate records the forecast completion date. Never is stored as
// unknown.
func (m *Metrics) SetForecastDate(t time.Time) { m.forecastDate = knownDate(t) }

// SetConfidence sets the central probability of reported ranges.
func (m *Metrics) SetConfidence(p float64) {
	if p > 0 && p < 1 {
		m.confidence = p
	}
}

// Confidence returns the central probability of reported ranges.
func (m *Metrics) Confidence() float64 { return m.confidence }

// RecalcScheduleTime captures the planned and actual direct time of the
// schedule periods elapsed by the current date.
func (m *Metrics) RecalcScheduleTime(s *schedule.Schedule) {
	if m.rollup != nil {
		return
	}
	m.schedulePlan = s.ScheduledPlanTime(m.current, true)
	m.scheduleActual = s.ScheduledActualTime(m.current, true)
}

func (m *Metrics) SetCostInterval(ci interval.Interval)    { m.costInterval = ci }
func (m *Metrics) SetTimeErrInterval(ci interval.Interval) { m.timeErrInterval = ci }
func (m *Metrics) SetDateInterval(ci interval.Interval)    { m.dateInterval = ci }

func (m *Metrics) CostInterval() interval.Interval    { return m.costInterval }
func (m *Metrics) TimeErrInterval() interval.Interval { return m.timeErrInterval }
func (m *Metrics) DateInterval() interval.Interval    { return m.dateInterval }

// RecalcViability drops intervals that can not be trusted. Without a cost
// interval no other interval is meaningful.
func (m *Metrics) RecalcViability() {
	if !interval.Viable(m.costInterval) {
		m.costInterval, m.timeErrInterval, m.dateInterval = nil, nil, nil
		if m.rollup != nil {
			m.rollup.optimizedDateInterval = nil
		}
		return
	}
	if !interval.Viable(m.dateInterval) {
		m.dateInterval = nil
	}
	if m.rollup != nil && !interval.Viable(m.rollup.optimizedDateInterval) {
		m.rollup.optimizedDateInterval = nil
	}
}

func (m *Metrics) TotalPlan() float64          { return m.totalPlan }
func (m *Metrics) EarnedValue() float64        { return m.earned }
func (m *Metrics) Actual() float64             { return m.actual }
func (m *Metrics) Plan() float64               { return m.plan }
func (m *Metrics) IndirectTime() float64       { return m.indirect }
func (m *Metrics) SpentTime() float64          { return m.spent }
func (m *Metrics) SchedulePlanTime() float64   { return m.schedulePlan }
func (m *Metrics) ScheduleActualTime() float64 { return m.scheduleActual }
func (m *Metrics) StartDate() time.Time        { return m.start }
func (m *Metrics) CurrentDate() time.Time      { return m.current }
func (m *Metrics) PlanDate() time.Time         { return m.planDate }
func (m *Metrics) ReplanDate() time.Time       { return m.replanDate }
func (m *Metrics) BaselineDate() time.Time     { return m.baselineDate }

// TotalBaseline returns the baseline cost, if one was recorded.
func (m *Metrics) TotalBaseline() (float64, bool) { return value(m.baselineCost) }

// IndependentForecastDate returns the forecast completion date, or the zero
// time when none could be made.
func (m *Metrics) IndependentForecastDate() time.Time { return m.forecastDate }

func knownDate(t time.Time) time.Time {
	if schedule.IsNever(t) {
		return time.Time{}
	}
	return t
}

func maxPlanDate(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() || a.After(b) {
		return a
	}
	return b
}

// maxForecastDate is unknown when either side is unknown.
func maxForecastDate(a, b time.Time) time.Time {
	if a.IsZero() || b.IsZero() {
		return time.Time{}
	}
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() || a.Before(b) {
		return a
	}
	return b
}
