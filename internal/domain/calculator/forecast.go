package calculator

import (
	"math"
	"time"

	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/task"
)

// maxForecastMinutes keeps forecast durations inside time.Duration.
const maxForecastMinutes = float64(math.MaxInt64 / int64(time.Minute))

// simpleForecast extrapolates the elapsed time by the percent complete.
func simpleForecast(m *metrics.Metrics) time.Time {
	start := m.StartDate()
	if start.IsZero() {
		return time.Time{}
	}
	elapsed, ok := m.Elapsed()
	if !ok {
		return time.Time{}
	}
	pc, ok := m.PercentComplete()
	if !ok || pc <= 0 {
		return time.Time{}
	}
	duration := elapsed / pc
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration > maxForecastMinutes {
		return time.Time{}
	}
	return start.Add(time.Duration(duration * float64(time.Minute)))
}

// forecastInvalid reports a forecast that is unknown or claims open work
// finished in the past.
func forecastInvalid(d time.Time, m *metrics.Metrics) bool {
	if d.IsZero() || d.Equal(schedule.LongAgo) || schedule.IsNever(d) {
		return true
	}
	return m.EarnedValue() < m.TotalPlan() && d.Before(m.CurrentDate())
}

// hypotheticalFunc returns when a cumulative direct plan time would be
// reached. With useDTPI the plan is scaled by the rate at which direct time
// has actually been delivered.
type hypotheticalFunc func(cum float64, useDTPI bool) time.Time

func scheduleHypothetical(s *schedule.Schedule, m *metrics.Metrics) hypotheticalFunc {
	return func(cum float64, useDTPI bool) time.Time {
		multiplier := 1.0
		if useDTPI {
			multiplier = dtpiMultiplier(m)
		}
		return s.HypotheticalDate(cum, multiplier)
	}
}

// scheduleForecast runs the forecast cost through the schedule at the
// rate direct time has actually been delivered.
func scheduleForecast(h hypotheticalFunc, m *metrics.Metrics, fallback bool) time.Time {
	cost, ok := m.IndependentForecastCostEff()
	d := time.Time{}
	if ok {
		d = h(cost, true)
	}
	if forecastInvalid(d, m) {
		if fallback {
			return simpleForecast(m)
		}
		return time.Time{}
	}
	return d
}

// replanForecast plans the remaining work as if the schedule still held
// from today on.
func replanForecast(h hypotheticalFunc, m *metrics.Metrics, almostDone float64) time.Time {
	remaining := m.TotalPlan() - m.EarnedValue()
	spent := m.ScheduleActualTime() - m.Actual()
	planned := remaining - spent
	if planned < 0 {
		planned = spent / almostDone
	}
	d := h(m.SchedulePlanTime()+planned, false)
	if forecastInvalid(d, m) {
		return time.Time{}
	}
	return d
}

func dtpiMultiplier(m *metrics.Metrics) float64 {
	dtpi, ok := m.DirectTimePerformanceIndexEff()
	if !ok || dtpi <= 0 || math.IsInf(dtpi, 0) {
		return 1
	}
	return 1 / dtpi
}

func (c *LeafCalculator) calculateReplanDates() {
	c.metrics.SetReplanDate(c.projectTasks(true))
}

func (c *LeafCalculator) calculateForecastDates() {
	m := c.metrics
	switch c.opts.ForecastMethod {
	case ForecastSimple:
		m.SetForecastDate(simpleForecast(m))
	case ForecastSchedule:
		m.SetForecastDate(scheduleForecast(scheduleHypothetical(c.sched, m), m, true))
	default:
		m.SetForecastDate(c.projectTasks(false))
	}
}

// projectTasks walks the open leaves in order, adding each one's remaining
// cost to the direct time already delivered, and projects when the running
// total is reached. A replan assumes future periods deliver their plan; a
// forecast scales the remaining work and the future periods by the
// performance indexes. It returns the date the last task finishes.
func (c *LeafCalculator) projectTasks(replan bool) time.Time {
	t, s, m := c.tree, c.sched, c.metrics
	setDate := func(n *task.Node, d time.Time) {
		if schedule.IsNever(d) {
			d = time.Time{}
		}
		if replan {
			n.ReplanDate = d
		} else {
			n.ForecastDate = d
		}
	}
	if len(c.leaves) == 0 {
		return time.Time{}
	}

	cpi, multiplier := 1.0, 1.0
	if !replan {
		var ok bool
		cpi, ok = m.CostPerformanceIndexEff()
		if !ok || cpi <= 0 || math.IsInf(cpi, 0) {
			return time.Time{}
		}
		dtpi, ok := m.DirectTimePerformanceIndexEff()
		if !ok || dtpi <= 0 || math.IsInf(dtpi, 0) {
			return time.Time{}
		}
		multiplier = 1 / dtpi
	}

	type open struct {
		node                   *task.Node
		spent, cpiCost, almost float64
		delta                  float64
	}
	var pending []open
	var under, over float64
	final := schedule.LongAgo
	for _, id := range c.leaves {
		n := t.Node(id)
		actual := n.DateCompleted
		if n.IsLevelOfEffort() || n.IsTotallyPruned() {
			actual = time.Time{}
		}
		setDate(n, actual)
		if !actual.IsZero() {
			final = maxDate(final, actual)
			continue
		}
		o := open{node: n, spent: c.subtreeTime(id), cpiCost: n.PlanValue / cpi}
		o.almost = o.spent / c.opts.AlmostDonePct
		o.delta = o.cpiCost - o.almost
		if o.delta > 0 {
			under += o.delta
		} else {
			over += o.delta
		}
		pending = append(pending, o)
	}

	ratio := 0.0
	if under > 0 {
		ratio = math.Min(-over/under, c.opts.MaxCPICorrection)
	}
	cum := s.Last().CumActualDirectTime
	for _, o := range pending {
		if o.delta < 0 {
			cum += o.almost - o.spent
		} else {
			cum += o.cpiCost - o.delta*ratio - o.spent
		}
		d := s.ProjectedDate(cum, multiplier)
		setDate(o.node, d)
		if schedule.IsNever(d) {
			final = time.Time{}
		} else if !final.IsZero() {
			final = maxDate(final, d)
		}
	}

	if final.Equal(schedule.LongAgo) {
		return time.Time{}
	}
	return final
}
