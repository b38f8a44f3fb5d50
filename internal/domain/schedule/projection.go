package schedule

import (
	"math"
	"time"
)

// projected returns a copy in which periods elapsed by the effective date
// plan exactly the direct time actually logged, and the remaining plan is
// scaled by multiplier. The period holding the effective date keeps its
// actual time plus the unelapsed share of its plan.
func (s *Schedule) projected(multiplier float64) *Schedule {
	c := s.Clone()
	if multiplier != 1 {
		c.Multiply(multiplier)
	}
	eff := c.effectiveDate
	if eff.IsZero() {
		c.RecalcCumPlanTimes()
		return c
	}
	for i := 1; i < len(c.periods); i++ {
		p := &c.periods[i]
		pct := c.ElapsedPercent(i, eff)
		if pct == 0 {
			break
		}
		p.PlanDirectTime = p.ActualDirectTime + p.PlanDirectTime*(1-pct)
	}
	c.RecalcCumPlanTimes()
	return c
}

// ProjectedDate returns when the cumulative direct time would reach
// cumTime if work continues from what was actually done so far, with future
// plan time scaled by multiplier. The receiver is not modified.
func (s *Schedule) ProjectedDate(cumTime, multiplier float64) time.Time {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return Never
	}
	c := s.projected(multiplier)
	extra := cumTime + c.defaultPlanDirectTime
	c.PlannedCompletionDate(extra, extra)
	return c.ExtrapolateWithinSchedule(cumTime)
}
