package schedule

import (
	"errors"
	"math"
	"time"
)

// PlannedCompletionDate returns the end of the first period whose
// cumulative direct plan time reaches cumTime, recording cumValue as the
// plan value due by every such period. When the plan runs out the schedule
// is grown at its default rate. It returns Never when no rate is available
// or growth reaches MaxPeriods.
func (s *Schedule) PlannedCompletionDate(cumTime, cumValue float64) time.Time {
	if math.IsNaN(cumTime) || math.IsInf(cumTime, 0) {
		return Never
	}

	var result time.Time
	for i := range s.periods {
		p := &s.periods[i]
		if p.CumPlanDirectTime >= cumTime {
			p.CumPlanValue = math.Max(p.CumPlanValue, cumValue)
			if result.IsZero() {
				result = p.End
			}
		}
	}
	if !result.IsZero() {
		return result
	}

	if s.defaultPlanDirectTime <= 0 || s.fixed {
		return Never
	}

	for first := true; ; first = false {
		if !first {
			if err := s.Grow(true); err != nil {
				if errors.Is(err, ErrHorizonReached) {
					s.pastHorizon = true
				}
				return Never
			}
		}
		if !s.addHours(cumTime) && !first {
			return Never
		}
		last := s.Last()
		if last.CumPlanDirectTime >= cumTime {
			last.CumPlanValue = math.Max(last.CumPlanValue, cumValue)
			return last.End
		}
	}
}

// Grow appends an empty period as long as the previous one.
func (s *Schedule) Grow(automatic bool) error {
	if s.fixed {
		return ErrFixedSchedule
	}
	n := len(s.periods)
	if n < 2 {
		return ErrInvalidPeriods
	}
	if n > MaxPeriods {
		return ErrHorizonReached
	}
	x, y := s.periods[n-2], s.periods[n-1]
	step := y.End.Sub(x.End)
	if step <= 0 {
		s.err = ErrRunawayGrowth
		return ErrRunawayGrowth
	}
	z := Period{
		End:                 y.End.Add(step),
		CumPlanDirectTime:   y.CumPlanDirectTime,
		CumPlanValue:        y.CumPlanValue,
		CumEarnedValue:      y.CumEarnedValue,
		CumActualCost:       y.CumActualCost,
		CumActualDirectTime: y.CumActualDirectTime,
		Automatic:           automatic,
	}
	s.periods = append(s.periods, z)
	return nil
}

// addHours tops up the last automatic period toward the default rate, or
// just enough to reach required.
func (s *Schedule) addHours(required float64) bool {
	n := len(s.periods)
	z := &s.periods[n-1]
	if !z.Automatic || n < 2 {
		return false
	}
	diff := s.defaultPlanDirectTime - z.PlanDirectTime
	if diff <= 0 {
		return false
	}
	cumDiff := required - z.CumPlanDirectTime
	if cumDiff <= 0 {
		return false
	}

	prevCum := s.periods[n-2].CumPlanDirectTime
	if diff < cumDiff {
		z.PlanTotalTime = s.defaultPlanTotalTime
		z.PlanDirectTime = s.defaultPlanDirectTime
		z.CumPlanDirectTime = prevCum + s.defaultPlanDirectTime
	} else {
		z.CumPlanDirectTime = required
		z.PlanDirectTime = required - prevCum
		z.PlanTotalTime = z.PlanDirectTime * (s.defaultPlanTotalTime / s.defaultPlanDirectTime)
	}
	return true
}

// ExtrapolateWithinSchedule interpolates the instant at which the
// cumulative direct plan reaches cumTime.
func (s *Schedule) ExtrapolateWithinSchedule(cumTime float64) time.Time {
	if cumTime < 0 {
		return LongAgo
	}
	if math.IsNaN(cumTime) || math.IsInf(cumTime, 0) {
		return Never
	}
	for i := 1; i < len(s.periods); i++ {
		p := &s.periods[i]
		if p.CumPlanDirectTime < cumTime {
			continue
		}
		prevCum := s.periods[i-1].CumPlanDirectTime
		span := p.CumPlanDirectTime - prevCum
		pct := 1.0
		if span > 0 {
			pct = (cumTime - prevCum) / span
		}
		begin := s.Begin(i)
		return begin.Add(time.Duration(float64(p.End.Sub(begin)) * pct))
	}
	return Never
}

// HypotheticalDate returns when a copy of this schedule, with plan times
// scaled by multiplier, would reach cumTime. The receiver is not modified.
func (s *Schedule) HypotheticalDate(cumTime, multiplier float64) time.Time {
	c := s.Clone()
	c.CleanUp()
	if multiplier != 1 {
		c.Multiply(multiplier)
	}
	extra := cumTime + c.defaultPlanDirectTime
	c.PlannedCompletionDate(extra, extra)
	return c.ExtrapolateWithinSchedule(cumTime)
}
