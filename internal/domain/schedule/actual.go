package schedule

import (
	"errors"
	"time"
)

// SaveCompletedTask credits earned value to the period holding when.
func (s *Schedule) SaveCompletedTask(when time.Time, earned float64) {
	s.saveActualTaskInfo(when, 0, earned, 0, 0, true)
}

// SaveCompletedTaskCost credits the cost of a completed task.
func (s *Schedule) SaveCompletedTaskCost(when time.Time, cost float64) {
	s.saveActualTaskInfo(when, 0, 0, 0, cost, true)
}

// SaveActualTime credits direct time logged at when.
func (s *Schedule) SaveActualTime(when time.Time, minutes float64) {
	s.saveActualTaskInfo(when, 0, 0, minutes, 0, true)
}

// SaveActualIndirectTime credits level-of-effort time logged at when.
func (s *Schedule) SaveActualIndirectTime(when time.Time, minutes float64) {
	s.saveActualTaskInfo(when, 0, 0, minutes, 0, false)
}

// saveActualTaskInfo adds to the cumulative fields of every period ending
// after when, and to the per-period actuals of the one containing it.
// Dates beyond the schedule grow it; dates beyond MaxPeriods are dropped.
func (s *Schedule) saveActualTaskInfo(when time.Time, planValue, earned, actual, cost float64, direct bool) {
	if IsNever(when) {
		return
	}

	apply := func(i int) {
		p := &s.periods[i]
		if direct {
			p.CumPlanValue += planValue
			p.CumEarnedValue += earned
			p.CumActualDirectTime += actual
			p.CumActualCost += cost
		}
		if !when.Before(s.Begin(i)) {
			if direct {
				p.ActualDirectTime += actual
			} else {
				p.ActualIndirectTime += actual
			}
		}
	}

	found := false
	for i := len(s.periods) - 1; i >= 0; i-- {
		if !when.Before(s.periods[i].End) {
			break
		}
		found = true
		apply(i)
	}
	if found {
		return
	}

	for {
		if err := s.Grow(true); err != nil {
			if errors.Is(err, ErrHorizonReached) {
				s.dropped++
			}
			return
		}
		if when.Before(s.Last().End) {
			apply(len(s.periods) - 1)
			return
		}
	}
}
