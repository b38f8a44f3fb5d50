// Package schedule implements the time-phased plan that earned value is
// measured against.
package schedule

import (
	"fmt"
	"math"
	"time"
)

// MaxPeriods bounds automatic growth.
const MaxPeriods = 300

var (
	// Never is the forecast for work that can not be completed.
	Never = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
	// LongAgo is the begin date of the start marker period.
	LongAgo = time.Unix(0, 0).UTC()
)

// IsNever reports whether t is unset or the Never sentinel.
func IsNever(t time.Time) bool {
	return t.IsZero() || !t.Before(Never)
}

// Schedule is an ordered list of periods. Period 0 is a zero-length marker
// whose End is the schedule start date.
type Schedule struct {
	periods []Period

	directPercentage      float64
	defaultPlanTotalTime  float64
	defaultPlanDirectTime float64

	effectiveDate   time.Time
	effectivePeriod int

	fixed bool
	err   error
	// set when a plan or an actual fell beyond MaxPeriods
	pastHorizon bool
	dropped     int
}

// New creates a schedule of count equal periods of periodLen each holding
// planMinutes of total plan time.
func New(start time.Time, periodLen time.Duration, planMinutes float64, count int) *Schedule {
	if count < 1 {
		count = 1
	}
	specs := make([]Spec, count)
	end := start
	for i := range specs {
		end = end.Add(periodLen)
		specs[i] = Spec{End: end, PlanMinutes: planMinutes}
	}
	s, _ := FromSpecs(start, specs)
	return s
}

// FromSpecs creates a schedule from explicit period definitions.
func FromSpecs(start time.Time, specs []Spec) (*Schedule, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no periods", ErrInvalidPeriods)
	}
	s := &Schedule{directPercentage: 1}
	s.periods = append(s.periods, Period{End: start})
	prev := start
	for _, spec := range specs {
		if !spec.End.After(prev) {
			return nil, fmt.Errorf("%w: period ending %s is not after %s", ErrInvalidPeriods, spec.End.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		plan := spec.PlanMinutes
		if math.IsNaN(plan) || math.IsInf(plan, 0) || plan < 0 {
			plan = 0
		}
		s.periods = append(s.periods, Period{End: spec.End, PlanTotalTime: plan, PlanDirectTime: plan})
		prev = spec.End
	}
	s.RecalcCumPlanTimes()
	s.captureDefaults()
	return s, nil
}

// NewFixed creates an empty schedule on the given boundaries. Fixed
// schedules never grow; they hold merged data.
func NewFixed(boundaries []time.Time) *Schedule {
	s := &Schedule{directPercentage: 1, fixed: true}
	for _, b := range boundaries {
		s.periods = append(s.periods, Period{End: b})
	}
	return s
}

// Clone returns a deep copy.
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.periods = append([]Period(nil), s.periods...)
	return &c
}

// Len returns the number of periods, including the start marker.
func (s *Schedule) Len() int { return len(s.periods) }

// Period returns period i for in-place updates.
func (s *Schedule) Period(i int) *Period { return &s.periods[i] }

// Periods returns a copy of every period.
func (s *Schedule) Periods() []Period { return append([]Period(nil), s.periods...) }

// Last returns the final period.
func (s *Schedule) Last() *Period { return &s.periods[len(s.periods)-1] }

// Begin returns the begin date of period i.
func (s *Schedule) Begin(i int) time.Time {
	if i <= 0 {
		return LongAgo
	}
	return s.periods[i-1].End
}

// StartDate returns the schedule start.
func (s *Schedule) StartDate() time.Time { return s.periods[0].End }

// Fixed reports whether the schedule holds merged data.
func (s *Schedule) Fixed() bool { return s.fixed }

// Err returns the growth failure seen since the last CleanUp.
func (s *Schedule) Err() error { return s.err }

// PastHorizon reports whether a planned completion fell beyond MaxPeriods
// since the last CleanUp.
func (s *Schedule) PastHorizon() bool { return s.pastHorizon }

// Dropped returns how many actuals dated beyond MaxPeriods were left out
// since the last CleanUp.
func (s *Schedule) Dropped() int { return s.dropped }

// DefaultPlanDirectTime is the per-period rate used when growing.
func (s *Schedule) DefaultPlanDirectTime() float64 { return s.defaultPlanDirectTime }

// SetLevelOfEffort sets the fraction of plan time reserved for LOE work.
func (s *Schedule) SetLevelOfEffort(loe float64) {
	s.directPercentage = 1 - loe
	if s.directPercentage < 0 || math.IsNaN(s.directPercentage) {
		s.directPercentage = 0
	}
}

// LevelOfEffort returns the fraction of plan time reserved for LOE work.
func (s *Schedule) LevelOfEffort() float64 { return 1 - s.directPercentage }

// SetEffectiveDate sets the "as of" date and locates its period.
func (s *Schedule) SetEffectiveDate(t time.Time) {
	s.effectiveDate = t
	s.effectivePeriod = 0
	if t.IsZero() {
		return
	}
	for i := len(s.periods) - 1; i >= 0; i-- {
		if s.periods[i].End.Before(t) {
			s.effectivePeriod = i + 1
			return
		}
	}
}

// EffectiveDate returns the "as of" date.
func (s *Schedule) EffectiveDate() time.Time { return s.effectiveDate }

// EffectivePeriod returns the index of the period holding the effective date.
func (s *Schedule) EffectivePeriod() int { return s.effectivePeriod }

// IndexAt returns the index of the period containing t, or -1.
func (s *Schedule) IndexAt(t time.Time) int {
	for i := len(s.periods) - 1; i >= 0; i-- {
		if s.Begin(i).Before(t) {
			return i
		}
	}
	return -1
}

// PeriodStart returns the begin date of the period containing t.
func (s *Schedule) PeriodStart(t time.Time) time.Time {
	if i := s.IndexAt(t); i >= 0 {
		return s.Begin(i)
	}
	return time.Time{}
}

// PeriodEnd returns the end date of the period containing t.
func (s *Schedule) PeriodEnd(t time.Time) time.Time {
	if i := s.IndexAt(t); i >= 0 {
		return s.periods[i].End
	}
	return time.Time{}
}

// ElapsedPercent returns how much of period i has passed at t, in [0,1].
func (s *Schedule) ElapsedPercent(i int, t time.Time) float64 {
	return elapsedPercent(s.Begin(i), s.periods[i].End, t)
}

// CleanUp discards actuals and automatic periods, and captures the rate
// of the last manual period for later growth.
func (s *Schedule) CleanUp() {
	s.err = nil
	s.pastHorizon = false
	s.dropped = 0
	i := 0
	for ; i < len(s.periods); i++ {
		p := &s.periods[i]
		p.PlanDirectTime = s.directPercentage * p.PlanTotalTime
		p.resetActuals()
		if p.Automatic {
			break
		}
	}
	if i < 2 {
		i = 2
		if i <= len(s.periods) {
			s.periods[i-1].Automatic = false
		}
	}
	if i > len(s.periods) {
		i = len(s.periods)
	}
	s.periods = s.periods[:i]
	s.captureDefaults()
}

func (s *Schedule) captureDefaults() {
	last := s.Last()
	s.defaultPlanTotalTime = last.PlanTotalTime
	s.defaultPlanDirectTime = last.PlanDirectTime
}

// RecalcCumPlanTimes recomputes CumPlanDirectTime as a prefix sum.
func (s *Schedule) RecalcCumPlanTimes() {
	cum := 0.0
	for i := range s.periods {
		cum += s.periods[i].PlanDirectTime
		s.periods[i].CumPlanDirectTime = cum
	}
}

// RecalcCumActualTimes recomputes CumActualDirectTime as a prefix sum.
func (s *Schedule) RecalcCumActualTimes() {
	cum := 0.0
	for i := range s.periods {
		cum += s.periods[i].ActualDirectTime
		s.periods[i].CumActualDirectTime = cum
	}
}

// CalcIndividualValues derives per-period value and cost from the
// cumulative series.
func (s *Schedule) CalcIndividualValues() {
	var prev Period
	for i := range s.periods {
		p := &s.periods[i]
		p.PlanValue = p.CumPlanValue - prev.CumPlanValue
		p.EarnedValue = p.CumEarnedValue - prev.CumEarnedValue
		p.ActualCost = p.CumActualCost - prev.CumActualCost
		prev = *p
	}
}

// RecalcCumValues recomputes every cumulative field from the per-period
// fields.
func (s *Schedule) RecalcCumValues() {
	var planDirect, planValue, actualDirect, earned, cost float64
	for i := range s.periods {
		p := &s.periods[i]
		planDirect += p.PlanDirectTime
		planValue += p.PlanValue
		actualDirect += p.ActualDirectTime
		earned += p.EarnedValue
		cost += p.ActualCost
		p.CumPlanDirectTime = planDirect
		p.CumPlanValue = planValue
		p.CumActualDirectTime = actualDirect
		p.CumEarnedValue = earned
		p.CumActualCost = cost
	}
}

// Multiply scales every plan time by m.
func (s *Schedule) Multiply(m float64) {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return
	}
	for i := range s.periods {
		p := &s.periods[i]
		p.PlanDirectTime *= m
		p.CumPlanDirectTime *= m
		p.PlanTotalTime *= m
	}
	s.defaultPlanDirectTime *= m
	s.defaultPlanTotalTime *= m
}

// ScheduledPlanTime returns the direct plan time of periods elapsed by t.
// With partial set, the current period contributes its elapsed share.
// Automatic periods count at the rate of the last manual period.
func (s *Schedule) ScheduledPlanTime(t time.Time, partial bool) float64 {
	total, auto := 0.0, 0.0
	for i := range s.periods {
		pct := s.ElapsedPercent(i, t)
		if pct == 0 || (pct < 1 && !partial) {
			break
		}
		p := &s.periods[i]
		if !p.Automatic {
			auto = p.PlanDirectTime
		}
		total += auto * pct
	}
	return total
}

// ScheduledActualTime returns the direct actual time of periods begun by t.
func (s *Schedule) ScheduledActualTime(t time.Time, partial bool) float64 {
	total := 0.0
	for i := range s.periods {
		if s.Begin(i).After(t) {
			break
		}
		if !partial && s.periods[i].End.After(t) {
			break
		}
		total += s.periods[i].ActualDirectTime
	}
	return total
}
