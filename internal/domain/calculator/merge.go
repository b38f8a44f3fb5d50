package calculator

import (
	"slices"
	"time"

	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/simulation"
)

// defaultMergedPlan is the plan time of the placeholder period of a merge
// with nothing to merge.
const defaultMergedPlan = 20

// MergeSchedules builds a fixed schedule on the union of the period
// boundaries of scheds. Each source period's values are spread over the
// merged periods it covers in proportion to their length, so every prefix
// sum of the merged schedule is the sum of the sources' prefix sums at the
// same date. Values held before a source's start land in the merged period
// ending at that start.
func MergeSchedules(scheds []*schedule.Schedule, effective time.Time) *schedule.Schedule {
	var bounds []time.Time
	for _, s := range scheds {
		for i := range s.Len() {
			bounds = append(bounds, s.Period(i).End)
		}
	}
	slices.SortFunc(bounds, func(a, b time.Time) int { return a.Compare(b) })
	bounds = slices.CompactFunc(bounds, func(a, b time.Time) bool { return a.Equal(b) })

	if len(bounds) == 0 {
		now := effective
		if now.IsZero() {
			now = time.Now()
		}
		merged := schedule.NewFixed([]time.Time{now, now.Add(7 * day)})
		p := merged.Period(1)
		p.PlanTotalTime, p.PlanDirectTime = defaultMergedPlan, defaultMergedPlan
		merged.RecalcCumValues()
		merged.SetEffectiveDate(effective)
		return merged
	}

	merged := schedule.NewFixed(bounds)
	for _, src := range scheds {
		s := src.Clone()
		s.CalcIndividualValues()
		for j := range s.Len() {
			if j == 0 {
				k, _ := slices.BinarySearchFunc(bounds, s.StartDate(), func(a, b time.Time) int { return a.Compare(b) })
				addShare(merged.Period(k), s.Period(0), 1)
				continue
			}
			begin, end := s.Begin(j), s.Period(j).End
			length := end.Sub(begin)
			if length <= 0 {
				continue
			}
			for k := 1; k < merged.Len(); k++ {
				mb, me := merged.Begin(k), merged.Period(k).End
				if mb.Before(begin) {
					continue
				}
				if me.After(end) {
					break
				}
				addShare(merged.Period(k), s.Period(j), float64(me.Sub(mb))/float64(length))
			}
		}
	}
	merged.RecalcCumValues()
	merged.SetEffectiveDate(effective)
	return merged
}

func addShare(dst, src *schedule.Period, share float64) {
	dst.PlanTotalTime += src.PlanTotalTime * share
	dst.PlanDirectTime += src.PlanDirectTime * share
	dst.PlanValue += src.PlanValue * share
	dst.ActualDirectTime += src.ActualDirectTime * share
	dst.ActualIndirectTime += src.ActualIndirectTime * share
	dst.EarnedValue += src.EarnedValue * share
	dst.ActualCost += src.ActualCost * share
}

// mergedHypothetical projects completion against the merged capacity of
// the children's schedules, optionally scaled by each child's DTPI.
func mergedHypothetical(children []Child) hypotheticalFunc {
	return func(cum float64, useDTPI bool) time.Time {
		multipliers := make([]float64, len(children))
		for i, ch := range children {
			multipliers[i] = 1
			if useDTPI {
				multipliers[i] = dtpiMultiplier(ch.Metrics())
			}
		}
		return projectMerged(children, cum, multipliers)
	}
}

// mergedProjector feeds randomized capacities to projectMerged during a
// simulation.
func mergedProjector(children []Child) simulation.Projector {
	return func(cum float64, multipliers []float64) time.Time {
		return projectMerged(children, cum, multipliers)
	}
}

// projectMerged scales each child's schedule by its multiplier and merges
// them. Each schedule is first extended far enough to hold cum by itself,
// so the merge never runs out of periods.
func projectMerged(children []Child, cum float64, multipliers []float64) time.Time {
	clones := make([]*schedule.Schedule, 0, len(children))
	for i, ch := range children {
		s := ch.Schedule().Clone()
		s.CleanUp()
		if multipliers[i] != 1 {
			s.Multiply(multipliers[i])
		}
		s.RecalcCumPlanTimes()
		extra := cum + s.DefaultPlanDirectTime()
		s.PlannedCompletionDate(extra, extra)
		clones = append(clones, s)
	}
	return MergeSchedules(clones, time.Time{}).ExtrapolateWithinSchedule(cum)
}
