package schedule_test

import (
	"testing"
	"time"

	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const week = 7 * 24 * time.Hour

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fourWeeks() *schedule.Schedule {
	return schedule.New(start, week, 600, 4)
}

func TestSchedule_New(t *testing.T) {
	s := fourWeeks()
	require.Equal(t, 5, s.Len())
	require.Equal(t, start, s.StartDate())
	require.Equal(t, 2400.0, s.Last().CumPlanDirectTime)
	require.Equal(t, 600.0, s.DefaultPlanDirectTime())
	require.Equal(t, schedule.LongAgo, s.Begin(0))
}

func TestSchedule_FromSpecsRejectsUnordered(t *testing.T) {
	_, err := schedule.FromSpecs(start, []schedule.Spec{
		{End: start.Add(week), PlanMinutes: 60},
		{End: start.Add(week), PlanMinutes: 60},
	})
	require.ErrorIs(t, err, schedule.ErrInvalidPeriods)
}

func TestSchedule_PlannedCompletionDate(t *testing.T) {
	s := fourWeeks()

	d := s.PlannedCompletionDate(900, 900)
	assert.Equal(t, start.Add(2*week), d)
	assert.Equal(t, 900.0, s.Period(2).CumPlanValue)
	assert.Equal(t, 900.0, s.Period(4).CumPlanValue)
	assert.Equal(t, 0.0, s.Period(1).CumPlanValue)
}

func TestSchedule_PlannedCompletionDateGrows(t *testing.T) {
	s := fourWeeks()

	d := s.PlannedCompletionDate(3000, 3000)
	assert.Equal(t, start.Add(5*week), d)
	assert.True(t, s.Last().Automatic)
	assert.Equal(t, 600.0, s.Last().PlanDirectTime)

	s.CleanUp()
	assert.Equal(t, 5, s.Len())
}

func TestSchedule_PlannedCompletionDateZeroRate(t *testing.T) {
	s := schedule.New(start, week, 0, 2)
	assert.Equal(t, schedule.Never, s.PlannedCompletionDate(10, 10))
	assert.NoError(t, s.Err())
}

func TestSchedule_GrowthStopsAtHorizon(t *testing.T) {
	s := schedule.New(start, week, 1, 1)
	assert.Equal(t, schedule.Never, s.PlannedCompletionDate(1e9, 1e9))
	assert.True(t, s.PastHorizon())
	assert.NoError(t, s.Err())
	assert.LessOrEqual(t, s.Len(), schedule.MaxPeriods+2)
	require.ErrorIs(t, s.Grow(true), schedule.ErrHorizonReached)

	s.CleanUp()
	assert.False(t, s.PastHorizon())
}

func TestSchedule_ActualsBeyondHorizonDropped(t *testing.T) {
	s := fourWeeks()
	s.SaveActualTime(start.AddDate(20, 0, 0), 30)
	s.SaveActualTime(start.Add(24*time.Hour), 60)

	assert.Equal(t, 1, s.Dropped())
	assert.NoError(t, s.Err())
	assert.Equal(t, 60.0, s.Last().CumActualDirectTime)

	s.CleanUp()
	assert.Zero(t, s.Dropped())
	assert.Equal(t, 5, s.Len())
}

func TestSchedule_FixedDoesNotGrow(t *testing.T) {
	s := schedule.NewFixed([]time.Time{start, start.Add(week)})
	require.ErrorIs(t, s.Grow(true), schedule.ErrFixedSchedule)
	require.Equal(t, schedule.Never, s.PlannedCompletionDate(10, 10))
}

func TestSchedule_SaveActualTime(t *testing.T) {
	s := fourWeeks()
	s.CleanUp()
	s.SaveActualTime(start.Add(week+week/2), 60)
	s.SaveActualIndirectTime(start.Add(week/2), 15)
	s.RecalcCumActualTimes()

	assert.Equal(t, 60.0, s.Period(2).ActualDirectTime)
	assert.Equal(t, 15.0, s.Period(1).ActualIndirectTime)
	assert.Equal(t, 0.0, s.Period(1).CumActualDirectTime)
	assert.Equal(t, 60.0, s.Period(4).CumActualDirectTime)

	// entries past the end grow the schedule
	s.SaveActualTime(start.Add(5*week+time.Hour), 30)
	assert.Equal(t, 7, s.Len())
	assert.Equal(t, 30.0, s.Last().ActualDirectTime)
}

func TestSchedule_CompletedValuesArePrefixSums(t *testing.T) {
	s := fourWeeks()
	s.CleanUp()
	s.SaveCompletedTask(start.Add(time.Hour), 100)
	s.SaveCompletedTask(start.Add(2*week+time.Hour), 50)
	s.SaveCompletedTaskCost(start.Add(2*week+time.Hour), 70)
	s.CalcIndividualValues()

	cum := 0.0
	for i, p := range s.Periods() {
		cum += p.EarnedValue
		assert.InDelta(t, cum, p.CumEarnedValue, 1e-9, "period %d", i)
	}
	assert.Equal(t, 150.0, s.Last().CumEarnedValue)
	assert.Equal(t, 70.0, s.Period(3).ActualCost)
}

func TestSchedule_RecalcCumValues(t *testing.T) {
	s := schedule.NewFixed([]time.Time{start, start.Add(week), start.Add(2 * week)})
	s.Period(1).PlanDirectTime = 100
	s.Period(1).PlanValue = 80
	s.Period(2).PlanDirectTime = 50
	s.Period(2).PlanValue = 40
	s.Period(2).EarnedValue = 10
	s.RecalcCumValues()

	assert.Equal(t, 150.0, s.Last().CumPlanDirectTime)
	assert.Equal(t, 120.0, s.Last().CumPlanValue)
	assert.Equal(t, 10.0, s.Last().CumEarnedValue)
	assert.LessOrEqual(t, s.Period(1).CumPlanValue, s.Period(2).CumPlanValue)
}

func TestSchedule_Extrapolation(t *testing.T) {
	s := fourWeeks()
	assert.Equal(t, start.Add(week+week/2), s.ExtrapolateWithinSchedule(900))
	assert.Equal(t, schedule.LongAgo, s.ExtrapolateWithinSchedule(-1))
	assert.Equal(t, schedule.Never, s.ExtrapolateWithinSchedule(1e6))

	assert.Equal(t, start.Add(week+week/2), s.HypotheticalDate(900, 1))
	assert.Equal(t, start.Add(3*week), s.HypotheticalDate(900, 0.5))
	// the receiver is untouched
	assert.Equal(t, 5, s.Len())
}

func TestSchedule_ScheduledTimes(t *testing.T) {
	s := fourWeeks()
	at := start.Add(week + week/2)
	assert.Equal(t, 600.0, s.ScheduledPlanTime(at, false))
	assert.Equal(t, 900.0, s.ScheduledPlanTime(at, true))

	s.CleanUp()
	s.SaveActualTime(start.Add(time.Hour), 40)
	s.SaveActualTime(start.Add(week+time.Hour), 20)
	assert.Equal(t, 40.0, s.ScheduledActualTime(at, false))
	assert.Equal(t, 60.0, s.ScheduledActualTime(at, true))
}

func TestSchedule_PeriodLookup(t *testing.T) {
	s := fourWeeks()
	at := start.Add(week + time.Hour)
	assert.Equal(t, 2, s.IndexAt(at))
	assert.Equal(t, start.Add(week), s.PeriodStart(at))
	assert.Equal(t, start.Add(2*week), s.PeriodEnd(at))
	assert.InDelta(t, 1.0/168, s.ElapsedPercent(2, at), 1e-9)

	s.SetEffectiveDate(at)
	assert.Equal(t, 2, s.EffectivePeriod())
}

func TestSchedule_LevelOfEffortAndMultiply(t *testing.T) {
	s := fourWeeks()
	s.SetLevelOfEffort(0.25)
	s.CleanUp()
	s.RecalcCumPlanTimes()
	assert.InDelta(t, 0.25, s.LevelOfEffort(), 1e-9)
	assert.Equal(t, 450.0, s.Period(1).PlanDirectTime)
	assert.Equal(t, 1800.0, s.Last().CumPlanDirectTime)

	s.Multiply(2)
	assert.Equal(t, 900.0, s.Period(1).PlanDirectTime)
	assert.Equal(t, 900.0, s.DefaultPlanDirectTime())
}

func TestSchedule_ProjectedDate(t *testing.T) {
	s := fourWeeks()
	s.CleanUp()
	s.SaveActualTime(start.Add(time.Hour), 300)
	s.SetEffectiveDate(start.Add(week))

	// the first week only delivered half its plan
	assert.Equal(t, start.Add(2*week), s.ProjectedDate(900, 1))
	assert.Equal(t, start.Add(week+week/2), s.ProjectedDate(600, 1))
	assert.Equal(t, schedule.Never, s.ProjectedDate(600, 0))
	assert.Equal(t, 600.0, s.Period(1).PlanDirectTime)
}
