package metrics_test

import (
	"testing"
	"time"

	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func child(start time.Time, plan, actual float64, forecast time.Time) *metrics.Metrics {
	m := metrics.New()
	m.Reset(start, day(2026, 2, 2), time.Time{}, time.Time{})
	m.AddTask(plan, actual, start.AddDate(0, 0, 7), start.AddDate(0, 0, 3))
	m.AddTask(plan, 0, start.AddDate(0, 0, 60), time.Time{})
	m.SetForecastDate(forecast)
	return m
}

func TestRollup_AddMetrics(t *testing.T) {
	a := child(day(2026, 1, 5), 60, 120, day(2026, 3, 1))
	b := child(day(2026, 1, 12), 90, 90, day(2026, 4, 1))
	a.AddError("Plan time mismatch", "/A/Code")
	a.SetErrorQualifier("[A] ")

	r := metrics.NewRollup()
	r.ResetRollup(day(2026, 2, 2))
	r.AddMetrics(a)
	r.AddMetrics(b)
	r.FinishRollup()

	assert.True(t, r.IsRollup())
	assert.False(t, r.IsRollupOfRollups())
	assert.InDelta(t, a.TotalPlan()+b.TotalPlan(), r.TotalPlan(), 1e-9)
	assert.Equal(t, 150.0, r.EarnedValue())
	assert.Equal(t, 210.0, r.Actual())
	assert.Equal(t, day(2026, 1, 5), r.StartDate())
	assert.Equal(t, day(2026, 4, 1), r.IndependentForecastDate())
	assert.Equal(t, day(2026, 3, 13), r.PlanDate())

	fa, _ := a.IndependentForecastCostEff()
	fb, _ := b.IndependentForecastCostEff()
	fc, ok := r.IndependentForecastCost()
	require.True(t, ok)
	assert.InDelta(t, fa+fb, fc, 1e-9)

	assert.Equal(t, map[string]string{"[A] Plan time mismatch": "/A/Code"}, r.Errors())
}

func TestRollup_MissingChildForecast(t *testing.T) {
	a := child(day(2026, 1, 5), 60, 120, day(2026, 3, 1))
	b := child(day(2026, 1, 12), 90, 90, time.Time{})

	r := metrics.NewRollup()
	r.ResetRollup(day(2026, 2, 2))
	r.AddMetrics(a)
	r.AddMetrics(b)
	r.FinishRollup()

	assert.True(t, r.IndependentForecastDate().IsZero())
	assert.True(t, r.ReplanDate().IsZero())
	assert.Equal(t, "", r.Format("Forecast_Date", metrics.Short))
}

func TestRollup_OfRollups(t *testing.T) {
	inner := metrics.NewRollup()
	inner.ResetRollup(day(2026, 2, 2))
	inner.AddMetrics(child(day(2026, 1, 5), 60, 60, day(2026, 3, 1)))
	inner.FinishRollup()
	inner.SetOptimizedDates(day(2026, 2, 20), time.Time{}, day(2026, 2, 25))

	outer := metrics.NewRollup()
	outer.ResetRollup(day(2026, 2, 2))
	outer.AddMetrics(inner)
	outer.AddMetrics(child(day(2026, 1, 5), 30, 30, day(2026, 2, 27)))
	outer.FinishRollup()

	assert.True(t, outer.IsRollupOfRollups())
	assert.Equal(t, day(2026, 3, 1), outer.IndependentForecastDate())
	// the optimized forecast differs from the plain one so it is reported
	assert.Equal(t, day(2026, 2, 27), outer.OptimizedForecastDate())
	assert.Equal(t, "2026-02-27", outer.Format("Optimized_Forecast_Date", metrics.Short))
}
