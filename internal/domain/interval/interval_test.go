package interval_test

import (
	"math"
	"testing"
	"time"

	"github.com/rpggio/evtrack/internal/domain/interval"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViabilityThreshold(t *testing.T) {
	assert.False(t, interval.ViabilityAcceptable.Viable())
	assert.True(t, interval.ViabilityGood.Viable())
	assert.False(t, interval.Viable(nil))
	assert.Equal(t, "good", interval.ViabilityGood.String())
}

func TestCostInterval(t *testing.T) {
	ci := interval.NewCostInterval([]interval.DataPoint{
		{Plan: 60, Actual: 66},
		{Plan: 120, Actual: 100},
		{Plan: 30, Actual: 45},
		{Plan: 0, Actual: 10},
	})
	ci.SetInput(300)

	require.Equal(t, interval.ViabilityGood, ci.Viability())
	// bias is total actual over total plan
	assert.InDelta(t, 300*221.0/210.0, ci.Prediction(), 1e-6)
	lpi, upi := interval.LPI(ci, 0.7), interval.UPI(ci, 0.7)
	assert.Less(t, lpi, ci.Prediction())
	assert.Greater(t, upi, ci.Prediction())
}

func TestCostInterval_TooFewPoints(t *testing.T) {
	ci := interval.NewCostInterval([]interval.DataPoint{{Plan: 60, Actual: 66}})
	assert.Equal(t, interval.ViabilityNominal, ci.Viability())

	empty := interval.NewCostInterval(nil)
	assert.Equal(t, interval.ViabilityNone, empty.Viability())
	assert.False(t, interval.Viable(empty))
}

func TestTimeErrInterval(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := schedule.New(start, 7*24*time.Hour, 600, 6)
	s.CleanUp()
	for i, minutes := range []float64{500, 700, 550, 650} {
		s.SaveActualTime(start.Add(time.Duration(i)*7*24*time.Hour+time.Hour), minutes)
	}
	s.SetEffectiveDate(start.Add(4*7*24*time.Hour + time.Hour))

	raw := interval.NewTimeErrInterval(s, false)
	require.Equal(t, interval.ViabilityGood, raw.Viability())
	assert.InDelta(t, 1.0, raw.Prediction(), 1e-9)

	centered := interval.NewTimeErrInterval(s, true)
	assert.InDelta(t, 1.0, centered.Quantile(0.5), 1e-9)
	assert.Less(t, centered.Quantile(0.15), 1.0)
}

func TestSampled(t *testing.T) {
	s := interval.NewSampled(100)
	assert.Equal(t, interval.ViabilityNone, s.Viability())
	assert.True(t, math.IsNaN(s.Quantile(0.5)))

	for i := 100; i >= 0; i-- {
		s.AddSample(float64(i))
	}
	s.AddSample(math.Inf(1))
	s.Finalize()
	s.AddSample(1000)

	require.Equal(t, 101, s.Len())
	assert.Equal(t, interval.ViabilityGood, s.Viability())
	assert.InDelta(t, 50, s.Prediction(), 1e-9)
	assert.InDelta(t, 15, interval.LPI(s, 0.7), 1)
	assert.InDelta(t, 85, interval.UPI(s, 0.7), 1)
	assert.Equal(t, 0.0, s.Quantile(0))
	assert.Equal(t, 100.0, s.Quantile(1))
	assert.LessOrEqual(t, interval.LPI(s, 0.7), interval.UPI(s, 0.7))
}

func TestLogNormalQuantileMonotonic(t *testing.T) {
	ln := interval.NewLogNormal(0.1, 0.3, 100, 10)
	prev := 0.0
	for _, q := range []float64{0.01, 0.1, 0.5, 0.9, 0.99} {
		v := ln.Quantile(q)
		assert.Greater(t, v, prev)
		prev = v
	}
	assert.InDelta(t, 100*math.Exp(0.1), ln.Quantile(0.5), 1e-6)
}

func TestPredictionBoundsOfMissingInterval(t *testing.T) {
	assert.True(t, math.IsNaN(interval.LPI(nil, 0.7)))
	assert.True(t, math.IsNaN(interval.UPI(nil, 0.7)))
	assert.False(t, interval.Viable(nil))
}

func TestLogNormalSingleTrialHasNoSpread(t *testing.T) {
	ln := interval.NewCostInterval([]interval.DataPoint{{Plan: 100, Actual: 150}})
	assert.Equal(t, interval.ViabilityNominal, ln.Viability())
	ln.SetInput(10)
	assert.InDelta(t, 15, ln.Quantile(0.1), 1e-9)
	assert.InDelta(t, 15, ln.Quantile(0.9), 1e-9)
}
