package calculator

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/simulation"
)

// ForecastMethod selects how forecast completion dates are derived.
type ForecastMethod string

const (
	// ForecastTask projects each remaining task onto what the schedule has
	// actually delivered, corrected by the performance indexes.
	ForecastTask ForecastMethod = "task"
	// ForecastSchedule extrapolates the forecast cost through the schedule.
	ForecastSchedule ForecastMethod = "schedule"
	// ForecastSimple extrapolates elapsed time by percent complete.
	ForecastSimple ForecastMethod = "simple"
)

// ParseForecastMethod parses a forecast method name. The empty string
// selects ForecastTask.
func ParseForecastMethod(s string) (ForecastMethod, error) {
	switch m := ForecastMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ForecastTask, nil
	case ForecastTask, ForecastSchedule, ForecastSimple:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownForecastMethod, s)
	}
}

// Options controls a recalculation.
type Options struct {
	// ReorderCompletedTasks sorts every completed task by completion date
	// ahead of open work. Otherwise only tasks completed before the
	// schedule start move ahead.
	ReorderCompletedTasks bool
	// RezeroAtStartDate ignores work done before the schedule start for
	// everything but reducing the remaining plan.
	RezeroAtStartDate bool
	// EffectiveDate fixes the "as of" date. Zero means Now.
	EffectiveDate time.Time
	Now           func() time.Time

	ForecastMethod ForecastMethod
	Confidence     float64
	// AlmostDonePct is the share of the final cost assumed spent on a task
	// that has used up its plan.
	AlmostDonePct float64
	// MaxCPICorrection caps how much the savings of underspent tasks may
	// offset overspent ones when projecting task dates.
	MaxCPICorrection float64

	Engine *simulation.Engine
	Logger *slog.Logger
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		ReorderCompletedTasks: true,
		RezeroAtStartDate:     true,
		ForecastMethod:        ForecastTask,
		Confidence:            metrics.DefaultConfidence,
		AlmostDonePct:         0.9,
	}
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ForecastMethod == "" {
		o.ForecastMethod = ForecastTask
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		o.Confidence = metrics.DefaultConfidence
	}
	if o.AlmostDonePct <= 0 || o.AlmostDonePct > 1 {
		o.AlmostDonePct = 0.9
	}
	if o.MaxCPICorrection < 0 {
		o.MaxCPICorrection = 0
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Engine == nil {
		o.Engine = simulation.NewEngine(simulation.Options{Logger: o.Logger})
	}
	return o
}
