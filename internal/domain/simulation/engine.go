// Package simulation builds rollup confidence intervals by Monte Carlo
// sampling of the intervals of the rolled up task lists.
package simulation

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rpggio/evtrack/internal/domain/interval"
	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/schedule"
)

const (
	// DefaultBaseSamples is the trial count for a single subject.
	DefaultBaseSamples = 1000
	minSamples         = 100
)

var (
	samplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evtrack_simulation_samples_total",
		Help: "Total number of Monte Carlo trials run",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evtrack_simulation_duration_seconds",
		Help:    "Duration of confidence interval simulations",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"mode"})
)

// Subject is one task list taking part in a simulation.
type Subject struct {
	Schedule *schedule.Schedule
	Metrics  *metrics.Metrics
	// TimeErr is the time estimating error used to turn sampled costs into
	// dates. Without one only cost is simulated.
	TimeErr interval.Interval
}

// Result holds the simulated intervals. Any may be nil.
type Result struct {
	Cost interval.Interval
	Date interval.Interval
	// OptimizedDate is the completion of the combined work against the
	// merged capacity of every subject.
	OptimizedDate interval.Interval
}

// Projector returns when cum minutes of direct time complete against the
// merged schedules of every subject, each subject's capacity scaled by the
// multiplier at the same index.
type Projector func(cum float64, multipliers []float64) time.Time

// Options configures an Engine.
type Options struct {
	BaseSamples int
	// Rand drives every trial. A seeded generator makes runs repeatable.
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Engine runs simulations. It is not safe for concurrent use because trials
// share one random generator.
type Engine struct {
	base   int
	rand   *rand.Rand
	logger *slog.Logger
}

// NewEngine creates an engine. Zero options are replaced by defaults.
func NewEngine(opts Options) *Engine {
	if opts.BaseSamples <= 0 {
		opts.BaseSamples = DefaultBaseSamples
	}
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{base: opts.BaseSamples, rand: opts.Rand, logger: opts.Logger}
}

// SampleCount returns the number of trials run for n subjects. Larger
// rollups average out more noise per trial and need fewer of them.
func (e *Engine) SampleCount(n int) int {
	if n < 1 {
		n = 1
	}
	count := int(float64(e.base) / math.Pow(float64(n), 0.75))
	return max(minSamples, count)
}

// Run simulates the combined remaining cost and completion date of
// subjects. Cost samples exclude time already logged, like the cost
// intervals they are drawn from. When any subject lacks a viable cost
// interval the result is empty. When any lacks a viable time error
// interval only cost is simulated. A non-nil merged projector adds the
// optimized date interval to date simulations.
func (e *Engine) Run(subjects []Subject, merged Projector) Result {
	if len(subjects) == 0 {
		return Result{}
	}
	for _, s := range subjects {
		if s.Metrics == nil || !interval.Viable(s.Metrics.CostInterval()) {
			return Result{}
		}
	}
	withDates := true
	for _, s := range subjects {
		if s.Schedule == nil || !interval.Viable(s.TimeErr) {
			withDates = false
			break
		}
	}

	mode := "cost"
	if withDates {
		mode = "date"
	}
	timer := prometheus.NewTimer(runDuration.WithLabelValues(mode))
	defer timer.ObserveDuration()

	n := e.SampleCount(len(subjects))
	cost := interval.NewSampled(n)
	var date, optimized *interval.Sampled
	if withDates {
		date = interval.NewSampled(n)
		if merged != nil {
			optimized = interval.NewSampled(n)
		}
	}
	actual := 0.0
	for _, s := range subjects {
		actual += s.Metrics.Actual()
	}
	ratios := make([]float64, len(subjects))

	for range n {
		total := 0.0
		var latest time.Time
		for i, s := range subjects {
			remaining := s.Metrics.CostInterval().Quantile(e.rand.Float64())
			total += remaining
			if !withDates {
				continue
			}
			// the ratio of actual to planned direct time scales the
			// capacity of every future period
			ratio := s.TimeErr.Quantile(e.rand.Float64())
			ratios[i] = ratio
			d := s.Schedule.HypotheticalDate(s.Metrics.Actual()+remaining, ratio)
			if d.After(latest) {
				latest = d
			}
		}
		cost.AddSample(total)
		if withDates {
			date.AddSample(interval.DateValue(latest))
		}
		if optimized != nil {
			optimized.AddSample(interval.DateValue(merged(actual+total, ratios)))
		}
	}
	samplesTotal.Add(float64(n))

	cost.Finalize()
	res := Result{Cost: cost}
	if withDates {
		date.Finalize()
		res.Date = date
	}
	if optimized != nil {
		optimized.Finalize()
		res.OptimizedDate = optimized
	}
	e.logger.Debug("simulation complete", "subjects", len(subjects), "samples", n, "mode", mode)
	return res
}
