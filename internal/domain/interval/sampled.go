package interval

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// minSamples is the smallest finalized sample that is considered viable.
const minSamples = 10

// Sampled is an empirical interval built from simulation trials.
type Sampled struct {
	samples   []float64
	finalized bool
	mean      float64
}

// NewSampled creates an empty sampled interval with room for n samples.
func NewSampled(n int) *Sampled {
	return &Sampled{samples: make([]float64, 0, n)}
}

// AddSample records one trial. Non-finite samples are ignored.
func (s *Sampled) AddSample(v float64) {
	if s.finalized || !finite(v) {
		return
	}
	s.samples = append(s.samples, v)
}

// Finalize sorts the samples; no more samples are accepted afterwards.
func (s *Sampled) Finalize() {
	if s.finalized {
		return
	}
	s.finalized = true
	slices.Sort(s.samples)
	s.mean = math.NaN()
	if len(s.samples) > 0 {
		s.mean = stat.Mean(s.samples, nil)
	}
}

// Len returns the number of samples recorded.
func (s *Sampled) Len() int { return len(s.samples) }

func (s *Sampled) Prediction() float64 { return s.mean }

// Quantile interpolates linearly along the empirical CDF.
func (s *Sampled) Quantile(q float64) float64 {
	if !s.finalized || len(s.samples) == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	q = math.Min(1, math.Max(0, q))
	return stat.Quantile(q, stat.LinInterp, s.samples, nil)
}

func (s *Sampled) Viability() Viability {
	if !s.finalized || len(s.samples) < minSamples {
		return ViabilityNone
	}
	return ViabilityGood
}
