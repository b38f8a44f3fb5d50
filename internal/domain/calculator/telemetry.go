package calculator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evtrack_recalculations_total",
		Help: "Total number of task list recalculations",
	}, []string{"kind"})

	recalculationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evtrack_recalculation_duration_seconds",
		Help:    "Duration of task list recalculations",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.25, 1},
	}, []string{"kind"})

	droppedEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evtrack_dropped_time_log_entries_total",
		Help: "Time log entries whose path matched no task",
	})
)
