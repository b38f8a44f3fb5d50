package schedule

import "errors"

var (
	// ErrRunawayGrowth indicates growth that cannot advance the schedule end.
	ErrRunawayGrowth = errors.New("schedule growth made no progress")
	// ErrHorizonReached indicates the schedule already holds MaxPeriods.
	ErrHorizonReached = errors.New("schedule horizon reached")
	// ErrFixedSchedule indicates an attempt to grow a merged schedule.
	ErrFixedSchedule = errors.New("schedule cannot grow")
	// ErrInvalidPeriods indicates period end dates that are not ascending.
	ErrInvalidPeriods = errors.New("invalid schedule periods")
)
