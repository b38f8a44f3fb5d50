package calculator

import "errors"

var (
	// ErrNoSchedule indicates a task list without a schedule.
	ErrNoSchedule = errors.New("task list has no schedule")
	// ErrNoTree indicates a task list without a task tree.
	ErrNoTree = errors.New("task list has no task tree")
	// ErrUnknownForecastMethod indicates an unsupported forecast method name.
	ErrUnknownForecastMethod = errors.New("unknown forecast method")
)
