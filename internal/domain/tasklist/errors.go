package tasklist

import "errors"

var (
	// ErrTaskListNotFound indicates no task list has the requested name.
	ErrTaskListNotFound = errors.New("task list not found")
	// ErrDuplicateName indicates a task list with the same name exists.
	ErrDuplicateName = errors.New("task list name already in use")
	// ErrInvalidDefinition indicates a task list definition that can not be
	// turned into a task list.
	ErrInvalidDefinition = errors.New("invalid task list definition")
	// ErrRollupCycle indicates a rollup that contains itself.
	ErrRollupCycle = errors.New("rollup contains itself")
	// ErrNotLoggable indicates time logged against a task list without a
	// stored time log.
	ErrNotLoggable = errors.New("task list does not accept time log entries")
	// ErrClosed indicates use of a closed registry.
	ErrClosed = errors.New("task list registry is closed")
)
