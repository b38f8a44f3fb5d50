package task

import "errors"

var (
	// ErrCycle indicates the tree links form a cycle or reference a node twice.
	ErrCycle = errors.New("task tree contains a cycle")
	// ErrNodeNotFound indicates a node ID outside the tree.
	ErrNodeNotFound = errors.New("task node not found")
	// ErrInvalidInput indicates invalid node input.
	ErrInvalidInput = errors.New("invalid task input")
)
