package timelog

import "errors"

// ErrInvalidInput indicates an invalid time-log entry.
var ErrInvalidInput = errors.New("invalid time log input")
