package timelog

import "context"

// Source supplies time-log entries, ordered by start time.
type Source interface {
	Entries(ctx context.Context, filter Filter) ([]Entry, error)
}

// Repository provides persistence for time-log entries.
type Repository interface {
	Add(ctx context.Context, entry *Entry) error
	List(ctx context.Context, taskListID string, filter Filter) ([]Entry, error)
}
