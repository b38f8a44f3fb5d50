package timelog

import (
	"context"
	"math"
	"slices"
)

// MemoryLog is a Source held entirely in memory.
type MemoryLog struct {
	entries []Entry
}

// NewMemoryLog returns a log holding a sorted copy of entries.
func NewMemoryLog(entries ...Entry) *MemoryLog {
	l := &MemoryLog{}
	for _, e := range entries {
		l.Append(e)
	}
	return l
}

// Append adds an entry, keeping the log ordered by start time.
func (l *MemoryLog) Append(e Entry) {
	e.Elapsed = sanitizeMinutes(e.Elapsed)
	i, _ := slices.BinarySearchFunc(l.entries, e, func(a, b Entry) int {
		return a.Start.Compare(b.Start)
	})
	for i < len(l.entries) && l.entries[i].Start.Equal(e.Start) {
		i++
	}
	l.entries = slices.Insert(l.entries, i, e)
}

// Entries returns the entries inside filter.
func (l *MemoryLog) Entries(_ context.Context, filter Filter) ([]Entry, error) {
	var out []Entry
	for _, e := range l.entries {
		if filter.Includes(e.Start) {
			out = append(out, e)
		}
	}
	return out, nil
}

// RepositorySource reads one task list's entries from a Repository.
type RepositorySource struct {
	Repo       Repository
	TaskListID string
}

func (s RepositorySource) Entries(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := s.Repo.List(ctx, s.TaskListID, filter)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Elapsed = sanitizeMinutes(entries[i].Elapsed)
	}
	return entries, nil
}

// Empty is a Source with no entries.
type Empty struct{}

func (Empty) Entries(context.Context, Filter) ([]Entry, error) { return nil, nil }

func sanitizeMinutes(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
