package timelog

import "time"

// Entry is one block of time logged against a task path.
type Entry struct {
	ID         string    `json:"id"`
	TaskListID string    `json:"task_list_id"`
	Path       string    `json:"path"`
	Start      time.Time `json:"start"`
	Elapsed    float64   `json:"elapsed_minutes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter bounds the entries returned by a Source. From is inclusive, To is
// exclusive; zero values are unbounded.
type Filter struct {
	From time.Time
	To   time.Time
}

// Includes reports whether t falls inside the filter range.
func (f Filter) Includes(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Before(f.To) {
		return false
	}
	return true
}
