package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/evtrack/internal/domain/timelog"
	"github.com/rpggio/evtrack/internal/repository"
)

// TimeLogRepository implements timelog.Repository for SQLite
type TimeLogRepository struct {
	db *DB
}

// NewTimeLogRepository creates a new TimeLogRepository
func NewTimeLogRepository(db *DB) *TimeLogRepository {
	return &TimeLogRepository{db: db}
}

// Add inserts a new time log entry
func (r *TimeLogRepository) Add(ctx context.Context, entry *timelog.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO time_log (id, task_list_id, path, start_time, elapsed_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.TaskListID,
		entry.Path,
		entry.Start.UTC(),
		entry.Elapsed,
		createdAt,
	)
	if isForeignKeyViolation(err) {
		return repository.ErrForeignKeyViolation
	}
	if err != nil {
		return fmt.Errorf("failed to add time log entry: %w", err)
	}

	entry.CreatedAt = createdAt
	return nil
}

// List returns a task list's entries inside filter, ordered by start time.
// Times are stored in UTC so they compare as text.
func (r *TimeLogRepository) List(ctx context.Context, taskListID string, filter timelog.Filter) ([]timelog.Entry, error) {
	query := `
		SELECT id, task_list_id, path, start_time, elapsed_minutes, created_at
		FROM time_log
		WHERE task_list_id = ?
	`

	args := []interface{}{taskListID}
	conditions := []string{}

	if !filter.From.IsZero() {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "start_time < ?")
		args = append(args, filter.To.UTC())
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time log: %w", err)
	}
	defer rows.Close()

	var entries []timelog.Entry
	for rows.Next() {
		var e timelog.Entry
		err := rows.Scan(
			&e.ID,
			&e.TaskListID,
			&e.Path,
			&e.Start,
			&e.Elapsed,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time log entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time log rows: %w", err)
	}

	return entries, nil
}
