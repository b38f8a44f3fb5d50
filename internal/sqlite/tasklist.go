package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/task"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/repository"
)

// TaskListRepository implements tasklist.Repository for SQLite
type TaskListRepository struct {
	db *DB
}

// NewTaskListRepository creates a new TaskListRepository
func NewTaskListRepository(db *DB) *TaskListRepository {
	return &TaskListRepository{db: db}
}

const taskListColumns = `id, name, kind, path, start_date, baseline_date, baseline_minutes, created_at`

// Create inserts a new task list
func (r *TaskListRepository) Create(ctx context.Context, info *tasklist.Info) error {
	createdAt := info.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO task_lists (` + taskListColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		info.ID,
		info.Name,
		string(info.Kind),
		info.Path,
		nullTime(info.Start),
		nullTime(info.BaselineDate),
		info.BaselineMinutes,
		createdAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: task list %s", repository.ErrConflict, info.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create task list: %w", err)
	}

	info.CreatedAt = createdAt
	return nil
}

// Get retrieves a task list by ID
func (r *TaskListRepository) Get(ctx context.Context, id string) (*tasklist.Info, error) {
	query := `SELECT ` + taskListColumns + ` FROM task_lists WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByName retrieves a task list by name
func (r *TaskListRepository) GetByName(ctx context.Context, name string) (*tasklist.Info, error) {
	query := `SELECT ` + taskListColumns + ` FROM task_lists WHERE name = ?`
	return r.getOne(ctx, query, name)
}

func (r *TaskListRepository) getOne(ctx context.Context, query string, arg string) (*tasklist.Info, error) {
	info, err := scanInfo(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task list: %w", err)
	}
	return info, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(row scanner) (*tasklist.Info, error) {
	var info tasklist.Info
	var kind string
	var start, baseline, created sql.NullTime
	err := row.Scan(
		&info.ID,
		&info.Name,
		&kind,
		&info.Path,
		&start,
		&baseline,
		&info.BaselineMinutes,
		&created,
	)
	if err != nil {
		return nil, err
	}
	info.Kind = tasklist.Kind(kind)
	info.Start = start.Time
	info.BaselineDate = baseline.Time
	info.CreatedAt = created.Time
	return &info, nil
}

// List returns every task list, oldest first
func (r *TaskListRepository) List(ctx context.Context) ([]tasklist.Info, error) {
	query := `SELECT ` + taskListColumns + ` FROM task_lists ORDER BY created_at ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}
	defer rows.Close()

	var infos []tasklist.Info
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task list: %w", err)
		}
		infos = append(infos, *info)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task list rows: %w", err)
	}

	return infos, nil
}

// Delete removes a task list and everything stored with it
func (r *TaskListRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task list: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SaveNodes replaces the stored work breakdown of a task list
func (r *TaskListRepository) SaveNodes(ctx context.Context, id string, nodes []tasklist.NodeRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_nodes WHERE task_list_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear task nodes: %w", err)
	}

	query := `
		INSERT INTO task_nodes (
			task_list_id, position, parent_position, name, plan_minutes,
			completed_at, ordinal, pruning, level_of_effort
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, n := range nodes {
		_, err := tx.ExecContext(ctx, query,
			id,
			n.Position,
			n.Parent,
			n.Name,
			n.PlanMinutes,
			nullTime(n.Completed),
			n.Ordinal,
			int(n.Pruning),
			n.LevelOfEffort,
		)
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if err != nil {
			return fmt.Errorf("failed to save task node: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadNodes returns the stored work breakdown in pre-order
func (r *TaskListRepository) LoadNodes(ctx context.Context, id string) ([]tasklist.NodeRecord, error) {
	query := `
		SELECT position, parent_position, name, plan_minutes, completed_at,
			ordinal, pruning, level_of_effort
		FROM task_nodes
		WHERE task_list_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task nodes: %w", err)
	}
	defer rows.Close()

	var nodes []tasklist.NodeRecord
	for rows.Next() {
		var n tasklist.NodeRecord
		var completed sql.NullTime
		var pruning int
		err := rows.Scan(
			&n.Position,
			&n.Parent,
			&n.Name,
			&n.PlanMinutes,
			&completed,
			&n.Ordinal,
			&pruning,
			&n.LevelOfEffort,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task node: %w", err)
		}
		n.Completed = completed.Time
		n.Pruning = task.Pruning(pruning)
		nodes = append(nodes, n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task node rows: %w", err)
	}

	return nodes, nil
}

// SavePeriods replaces the stored schedule periods of a task list
func (r *TaskListRepository) SavePeriods(ctx context.Context, id string, periods []schedule.Spec) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_periods WHERE task_list_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear schedule: %w", err)
	}

	query := `
		INSERT INTO schedule_periods (task_list_id, seq, end_date, plan_minutes)
		VALUES (?, ?, ?, ?)
	`
	for i, p := range periods {
		_, err := tx.ExecContext(ctx, query, id, i, p.End, p.PlanMinutes)
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if err != nil {
			return fmt.Errorf("failed to save schedule period: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadPeriods returns the stored schedule periods in order
func (r *TaskListRepository) LoadPeriods(ctx context.Context, id string) ([]schedule.Spec, error) {
	query := `
		SELECT end_date, plan_minutes
		FROM schedule_periods
		WHERE task_list_id = ?
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	defer rows.Close()

	var periods []schedule.Spec
	for rows.Next() {
		var p schedule.Spec
		if err := rows.Scan(&p.End, &p.PlanMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan schedule period: %w", err)
		}
		periods = append(periods, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule rows: %w", err)
	}

	return periods, nil
}

// SetRollupChildren replaces the names rolled up by a rollup
func (r *TaskListRepository) SetRollupChildren(ctx context.Context, id string, children []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rollup_children WHERE rollup_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear rollup children: %w", err)
	}

	for i, name := range children {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rollup_children (rollup_id, seq, child_name) VALUES (?, ?, ?)`,
			id, i, name)
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if err != nil {
			return fmt.Errorf("failed to save rollup child: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRollupChildren returns the names rolled up by a rollup, in order
func (r *TaskListRepository) GetRollupChildren(ctx context.Context, id string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT child_name FROM rollup_children WHERE rollup_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get rollup children: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan rollup child: %w", err)
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rollup rows: %w", err)
	}

	return names, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
