package tasklist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/task"
	"github.com/rpggio/evtrack/internal/domain/timelog"
	"gopkg.in/yaml.v3"
)

const (
	defaultPeriodDays = 7
	defaultPeriods    = 1
)

// Definition is the YAML form of a task list. A definition with rollup
// children describes a rollup and carries nothing else.
type Definition struct {
	Name     string         `yaml:"name"`
	Schedule *ScheduleDef   `yaml:"schedule,omitempty"`
	Baseline *BaselineDef   `yaml:"baseline,omitempty"`
	Tasks    []TaskDef      `yaml:"tasks,omitempty"`
	TimeLog  []TimeEntryDef `yaml:"time_log,omitempty"`
	Rollup   []string       `yaml:"rollup,omitempty"`
}

// ScheduleDef defines either equal periods or explicit ones.
type ScheduleDef struct {
	Start          time.Time   `yaml:"start"`
	PeriodDays     int         `yaml:"period_days,omitempty"`
	HoursPerPeriod float64     `yaml:"hours_per_period,omitempty"`
	Periods        int         `yaml:"periods,omitempty"`
	Explicit       []PeriodDef `yaml:"explicit,omitempty"`
}

type PeriodDef struct {
	End   time.Time `yaml:"end"`
	Hours float64   `yaml:"hours"`
}

type BaselineDef struct {
	Date  time.Time `yaml:"date"`
	Hours float64   `yaml:"hours"`
}

// TaskDef is one node of the work breakdown. Pruned set to false forces a
// node back in under a pruned parent.
type TaskDef struct {
	Name          string    `yaml:"name"`
	PlanMinutes   float64   `yaml:"plan_minutes,omitempty"`
	Completed     time.Time `yaml:"completed,omitempty"`
	Ordinal       int       `yaml:"ordinal,omitempty"`
	Pruned        *bool     `yaml:"pruned,omitempty"`
	LevelOfEffort float64   `yaml:"level_of_effort,omitempty"`
	Children      []TaskDef `yaml:"children,omitempty"`
}

type TimeEntryDef struct {
	Path    string    `yaml:"path"`
	Start   time.Time `yaml:"start"`
	Minutes float64   `yaml:"minutes"`
}

// ParseDefinition decodes and validates a YAML definition. Unknown keys
// are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Marshal encodes the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// IsRollup reports whether the definition describes a rollup.
func (d *Definition) IsRollup() bool { return len(d.Rollup) > 0 }

// Validate checks the definition.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if d.IsRollup() {
		if d.Schedule != nil || len(d.Tasks) > 0 || len(d.TimeLog) > 0 {
			return fmt.Errorf("%w: a rollup lists only its children", ErrInvalidDefinition)
		}
		for _, name := range d.Rollup {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("%w: empty rollup child name", ErrInvalidDefinition)
			}
		}
		return nil
	}
	if d.Schedule == nil || d.Schedule.Start.IsZero() {
		return fmt.Errorf("%w: schedule start is required", ErrInvalidDefinition)
	}
	if _, err := d.Schedule.specs(); err != nil {
		return err
	}
	if err := validateTasks(d.Tasks); err != nil {
		return err
	}
	for _, e := range d.TimeLog {
		if strings.TrimSpace(e.Path) == "" || e.Start.IsZero() {
			return fmt.Errorf("%w: time log entries need a path and a start", ErrInvalidDefinition)
		}
		if !finite(e.Minutes) || e.Minutes <= 0 {
			return fmt.Errorf("%w: time log entry for %s must have positive minutes", ErrInvalidDefinition, e.Path)
		}
	}
	return nil
}

func validateTasks(tasks []TaskDef) error {
	for _, t := range tasks {
		if strings.TrimSpace(t.Name) == "" || strings.Contains(t.Name, "/") {
			return fmt.Errorf("%w: invalid task name %q", ErrInvalidDefinition, t.Name)
		}
		if !finite(t.PlanMinutes) || t.PlanMinutes < 0 {
			return fmt.Errorf("%w: task %q has an invalid plan", ErrInvalidDefinition, t.Name)
		}
		if t.LevelOfEffort != 0 && !task.ValidLevelOfEffort(t.LevelOfEffort) {
			return fmt.Errorf("%w: task %q level of effort must be between 0 and 1", ErrInvalidDefinition, t.Name)
		}
		if err := validateTasks(t.Children); err != nil {
			return err
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *ScheduleDef) specs() ([]schedule.Spec, error) {
	if len(s.Explicit) > 0 {
		specs := make([]schedule.Spec, len(s.Explicit))
		prev := s.Start
		for i, p := range s.Explicit {
			if !p.End.After(prev) {
				return nil, fmt.Errorf("%w: schedule period %d does not end after the previous one", ErrInvalidDefinition, i+1)
			}
			if !finite(p.Hours) || p.Hours < 0 {
				return nil, fmt.Errorf("%w: schedule period %d has invalid hours", ErrInvalidDefinition, i+1)
			}
			specs[i] = schedule.Spec{End: p.End, PlanMinutes: p.Hours * 60}
			prev = p.End
		}
		return specs, nil
	}
	days, count := s.PeriodDays, s.Periods
	if days == 0 {
		days = defaultPeriodDays
	}
	if count == 0 {
		count = defaultPeriods
	}
	if days < 0 || count < 0 || !finite(s.HoursPerPeriod) || s.HoursPerPeriod < 0 {
		return nil, fmt.Errorf("%w: schedule sizes must not be negative", ErrInvalidDefinition)
	}
	specs := make([]schedule.Spec, count)
	end := s.Start
	for i := range specs {
		end = end.AddDate(0, 0, days)
		specs[i] = schedule.Spec{End: end, PlanMinutes: s.HoursPerPeriod * 60}
	}
	return specs, nil
}

// Periods returns the schedule start and its period definitions.
func (d *Definition) Periods() (time.Time, []schedule.Spec, error) {
	if d.Schedule == nil {
		return time.Time{}, nil, fmt.Errorf("%w: no schedule", ErrInvalidDefinition)
	}
	specs, err := d.Schedule.specs()
	return d.Schedule.Start, specs, err
}

// BuildSchedule creates the schedule.
func (d *Definition) BuildSchedule() (*schedule.Schedule, error) {
	start, specs, err := d.Periods()
	if err != nil {
		return nil, err
	}
	return schedule.FromSpecs(start, specs)
}

// BuildTree creates the task tree. The root is named after the task list.
func (d *Definition) BuildTree() (*task.Tree, error) {
	t := task.NewTree(d.Name)
	if err := addTasks(t, t.Root(), d.Tasks); err != nil {
		return nil, err
	}
	return t, nil
}

func addTasks(t *task.Tree, parent task.NodeID, defs []TaskDef) error {
	for _, def := range defs {
		id, err := t.AddChild(parent, def.Name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
		n := t.Node(id)
		n.TopDownPlanTime = def.PlanMinutes
		n.DateCompleted = def.Completed
		n.Ordinal = def.Ordinal
		n.UserLevelOfEffort = def.LevelOfEffort
		if def.Pruned != nil {
			n.Pruning = task.UserUnpruned
			if *def.Pruned {
				n.Pruning = task.UserPruned
			}
		}
		if err := addTasks(t, id, def.Children); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the inline time log.
func (d *Definition) Entries(taskListID string) []timelog.Entry {
	out := make([]timelog.Entry, len(d.TimeLog))
	for i, e := range d.TimeLog {
		out[i] = timelog.Entry{TaskListID: taskListID, Path: e.Path, Start: e.Start, Elapsed: e.Minutes}
	}
	return out
}

// BaselineOf returns the baseline, or nil.
func (d *Definition) BaselineOf() *calculator.Baseline {
	if d.Baseline == nil {
		return nil
	}
	return &calculator.Baseline{Date: d.Baseline.Date, Cost: d.Baseline.Hours * 60}
}
