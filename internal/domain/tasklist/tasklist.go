// Package tasklist names, stores and recalculates task lists: plain ones
// backed by a stored time log, ones read from definition files, and
// rollups of other task lists.
package tasklist

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/task"
	"github.com/rpggio/evtrack/internal/domain/timelog"
)

// TaskList is a named task list that can be recalculated and rolled up.
type TaskList interface {
	calculator.Child
	ID() string
	Kind() Kind
	Info() Info
}

// Data is a task list whose tree and schedule are held in memory and whose
// time log is read from src on every recalculation.
type Data struct {
	*calculator.LeafCalculator
	info Info
}

// NewData creates a data task list.
func NewData(info Info, tree *task.Tree, sched *schedule.Schedule, src timelog.Source, opts calculator.Options) *Data {
	c := calculator.NewLeafCalculator(tree, sched, src, opts)
	c.SetBaseline(info.Baseline())
	return &Data{LeafCalculator: c, info: info}
}

func (d *Data) ID() string   { return d.info.ID }
func (d *Data) Name() string { return d.info.Name }
func (d *Data) Kind() Kind   { return d.info.Kind }
func (d *Data) Info() Info   { return d.info }

// File is a task list read from a YAML definition file. The file is read
// again whenever it changes on disk.
type File struct {
	mu      sync.Mutex
	path    string
	opts    calculator.Options
	modTime time.Time
	*Data
}

// LoadFile reads a definition file. A file describing a rollup yields a
// Rollup whose children are resolved by name at recalculation time.
func LoadFile(path string, opts calculator.Options) (TaskList, error) {
	def, modTime, err := readDefinition(path)
	if err != nil {
		return nil, err
	}
	info := Info{Name: def.Name, Kind: KindFile, Path: path, CreatedAt: time.Now()}
	if def.IsRollup() {
		info.Kind = KindRollup
		return NewRollup(info, def.Rollup, opts), nil
	}
	f := &File{path: path, opts: opts}
	if err := f.apply(def, modTime, info); err != nil {
		return nil, err
	}
	return f, nil
}

func readDefinition(path string) (*Definition, time.Time, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading %s: %w", path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return def, st.ModTime(), nil
}

func (f *File) apply(def *Definition, modTime time.Time, info Info) error {
	if def.IsRollup() {
		return fmt.Errorf("%w: %s turned into a rollup", ErrInvalidDefinition, f.path)
	}
	tree, err := def.BuildTree()
	if err != nil {
		return err
	}
	sched, err := def.BuildSchedule()
	if err != nil {
		return err
	}
	info.Start = sched.StartDate()
	if b := def.BaselineOf(); b != nil {
		info.BaselineDate, info.BaselineMinutes = b.Date, b.Cost
	}
	f.Data = NewData(info, tree, sched, timelog.NewMemoryLog(def.Entries(info.ID)...), f.opts)
	f.modTime = modTime
	return nil
}

func (f *File) setID(id string) { f.info.ID = id }

// Path returns the definition file.
func (f *File) Path() string { return f.path }

// Recalculate rereads the file if it changed and recalculates. A file
// whose name changed is rejected; the list stays registered under the
// name it was loaded with.
func (f *File) Recalculate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, err := os.Stat(f.path); err == nil && st.ModTime().After(f.modTime) {
		def, modTime, err := readDefinition(f.path)
		if err != nil {
			return err
		}
		if def.Name != f.info.Name {
			return fmt.Errorf("%w: %s renamed %q to %q", ErrInvalidDefinition, f.path, f.info.Name, def.Name)
		}
		if err := f.apply(def, modTime, f.info); err != nil {
			return err
		}
	}
	return f.Data.Recalculate(ctx)
}

// Rollup aggregates other task lists, named by children.
type Rollup struct {
	*calculator.RollupCalculator
	info     Info
	children []string
}

// NewRollup creates a rollup. Children are attached by the Registry.
func NewRollup(info Info, children []string, opts calculator.Options) *Rollup {
	return &Rollup{
		RollupCalculator: calculator.NewRollupCalculator(info.Name, nil, opts),
		info:             info,
		children:         append([]string(nil), children...),
	}
}

func (r *Rollup) ID() string { return r.info.ID }
func (r *Rollup) Kind() Kind { return KindRollup }
func (r *Rollup) Info() Info { return r.info }

// ChildNames returns the names of the rolled up task lists.
func (r *Rollup) ChildNames() []string { return append([]string(nil), r.children...) }

func (r *Rollup) setID(id string) { r.info.ID = id }
