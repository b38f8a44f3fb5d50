package tasklist

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/rpggio/evtrack/internal/domain/calculator"
)

// Registry holds the loaded task lists by name and resolves rollup
// children. Recalculations are serialized.
type Registry struct {
	mu     sync.Mutex
	lists  map[string]TaskList
	closed bool
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{lists: make(map[string]TaskList), logger: logger}
}

// Register adds a task list. Names are unique.
func (r *Registry) Register(l TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.lists[l.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, l.Name())
	}
	r.lists[l.Name()] = l
	return nil
}

// Put adds or replaces a task list.
func (r *Registry) Put(l TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.lists[l.Name()] = l
	return nil
}

// Get returns the task list with the given name.
func (r *Registry) Get(name string) (TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	l, ok := r.lists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskListNotFound, name)
	}
	return l, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.lists))
	for name := range r.lists {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Remove drops a task list. Rollups naming it skip it from then on.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lists, name)
}

// Close empties the registry and rejects further use.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	clear(r.lists)
	return nil
}

// Recalculate recalculates the named task list and returns its snapshot.
// Rollup children are attached first; a child that is not registered is
// left out with a warning.
func (r *Registry) Recalculate(ctx context.Context, name string, includeCost bool) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	l, ok := r.lists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskListNotFound, name)
	}
	if err := r.attach(l, nil); err != nil {
		return nil, err
	}
	if err := l.Recalculate(ctx); err != nil {
		return nil, fmt.Errorf("recalculating %s: %w", name, err)
	}
	return NewSnapshot(l, includeCost), nil
}

// attach resolves the children of every rollup reachable from l. path
// holds the rollups being resolved above l.
func (r *Registry) attach(l TaskList, path []string) error {
	rollup, ok := l.(*Rollup)
	if !ok {
		return nil
	}
	if slices.Contains(path, rollup.Name()) {
		return fmt.Errorf("%w: %s", ErrRollupCycle, rollup.Name())
	}
	path = append(path, rollup.Name())
	children := make([]calculator.Child, 0, len(rollup.children))
	for _, name := range rollup.children {
		ch, ok := r.lists[name]
		if !ok {
			r.logger.Warn("rollup child not found", "rollup", rollup.Name(), "child", name)
			continue
		}
		if err := r.attach(ch, path); err != nil {
			return err
		}
		children = append(children, ch)
	}
	rollup.SetChildren(children)
	return nil
}
