package tasklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/timelog"
	"github.com/rpggio/evtrack/internal/repository"
)

// Service handles task list operations.
type Service struct {
	repo     Repository
	logs     *timelog.Service
	logRepo  timelog.Repository
	registry *Registry
	opts     calculator.Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new task list service.
func NewService(repo Repository, logRepo timelog.Repository, opts calculator.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &Service{
		repo:     repo,
		logs:     timelog.NewService(logRepo, logger),
		logRepo:  logRepo,
		registry: NewRegistry(logger),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Registry returns the loaded task lists.
func (s *Service) Registry() *Registry { return s.registry }

// Load registers every stored task list. Lists that fail to load are
// skipped with a warning.
func (s *Service) Load(ctx context.Context) error {
	infos, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing task lists: %w", err)
	}
	for _, info := range infos {
		l, err := s.open(ctx, info)
		if err != nil {
			s.logger.Warn("task list not loaded", "name", info.Name, "error", err)
			continue
		}
		if err := s.registry.Put(l); err != nil {
			return err
		}
	}
	s.logger.Info("task lists loaded", "count", len(infos))
	return nil
}

func (s *Service) open(ctx context.Context, info Info) (TaskList, error) {
	if info.Path != "" {
		l, err := LoadFile(info.Path, s.opts)
		if err != nil {
			return nil, err
		}
		setID(l, info.ID)
		return l, nil
	}
	switch info.Kind {
	case KindRollup:
		children, err := s.repo.GetRollupChildren(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("loading rollup children: %w", err)
		}
		return NewRollup(info, children, s.opts), nil
	case KindData:
		recs, err := s.repo.LoadNodes(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("loading tasks: %w", err)
		}
		tree, err := Rebuild(recs)
		if err != nil {
			return nil, err
		}
		specs, err := s.repo.LoadPeriods(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("loading schedule: %w", err)
		}
		sched, err := schedule.FromSpecs(info.Start, specs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
		src := timelog.RepositorySource{Repo: s.logRepo, TaskListID: info.ID}
		return NewData(info, tree, sched, src, s.opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDefinition, info.Kind)
	}
}

func setID(l TaskList, id string) {
	switch v := l.(type) {
	case *File:
		v.setID(id)
	case *Rollup:
		v.setID(id)
	}
}

// ImportYAML parses a definition and imports it.
func (s *Service) ImportYAML(ctx context.Context, data []byte) (*Info, error) {
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, def)
}

// Import stores a definition as a new task list, logs its inline time
// entries and registers it.
func (s *Service) Import(ctx context.Context, def *Definition) (*Info, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, def.Name); err != nil {
		return nil, err
	}

	info := &Info{
		ID:        uuid.NewString(),
		Name:      def.Name,
		Kind:      KindData,
		CreatedAt: s.now(),
	}
	if def.IsRollup() {
		info.Kind = KindRollup
		if err := s.repo.Create(ctx, info); err != nil {
			return nil, fmt.Errorf("creating task list: %w", err)
		}
		if err := s.repo.SetRollupChildren(ctx, info.ID, def.Rollup); err != nil {
			return nil, fmt.Errorf("saving rollup children: %w", err)
		}
		if err := s.registry.Register(NewRollup(*info, def.Rollup, s.opts)); err != nil {
			return nil, err
		}
		s.logger.Info("rollup imported", "name", info.Name, "children", len(def.Rollup))
		return info, nil
	}

	tree, err := def.BuildTree()
	if err != nil {
		return nil, err
	}
	start, specs, err := def.Periods()
	if err != nil {
		return nil, err
	}
	sched, err := schedule.FromSpecs(start, specs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	info.Start = start
	if b := def.BaselineOf(); b != nil {
		info.BaselineDate, info.BaselineMinutes = b.Date, b.Cost
	}

	if err := s.repo.Create(ctx, info); err != nil {
		return nil, fmt.Errorf("creating task list: %w", err)
	}
	if err := s.repo.SaveNodes(ctx, info.ID, Flatten(tree)); err != nil {
		return nil, fmt.Errorf("saving tasks: %w", err)
	}
	if err := s.repo.SavePeriods(ctx, info.ID, specs); err != nil {
		return nil, fmt.Errorf("saving schedule: %w", err)
	}
	for _, e := range def.Entries(info.ID) {
		if _, err := s.logs.Log(ctx, timelog.LogRequest{TaskListID: info.ID, Path: e.Path, Start: e.Start, Elapsed: e.Elapsed}); err != nil {
			return nil, err
		}
	}

	src := timelog.RepositorySource{Repo: s.logRepo, TaskListID: info.ID}
	if err := s.registry.Register(NewData(*info, tree, sched, src, s.opts)); err != nil {
		return nil, err
	}
	s.logger.Info("task list imported", "name", info.Name, "tasks", tree.Len()-1, "entries", len(def.TimeLog))
	return info, nil
}

// AddFile registers a definition file as a task list. The file is read
// again when it changes.
func (s *Service) AddFile(ctx context.Context, path string) (*Info, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	l, err := LoadFile(path, s.opts)
	if err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, l.Name()); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	setID(l, id)
	info := l.Info()
	info.CreatedAt = s.now()
	if err := s.repo.Create(ctx, &info); err != nil {
		return nil, fmt.Errorf("creating task list: %w", err)
	}
	if err := s.registry.Register(l); err != nil {
		return nil, err
	}
	s.logger.Info("task list file added", "name", info.Name, "path", path)
	return &info, nil
}

// AddFiles registers each definition file that is not already loaded.
// Files that cannot be added are skipped with a warning.
func (s *Service) AddFiles(ctx context.Context, paths []string) int {
	loaded := make(map[string]bool)
	for _, name := range s.registry.Names() {
		if l, err := s.registry.Get(name); err == nil && l.Info().Path != "" {
			loaded[l.Info().Path] = true
		}
	}
	added := 0
	for _, path := range paths {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if loaded[path] {
			continue
		}
		if _, err := s.AddFile(ctx, path); err != nil {
			s.logger.Warn("task list file not added", "path", path, "error", err)
			continue
		}
		loaded[path] = true
		added++
	}
	return added
}

func (s *Service) checkName(ctx context.Context, name string) error {
	if _, err := s.registry.Get(name); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	_, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("checking task list name: %w", err)
	}
}

// LogTimeRequest defines time-log inputs for a named task list.
type LogTimeRequest struct {
	TaskList string
	Path     string
	Start    time.Time
	Minutes  float64
}

// LogTime records time against a task of a stored task list.
func (s *Service) LogTime(ctx context.Context, req LogTimeRequest) (*timelog.Entry, error) {
	l, err := s.registry.Get(strings.TrimSpace(req.TaskList))
	if err != nil {
		return nil, err
	}
	if _, ok := l.(*Data); !ok {
		return nil, fmt.Errorf("%w: %s is a %s task list", ErrNotLoggable, l.Name(), l.Kind())
	}
	return s.logs.Log(ctx, timelog.LogRequest{
		TaskListID: l.ID(),
		Path:       req.Path,
		Start:      req.Start,
		Elapsed:    req.Minutes,
	})
}

// TimeLog returns the stored entries of a task list.
func (s *Service) TimeLog(ctx context.Context, name string, filter timelog.Filter) ([]timelog.Entry, error) {
	l, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if _, ok := l.(*Data); !ok {
		return nil, fmt.Errorf("%w: %s is a %s task list", ErrNotLoggable, l.Name(), l.Kind())
	}
	return s.logs.List(ctx, l.ID(), filter)
}

// Recalculate recalculates a task list and returns its snapshot.
func (s *Service) Recalculate(ctx context.Context, name string, includeCost bool) (*Snapshot, error) {
	return s.registry.Recalculate(ctx, name, includeCost)
}

// Get returns the stored description of a task list.
func (s *Service) Get(ctx context.Context, name string) (*Info, error) {
	info, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskListNotFound, name)
		}
		return nil, fmt.Errorf("getting task list: %w", err)
	}
	return info, nil
}

// List returns the registered task lists.
func (s *Service) List() []Summary {
	names := s.registry.Names()
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		l, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, Summary{ID: l.ID(), Name: name, Kind: l.Kind()})
	}
	return out
}

// Delete removes a task list from storage and from the registry.
func (s *Service) Delete(ctx context.Context, name string) error {
	info, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, info.ID); err != nil {
		return fmt.Errorf("deleting task list: %w", err)
	}
	s.registry.Remove(name)
	s.logger.Info("task list deleted", "name", name)
	return nil
}
