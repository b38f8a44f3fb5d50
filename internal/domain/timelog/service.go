package timelog

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service handles time-log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new time-log service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// LogRequest defines time-log inputs.
type LogRequest struct {
	TaskListID string
	Path       string
	Start      time.Time
	Elapsed    float64
}

// Log records a block of time. A missing start time means "now".
func (s *Service) Log(ctx context.Context, req LogRequest) (*Entry, error) {
	path := strings.TrimSpace(req.Path)
	if strings.TrimSpace(req.TaskListID) == "" || path == "" {
		return nil, ErrInvalidInput
	}
	if math.IsNaN(req.Elapsed) || math.IsInf(req.Elapsed, 0) || req.Elapsed <= 0 {
		return nil, fmt.Errorf("%w: elapsed minutes must be positive", ErrInvalidInput)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	now := s.now()
	entry := &Entry{
		ID:         uuid.NewString(),
		TaskListID: req.TaskListID,
		Path:       path,
		Start:      req.Start,
		Elapsed:    req.Elapsed,
		CreatedAt:  now,
	}
	if entry.Start.IsZero() {
		entry.Start = now
	}

	if err := s.repo.Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("logging time: %w", err)
	}
	s.logger.Debug("time logged", "task_list_id", entry.TaskListID, "path", entry.Path, "minutes", entry.Elapsed)
	return entry, nil
}

// List returns a task list's entries inside filter.
func (s *Service) List(ctx context.Context, taskListID string, filter Filter) ([]Entry, error) {
	entries, err := s.repo.List(ctx, taskListID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing time log: %w", err)
	}
	return entries, nil
}
