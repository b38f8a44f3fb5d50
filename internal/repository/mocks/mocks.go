package mocks

import (
	"context"

	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/domain/timelog"
	"github.com/stretchr/testify/mock"
)

// TaskListRepository is a mock for tasklist.Repository.
type TaskListRepository struct {
	mock.Mock
}

func (m *TaskListRepository) Create(ctx context.Context, info *tasklist.Info) error {
	args := m.Called(ctx, info)
	return args.Error(0)
}

func (m *TaskListRepository) Get(ctx context.Context, id string) (*tasklist.Info, error) {
	args := m.Called(ctx, id)
	if info, ok := args.Get(0).(*tasklist.Info); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskListRepository) GetByName(ctx context.Context, name string) (*tasklist.Info, error) {
	args := m.Called(ctx, name)
	if info, ok := args.Get(0).(*tasklist.Info); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskListRepository) List(ctx context.Context) ([]tasklist.Info, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]tasklist.Info); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskListRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *TaskListRepository) SaveNodes(ctx context.Context, id string, nodes []tasklist.NodeRecord) error {
	args := m.Called(ctx, id, nodes)
	return args.Error(0)
}

func (m *TaskListRepository) LoadNodes(ctx context.Context, id string) ([]tasklist.NodeRecord, error) {
	args := m.Called(ctx, id)
	if nodes, ok := args.Get(0).([]tasklist.NodeRecord); ok {
		return nodes, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskListRepository) SavePeriods(ctx context.Context, id string, periods []schedule.Spec) error {
	args := m.Called(ctx, id, periods)
	return args.Error(0)
}

func (m *TaskListRepository) LoadPeriods(ctx context.Context, id string) ([]schedule.Spec, error) {
	args := m.Called(ctx, id)
	if periods, ok := args.Get(0).([]schedule.Spec); ok {
		return periods, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskListRepository) SetRollupChildren(ctx context.Context, id string, children []string) error {
	args := m.Called(ctx, id, children)
	return args.Error(0)
}

func (m *TaskListRepository) GetRollupChildren(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if names, ok := args.Get(0).([]string); ok {
		return names, args.Error(1)
	}
	return nil, args.Error(1)
}

// TimeLogRepository is a mock for timelog.Repository.
type TimeLogRepository struct {
	mock.Mock
}

func (m *TimeLogRepository) Add(ctx context.Context, entry *timelog.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *TimeLogRepository) List(ctx context.Context, taskListID string, filter timelog.Filter) ([]timelog.Entry, error) {
	args := m.Called(ctx, taskListID, filter)
	if entries, ok := args.Get(0).([]timelog.Entry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}
