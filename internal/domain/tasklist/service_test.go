package tasklist_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/domain/timelog"
	"github.com/rpggio/evtrack/internal/repository"
	"github.com/rpggio/evtrack/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTaskListService_Import(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskListRepository{}
	logRepo := &mocks.TimeLogRepository{}

	repo.On("GetByName", ctx, "Release").Return((*tasklist.Info)(nil), repository.ErrNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(info *tasklist.Info) bool {
		return info.Name == "Release" && info.Kind == tasklist.KindData && info.ID != "" &&
			info.Start.Equal(start) && info.BaselineMinutes == 720
	})).Return(nil)
	repo.On("SaveNodes", ctx, mock.Anything, mock.MatchedBy(func(recs []tasklist.NodeRecord) bool {
		return len(recs) == 6 && recs[0].Name == "Release"
	})).Return(nil)
	repo.On("SavePeriods", ctx, mock.Anything, mock.MatchedBy(func(specs []schedule.Spec) bool {
		return len(specs) == 2 && specs[0].PlanMinutes == 600
	})).Return(nil)
	logRepo.On("Add", ctx, mock.MatchedBy(func(e *timelog.Entry) bool {
		return e.Path == "/Code/Design" && e.Elapsed == 90
	})).Return(nil)

	svc := tasklist.NewService(repo, logRepo, testOptions(), nil)
	info, err := svc.ImportYAML(ctx, []byte(releaseYAML))
	require.NoError(t, err)
	assert.Equal(t, "Release", info.Name)
	repo.AssertExpectations(t)
	logRepo.AssertExpectations(t)

	assert.Equal(t, []tasklist.Summary{{ID: info.ID, Name: "Release", Kind: tasklist.KindData}}, svc.List())

	// The stored time log is read on recalculation
	logRepo.On("List", mock.Anything, info.ID, timelog.Filter{}).Return([]timelog.Entry{
		{TaskListID: info.ID, Path: "/Code/Design", Start: days(0.375), Elapsed: 90},
	}, nil)
	snap, err := svc.Recalculate(ctx, "Release", true)
	require.NoError(t, err)
	assert.Equal(t, info.ID, snap.ID)
	assert.Equal(t, 90.0, snap.Tree.ActualMinutes)
}

func TestTaskListService_ImportDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskListRepository{}
	repo.On("GetByName", ctx, "Team").Return(&tasklist.Info{ID: "x", Name: "Team"}, nil)

	svc := tasklist.NewService(repo, &mocks.TimeLogRepository{}, testOptions(), nil)
	_, err := svc.ImportYAML(ctx, []byte("name: Team\nrollup: [A]\n"))
	require.ErrorIs(t, err, tasklist.ErrDuplicateName)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTaskListService_ImportRollup(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskListRepository{}
	repo.On("GetByName", ctx, "Team").Return((*tasklist.Info)(nil), repository.ErrNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(info *tasklist.Info) bool {
		return info.Kind == tasklist.KindRollup
	})).Return(nil)
	repo.On("SetRollupChildren", ctx, mock.Anything, []string{"A", "B"}).Return(nil)

	svc := tasklist.NewService(repo, &mocks.TimeLogRepository{}, testOptions(), nil)
	_, err := svc.ImportYAML(ctx, []byte("name: Team\nrollup: [A, B]\n"))
	require.NoError(t, err)
	repo.AssertExpectations(t)

	// Rollups have no time log of their own
	_, err = svc.LogTime(ctx, tasklist.LogTimeRequest{TaskList: "Team", Path: "/A/Code", Minutes: 5})
	require.ErrorIs(t, err, tasklist.ErrNotLoggable)

	// Children that do not exist are left out
	snap, err := svc.Recalculate(ctx, "Team", false)
	require.NoError(t, err)
	assert.Empty(t, snap.Tree.Children)
}

func TestTaskListService_ImportInvalid(t *testing.T) {
	svc := tasklist.NewService(&mocks.TaskListRepository{}, &mocks.TimeLogRepository{}, testOptions(), nil)
	_, err := svc.ImportYAML(context.Background(), []byte("name: X\n"))
	require.ErrorIs(t, err, tasklist.ErrInvalidDefinition)
}

func TestTaskListService_Load(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskListRepository{}
	logRepo := &mocks.TimeLogRepository{}
	repo.On("List", ctx).Return([]tasklist.Info{
		{ID: "a", Name: "A", Kind: tasklist.KindData, Start: start},
		{ID: "team", Name: "Team", Kind: tasklist.KindRollup},
		{ID: "broken", Name: "Broken", Kind: tasklist.KindData, Start: start},
	}, nil)
	repo.On("LoadNodes", ctx, "a").Return([]tasklist.NodeRecord{
		{Position: 0, Parent: -1, Name: "A"},
		{Position: 1, Parent: 0, Name: "Code", PlanMinutes: 300},
	}, nil)
	repo.On("LoadPeriods", ctx, "a").Return([]schedule.Spec{{End: days(7), PlanMinutes: 600}}, nil)
	repo.On("GetRollupChildren", ctx, "team").Return([]string{"A"}, nil)
	repo.On("LoadNodes", ctx, "broken").Return([]tasklist.NodeRecord(nil), nil)

	svc := tasklist.NewService(repo, logRepo, testOptions(), nil)
	require.NoError(t, svc.Load(ctx))
	assert.Equal(t, []string{"A", "Team"}, svc.Registry().Names())

	logRepo.On("List", mock.Anything, "a", timelog.Filter{}).Return([]timelog.Entry{
		{TaskListID: "a", Path: "/Code", Start: days(1), Elapsed: 60},
	}, nil)
	snap, err := svc.Recalculate(ctx, "Team", true)
	require.NoError(t, err)
	require.Len(t, snap.Tree.Children, 1)
	assert.Equal(t, 60.0, snap.Tree.ActualMinutes)
}

func TestTaskListService_LogTime(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskListRepository{}
	logRepo := &mocks.TimeLogRepository{}
	repo.On("List", ctx).Return([]tasklist.Info{{ID: "a", Name: "A", Kind: tasklist.KindData, Start: start}}, nil)
	repo.On("LoadNodes", ctx, "a").Return([]tasklist.NodeRecord{{Position: 0, Parent: -1, Name: "A"}}, nil)
	repo.On("LoadPeriods", ctx, "a").Return([]schedule.Spec{{End: days(7), PlanMinutes: 600}}, nil)
	logRepo.On("Add", ctx, mock.MatchedBy(func(e *timelog.Entry) bool {
		return e.TaskListID == "a" && e.Path == "/Code" && e.Elapsed == 15
	})).Return(nil)

	svc := tasklist.NewService(repo, logRepo, testOptions(), nil)
	require.NoError(t, svc.Load(ctx))

	entry, err := svc.LogTime(ctx, tasklist.LogTimeRequest{TaskList: "A", Path: "Code", Start: days(1), Minutes: 15})
	require.NoError(t, err)
	assert.Equal(t, "/Code", entry.Path)
	logRepo.AssertExpectations(t)

	_, err = svc.LogTime(ctx, tasklist.LogTimeRequest{TaskList: "Nope", Path: "Code", Minutes: 15})
	require.ErrorIs(t, err, tasklist.ErrTaskListNotFound)
	_, err = svc.LogTime(ctx, tasklist.LogTimeRequest{TaskList: "A", Path: "Code", Minutes: 0})
	require.ErrorIs(t, err, timelog.ErrInvalidInput)
}

func TestTaskListService_AddFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "release.yaml")
	require.NoError(t, os.WriteFile(path, []byte(releaseYAML), 0o644))

	repo := &mocks.TaskListRepository{}
	repo.On("GetByName", ctx, "Release").Return((*tasklist.Info)(nil), repository.ErrNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(info *tasklist.Info) bool {
		return info.Kind == tasklist.KindFile && info.Path == path && info.ID != ""
	})).Return(nil)

	svc := tasklist.NewService(repo, &mocks.TimeLogRepository{}, testOptions(), nil)
	info, err := svc.AddFile(ctx, path)
	require.NoError(t, err)
	repo.AssertExpectations(t)

	snap, err := svc.Recalculate(ctx, "Release", true)
	require.NoError(t, err)
	assert.Equal(t, info.ID, snap.ID)
	assert.Equal(t, tasklist.KindFile, snap.Kind)
	assert.Equal(t, 90.0, snap.Tree.ActualMinutes)

	_, err = svc.LogTime(ctx, tasklist.LogTimeRequest{TaskList: "Release", Path: "/Code", Minutes: 5})
	require.ErrorIs(t, err, tasklist.ErrNotLoggable)

	// Edits to the file are picked up
	edited := []byte("name: Release\nschedule:\n  start: 2026-01-05\n  hours_per_period: 10\ntasks:\n  - name: Code\n    plan_minutes: 50\n")
	require.NoError(t, os.WriteFile(path, edited, 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	snap, err = svc.Recalculate(ctx, "Release", true)
	require.NoError(t, err)
	assert.Equal(t, 50.0, snap.Tree.PlanMinutes)
	assert.Equal(t, 0.0, snap.Tree.ActualMinutes)

	// Renaming the list in the file is rejected; the loaded list is kept
	renamed := []byte("name: Shipping\nschedule:\n  start: 2026-01-05\n  hours_per_period: 10\ntasks:\n  - name: Code\n    plan_minutes: 70\n")
	require.NoError(t, os.WriteFile(path, renamed, 0o644))
	later = later.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	_, err = svc.Recalculate(ctx, "Release", true)
	require.ErrorIs(t, err, tasklist.ErrInvalidDefinition)
	_, err = svc.Recalculate(ctx, "Shipping", true)
	require.ErrorIs(t, err, tasklist.ErrTaskListNotFound)
	require.Len(t, svc.List(), 1)
	assert.Equal(t, "Release", svc.List()[0].Name)

	require.NoError(t, os.WriteFile(path, edited, 0o644))
	later = later.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	snap, err = svc.Recalculate(ctx, "Release", true)
	require.NoError(t, err)
	assert.Equal(t, 50.0, snap.Tree.PlanMinutes)
}

func TestTaskListService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TaskListRepository{}
	repo.On("GetByName", ctx, "Team").Return((*tasklist.Info)(nil), repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.Anything).Return(nil)
	repo.On("SetRollupChildren", ctx, mock.Anything, mock.Anything).Return(nil)

	svc := tasklist.NewService(repo, &mocks.TimeLogRepository{}, testOptions(), nil)
	info, err := svc.ImportYAML(ctx, []byte("name: Team\nrollup: [A]\n"))
	require.NoError(t, err)

	repo.On("GetByName", ctx, "Team").Return(info, nil)
	repo.On("Delete", ctx, info.ID).Return(nil)
	require.NoError(t, svc.Delete(ctx, "Team"))
	assert.Empty(t, svc.Registry().Names())

	repo.On("GetByName", ctx, "Nope").Return((*tasklist.Info)(nil), repository.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "Nope"), tasklist.ErrTaskListNotFound)
}

func TestTaskListService_AddFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	release := filepath.Join(dir, "release.yaml")
	require.NoError(t, os.WriteFile(release, []byte(releaseYAML), 0o644))
	missing := filepath.Join(dir, "missing.yaml")

	repo := &mocks.TaskListRepository{}
	repo.On("List", ctx).Return([]tasklist.Info{{ID: "r", Name: "Release", Kind: tasklist.KindFile, Path: release}}, nil)

	svc := tasklist.NewService(repo, &mocks.TimeLogRepository{}, testOptions(), nil)
	require.NoError(t, svc.Load(ctx))

	// Already loaded from storage; the missing file is skipped.
	assert.Equal(t, 0, svc.AddFiles(ctx, []string{release, missing}))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"Release"}, svc.Registry().Names())
}
