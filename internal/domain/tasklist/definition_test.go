package tasklist_test

import (
	"testing"
	"time"

	"github.com/rpggio/evtrack/internal/domain/task"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func days(n float64) time.Time {
	return start.Add(time.Duration(n * 24 * float64(time.Hour)))
}

const releaseYAML = `
name: Release
schedule:
  start: 2026-01-05
  hours_per_period: 10
  periods: 2
baseline:
  date: 2026-01-16
  hours: 12
tasks:
  - name: Code
    plan_minutes: 300
    children:
      - name: Design
        plan_minutes: 60
        completed: 2026-01-06T12:00:00Z
      - name: Spike
        plan_minutes: 120
        pruned: true
  - name: Test
    plan_minutes: 200
  - name: Meetings
    level_of_effort: 0.1
time_log:
  - path: /Code/Design
    start: 2026-01-05T09:00:00Z
    minutes: 90
`

func TestParseDefinition(t *testing.T) {
	def, err := tasklist.ParseDefinition([]byte(releaseYAML))
	require.NoError(t, err)
	assert.Equal(t, "Release", def.Name)
	assert.False(t, def.IsRollup())

	tree, err := def.BuildTree()
	require.NoError(t, err)
	assert.Equal(t, "Release", tree.Node(tree.Root()).Name)
	design := tree.Find("/Code/Design")
	require.NotEqual(t, task.NoNode, design)
	assert.Equal(t, days(1.5), tree.Node(design).DateCompleted)
	assert.Equal(t, task.UserPruned, tree.Node(tree.Find("/Code/Spike")).Pruning)
	assert.Equal(t, task.InferFromContext, tree.Node(tree.Find("/Test")).Pruning)
	assert.Equal(t, 0.1, tree.Node(tree.Find("/Meetings")).UserLevelOfEffort)

	sched, err := def.BuildSchedule()
	require.NoError(t, err)
	assert.Equal(t, 3, sched.Len())
	assert.Equal(t, start, sched.StartDate())
	assert.Equal(t, days(14), sched.Last().End)
	assert.Equal(t, 600.0, sched.Period(1).PlanTotalTime)

	entries := def.Entries("t1")
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].TaskListID)
	assert.Equal(t, 90.0, entries[0].Elapsed)

	b := def.BaselineOf()
	require.NotNil(t, b)
	assert.Equal(t, 720.0, b.Cost)
	assert.Equal(t, days(11), b.Date)
}

func TestParseDefinition_ExplicitPeriods(t *testing.T) {
	def, err := tasklist.ParseDefinition([]byte(`
name: Sprint
schedule:
  start: 2026-01-05
  explicit:
    - end: 2026-01-07
      hours: 4
    - end: 2026-01-12
      hours: 20
`))
	require.NoError(t, err)
	sched, err := def.BuildSchedule()
	require.NoError(t, err)
	require.Equal(t, 3, sched.Len())
	assert.Equal(t, days(2), sched.Period(1).End)
	assert.Equal(t, 240.0, sched.Period(1).PlanTotalTime)
	assert.Equal(t, 1200.0, sched.Period(2).PlanTotalTime)
}

func TestParseDefinition_Rollup(t *testing.T) {
	def, err := tasklist.ParseDefinition([]byte("name: Team\nrollup: [A, B]\n"))
	require.NoError(t, err)
	assert.True(t, def.IsRollup())
	assert.Equal(t, []string{"A", "B"}, def.Rollup)
}

func TestParseDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"unknown key", "name: X\ncolour: red\n"},
		{"no name", "schedule:\n  start: 2026-01-05\n"},
		{"no schedule", "name: X\n"},
		{"rollup with tasks", "name: X\nrollup: [A]\ntasks:\n  - name: Code\n"},
		{"slash in task name", "name: X\nschedule:\n  start: 2026-01-05\ntasks:\n  - name: a/b\n"},
		{"negative plan", "name: X\nschedule:\n  start: 2026-01-05\ntasks:\n  - name: a\n    plan_minutes: -5\n"},
		{"level of effort too big", "name: X\nschedule:\n  start: 2026-01-05\ntasks:\n  - name: a\n    level_of_effort: 1.5\n"},
		{"periods out of order", "name: X\nschedule:\n  start: 2026-01-05\n  explicit:\n    - end: 2026-01-04\n      hours: 1\n"},
		{"zero minutes logged", "name: X\nschedule:\n  start: 2026-01-05\ntime_log:\n  - path: /a\n    start: 2026-01-05\n    minutes: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tasklist.ParseDefinition([]byte(tt.yaml))
			require.ErrorIs(t, err, tasklist.ErrInvalidDefinition)
		})
	}
}

func TestDefinition_DuplicateTasks(t *testing.T) {
	def, err := tasklist.ParseDefinition([]byte("name: X\nschedule:\n  start: 2026-01-05\ntasks:\n  - name: a\n  - name: a\n"))
	require.NoError(t, err)
	// Duplicate siblings are reported by the calculation, not rejected.
	tree, err := def.BuildTree()
	require.NoError(t, err)
	assert.Len(t, tree.Children(tree.Root()), 2)
}

func TestFlattenRebuild(t *testing.T) {
	def, err := tasklist.ParseDefinition([]byte(releaseYAML))
	require.NoError(t, err)
	tree, err := def.BuildTree()
	require.NoError(t, err)

	recs := tasklist.Flatten(tree)
	require.Len(t, recs, tree.Len())
	assert.Equal(t, -1, recs[0].Parent)

	rebuilt, err := tasklist.Rebuild(recs)
	require.NoError(t, err)
	assert.Equal(t, recs, tasklist.Flatten(rebuilt))

	_, err = tasklist.Rebuild(nil)
	assert.ErrorIs(t, err, tasklist.ErrInvalidDefinition)
	bad := append([]tasklist.NodeRecord(nil), recs...)
	bad[1].Parent = 5
	_, err = tasklist.Rebuild(bad)
	assert.ErrorIs(t, err, tasklist.ErrInvalidDefinition)
}
