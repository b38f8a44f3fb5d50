package tasklist_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/simulation"
	"github.com/rpggio/evtrack/internal/domain/task"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/domain/timelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() calculator.Options {
	opts := calculator.DefaultOptions()
	opts.Now = func() time.Time { return days(3) }
	opts.Engine = simulation.NewEngine(simulation.Options{BaseSamples: 200, Rand: rand.New(rand.NewPCG(7, 11))})
	return opts
}

func newData(t *testing.T, name string, plans map[string]float64, log ...timelog.Entry) *tasklist.Data {
	t.Helper()
	tree := task.NewTree(name)
	for _, path := range []string{"Code", "Test", "Docs"} {
		plan, ok := plans[path]
		if !ok {
			continue
		}
		id, err := tree.AddChild(tree.Root(), path)
		require.NoError(t, err)
		tree.Node(id).TopDownPlanTime = plan
	}
	sched := schedule.New(start, 7*24*time.Hour, 600, 4)
	info := tasklist.Info{ID: name + "-id", Name: name, Kind: tasklist.KindData, Start: start}
	return tasklist.NewData(info, tree, sched, timelog.NewMemoryLog(log...), testOptions())
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := tasklist.NewRegistry(nil)
	a := newData(t, "A", map[string]float64{"Code": 300})
	require.NoError(t, r.Register(a))
	require.ErrorIs(t, r.Register(newData(t, "A", nil)), tasklist.ErrDuplicateName)
	require.NoError(t, r.Register(newData(t, "B", nil)))

	got, err := r.Get("A")
	require.NoError(t, err)
	assert.Same(t, a, got)
	_, err = r.Get("C")
	assert.ErrorIs(t, err, tasklist.ErrTaskListNotFound)
	assert.Equal(t, []string{"A", "B"}, r.Names())

	replacement := newData(t, "A", nil)
	require.NoError(t, r.Put(replacement))
	got, err = r.Get("A")
	require.NoError(t, err)
	assert.Same(t, replacement, got)

	r.Remove("B")
	assert.Equal(t, []string{"A"}, r.Names())

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), tasklist.ErrClosed)
	_, err = r.Get("A")
	assert.ErrorIs(t, err, tasklist.ErrClosed)
	_, err = r.Recalculate(context.Background(), "A", true)
	assert.ErrorIs(t, err, tasklist.ErrClosed)
}

func TestRegistry_RecalculateData(t *testing.T) {
	r := tasklist.NewRegistry(nil)
	a := newData(t, "A", map[string]float64{"Code": 600, "Test": 300},
		timelog.Entry{Path: "/Code", Start: days(1), Elapsed: 300})
	require.NoError(t, r.Register(a))

	snap, err := r.Recalculate(context.Background(), "A", true)
	require.NoError(t, err)
	assert.Equal(t, "A-id", snap.ID)
	assert.Equal(t, tasklist.KindData, snap.Kind)
	assert.Equal(t, days(3), snap.EffectiveDate)
	assert.NotEmpty(t, snap.Metrics)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, "/Code", snap.Tasks[0].Path)
	assert.Equal(t, 300.0, snap.Tasks[0].ActualMinutes)
	require.NotNil(t, snap.Tree)
	assert.Equal(t, "A", snap.Tree.Name)
	assert.Len(t, snap.Tree.Children, 2)
	assert.Equal(t, 900.0, snap.Tree.PlanMinutes)
	assert.Len(t, snap.Periods, 5)

	_, err = r.Recalculate(context.Background(), "missing", true)
	assert.ErrorIs(t, err, tasklist.ErrTaskListNotFound)
}

func TestRegistry_RecalculateRollup(t *testing.T) {
	r := tasklist.NewRegistry(nil)
	require.NoError(t, r.Register(newData(t, "A", map[string]float64{"Code": 600})))
	require.NoError(t, r.Register(newData(t, "B", map[string]float64{"Test": 300})))
	require.NoError(t, r.Register(tasklist.NewRollup(tasklist.Info{ID: "team", Name: "Team"}, []string{"A", "B", "Gone"}, testOptions())))

	snap, err := r.Recalculate(context.Background(), "Team", true)
	require.NoError(t, err)
	assert.Equal(t, tasklist.KindRollup, snap.Kind)
	assert.Equal(t, "Team", snap.Tree.Name)
	require.Len(t, snap.Tree.Children, 2)
	assert.Equal(t, "A", snap.Tree.Children[0].Name)
	assert.Equal(t, 900.0, snap.Tree.PlanMinutes)
	assert.Len(t, snap.Tasks, 2)

	// A child that appears later is picked up on the next recalculation
	require.NoError(t, r.Register(newData(t, "Gone", map[string]float64{"Docs": 100})))
	snap, err = r.Recalculate(context.Background(), "Team", true)
	require.NoError(t, err)
	assert.Len(t, snap.Tree.Children, 3)
	assert.Equal(t, 1000.0, snap.Tree.PlanMinutes)
}

func TestRegistry_RollupOfRollups(t *testing.T) {
	r := tasklist.NewRegistry(nil)
	require.NoError(t, r.Register(newData(t, "A", map[string]float64{"Code": 600})))
	require.NoError(t, r.Register(newData(t, "B", map[string]float64{"Test": 300})))
	require.NoError(t, r.Register(tasklist.NewRollup(tasklist.Info{Name: "Inner"}, []string{"A"}, testOptions())))
	require.NoError(t, r.Register(tasklist.NewRollup(tasklist.Info{Name: "Outer"}, []string{"Inner", "B"}, testOptions())))

	snap, err := r.Recalculate(context.Background(), "Outer", true)
	require.NoError(t, err)
	require.Len(t, snap.Tree.Children, 2)
	assert.Equal(t, "Inner", snap.Tree.Children[0].Name)
	assert.Equal(t, "A", snap.Tree.Children[0].Children[0].Name)
	assert.Equal(t, 900.0, snap.Tree.PlanMinutes)
}

func TestRegistry_RollupCycle(t *testing.T) {
	r := tasklist.NewRegistry(nil)
	require.NoError(t, r.Register(tasklist.NewRollup(tasklist.Info{Name: "X"}, []string{"Y"}, testOptions())))
	require.NoError(t, r.Register(tasklist.NewRollup(tasklist.Info{Name: "Y"}, []string{"X"}, testOptions())))

	_, err := r.Recalculate(context.Background(), "X", true)
	assert.ErrorIs(t, err, tasklist.ErrRollupCycle)

	require.NoError(t, r.Register(tasklist.NewRollup(tasklist.Info{Name: "Self"}, []string{"Self"}, testOptions())))
	_, err = r.Recalculate(context.Background(), "Self", true)
	assert.ErrorIs(t, err, tasklist.ErrRollupCycle)
}

func TestSnapshot_OmitsCostMetrics(t *testing.T) {
	a := newData(t, "A", map[string]float64{"Code": 600},
		timelog.Entry{Path: "/Code", Start: days(1), Elapsed: 60})
	require.NoError(t, a.Recalculate(context.Background()))

	withCost := tasklist.NewSnapshot(a, true)
	without := tasklist.NewSnapshot(a, false)
	assert.Less(t, len(without.Metrics), len(withCost.Metrics))
}

func TestSnapshot_SeparatesWarningsFromErrors(t *testing.T) {
	long := newData(t, "Long", map[string]float64{"Code": 600 * 400})
	require.NoError(t, long.Recalculate(context.Background()))
	snap := tasklist.NewSnapshot(long, false)
	assert.Contains(t, snap.Errors, "The plan extends beyond the schedule horizon. ")
	assert.False(t, snap.HasErrors)

	future := newData(t, "Future", map[string]float64{"Code": 600},
		timelog.Entry{Path: "/Code", Start: days(10), Elapsed: 60})
	require.NoError(t, future.Recalculate(context.Background()))
	snap = tasklist.NewSnapshot(future, false)
	assert.Contains(t, snap.Errors, "Time has been logged in the future.")
	assert.True(t, snap.HasErrors)

	clean := newData(t, "Clean", map[string]float64{"Code": 600})
	require.NoError(t, clean.Recalculate(context.Background()))
	assert.False(t, tasklist.NewSnapshot(clean, false).HasErrors)
}
