package calculator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/evtrack/internal/domain/interval"
	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/simulation"
	"github.com/rpggio/evtrack/internal/domain/task"
)

// Child is a task list that can take part in a rollup.
type Child interface {
	Name() string
	Tree() *task.Tree
	Schedule() *schedule.Schedule
	Metrics() *metrics.Metrics
	EVLeaves() []Leaf
	Recalculate(ctx context.Context) error
}

// RollupCalculator aggregates other task lists. Its tree holds a copy of
// every child tree under a synthetic root, and its schedule merges the
// children's schedules.
type RollupCalculator struct {
	name     string
	children []Child
	opts     Options
	logger   *slog.Logger

	tree    *task.Tree
	sched   *schedule.Schedule
	metrics *metrics.Metrics
	leaves  []Leaf
}

// NewRollupCalculator creates a rollup over children.
func NewRollupCalculator(name string, children []Child, opts Options) *RollupCalculator {
	opts = opts.withDefaults()
	m := metrics.NewRollup()
	m.SetConfidence(opts.Confidence)
	return &RollupCalculator{
		name:     name,
		children: children,
		opts:     opts,
		logger:   opts.Logger,
		tree:     task.NewTree(name),
		sched:    MergeSchedules(nil, opts.Now()),
		metrics:  m,
	}
}

// SetChildren replaces the rolled up task lists.
func (c *RollupCalculator) SetChildren(children []Child) { c.children = children }

func (c *RollupCalculator) Name() string                 { return c.name }
func (c *RollupCalculator) Children() []Child            { return c.children }
func (c *RollupCalculator) Tree() *task.Tree             { return c.tree }
func (c *RollupCalculator) Schedule() *schedule.Schedule { return c.sched }
func (c *RollupCalculator) Metrics() *metrics.Metrics    { return c.metrics }

// EVLeaves returns the EV leaves of every child, ordered by completion
// date and then plan date.
func (c *RollupCalculator) EVLeaves() []Leaf { return c.leaves }

// Recalculate recalculates every child and then the aggregate.
func (c *RollupCalculator) Recalculate(ctx context.Context) error {
	timer := prometheus.NewTimer(recalculationDuration.WithLabelValues("rollup"))
	defer timer.ObserveDuration()
	recalculationsTotal.WithLabelValues("rollup").Inc()

	for i := len(c.children) - 1; i >= 0; i-- {
		ch := c.children[i]
		if err := ch.Recalculate(ctx); err != nil {
			return fmt.Errorf("recalculating %s: %w", ch.Name(), err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	roots, err := c.buildTree()
	if err != nil {
		return err
	}

	effective := time.Time{}
	scheds := make([]*schedule.Schedule, len(c.children))
	for i, ch := range c.children {
		scheds[i] = ch.Schedule()
		effective = maxDate(effective, ch.Schedule().EffectiveDate())
	}
	if effective.IsZero() {
		effective = c.opts.Now()
	}
	c.sched = MergeSchedules(scheds, effective)

	m := c.metrics
	m.ResetRollup(effective)
	for _, ch := range c.children {
		ch.Metrics().SetErrorQualifier(fmt.Sprintf("[%s] ", ch.Name()))
		m.AddMetrics(ch.Metrics())
	}
	m.FinishRollup()
	c.reportDuplicates()

	root := c.tree.Node(c.tree.Root())
	root.ReplanDate = m.ReplanDate()
	root.ForecastDate = m.IndependentForecastDate()

	c.blendLevelOfEffort(roots)
	c.createIntervals()
	if !m.IsRollupOfRollups() && len(c.children) > 0 {
		h := mergedHypothetical(c.children)
		forecast, ok := m.IndependentForecastCostEff()
		fd := time.Time{}
		if ok {
			fd = h(forecast, true)
			if forecastInvalid(fd, m) {
				fd = time.Time{}
			}
		}
		m.SetOptimizedDates(
			h(m.TotalPlan(), false),
			replanForecast(h, m, c.opts.AlmostDonePct),
			fd,
		)
	}

	c.collectLeaves()
	m.RecalcViability()
	c.logger.Debug("rollup recalculated", "rollup", c.name, "children", len(c.children))
	return nil
}

// buildTree copies every child tree under a fresh root named after the
// rollup and sums the children into it. It returns the grafted roots.
func (c *RollupCalculator) buildTree() ([]task.NodeID, error) {
	t := task.NewTree(c.name)
	rid := t.Root()
	roots := make([]task.NodeID, len(c.children))
	allDone := len(c.children) > 0
	var completed time.Time
	for i, ch := range c.children {
		id, err := t.Graft(rid, ch.Tree())
		if err != nil {
			return nil, fmt.Errorf("copying %s: %w", ch.Name(), err)
		}
		roots[i] = id
		cn := t.Node(id)
		cn.Name = ch.Name()

		root := t.Node(rid)
		root.PlanTime += cn.PlanTime
		root.TopDownPlanTime += cn.TopDownPlanTime
		root.BottomUpPlanTime += cn.BottomUpPlanTime
		root.PlanValue += cn.PlanValue
		root.ValueEarned += cn.ValueEarned
		root.ActualTime += cn.ActualTime
		root.ActualCurrentTime += cn.ActualCurrentTime
		root.ActualDirectTime += cn.ActualDirectTime
		root.ActualPreTime += cn.ActualPreTime
		root.PlanDate = maxDate(root.PlanDate, cn.PlanDate)
		root.PlanStartDate = minDate(root.PlanStartDate, cn.PlanStartDate)
		root.ActualStartDate = minDate(root.ActualStartDate, cn.ActualStartDate)

		if cn.IsTotallyPruned() {
			continue
		}
		if cn.IsCompleted() {
			completed = maxDate(completed, cn.DateCompleted)
		} else {
			allDone = false
		}
	}
	root := t.Node(rid)
	root.CumPlanValue = root.PlanValue
	if allDone {
		root.DateCompleted = completed
	}
	c.tree = t
	return roots, nil
}

func (c *RollupCalculator) reportDuplicates() {
	seen := make(map[string]bool, len(c.children))
	for _, ch := range c.children {
		if seen[ch.Name()] {
			c.metrics.AddError(fmt.Sprintf("The task list %s appears more than once in this rollup.", ch.Name()), c.name)
			continue
		}
		seen[ch.Name()] = true
	}
}

// blendLevelOfEffort sets the merged schedule's LOE to the share of all
// scheduled time the children reserve for LOE work, and rescales each
// child's LOE tasks to their share of the rollup.
func (c *RollupCalculator) blendLevelOfEffort(roots []task.NodeID) {
	totals := make([]float64, len(c.children))
	var total, indirect float64
	for i, ch := range c.children {
		plan := ch.Metrics().TotalPlan()
		t := plan / (1 - ch.Schedule().LevelOfEffort())
		if math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}
		totals[i] = t
		total += t
		indirect += t - plan
	}
	loe := 0.0
	if total > 0 && indirect > 0 {
		loe = indirect / total
	}
	c.sched.SetLevelOfEffort(loe)
	c.tree.Node(c.tree.Root()).RollupLevelOfEffort = task.NotLevelOfEffort
	for i, id := range roots {
		r := 0.0
		if total > 0 {
			r = totals[i] / total
		}
		c.scaleLevelOfEffort(id, r)
	}
}

func (c *RollupCalculator) scaleLevelOfEffort(id task.NodeID, ratio float64) {
	n := c.tree.Node(id)
	n.RollupLevelOfEffort = task.NotLevelOfEffort
	if n.IsLevelOfEffort() {
		n.RollupLevelOfEffort = n.LevelOfEffort * ratio
	}
	for _, ch := range c.tree.Children(id) {
		c.scaleLevelOfEffort(ch, ratio)
	}
}

// createIntervals simulates the rollup's cost and date intervals from the
// children's. A rollup of rollups has none. The children's time errors are
// recentered so their bias is not counted twice.
func (c *RollupCalculator) createIntervals() {
	m := c.metrics
	drop := func() {
		m.SetCostInterval(nil)
		m.SetTimeErrInterval(nil)
		m.SetDateInterval(nil)
		m.SetOptimizedDateInterval(nil)
	}
	if len(c.children) == 0 || m.IsRollupOfRollups() {
		drop()
		return
	}
	subjects := make([]simulation.Subject, len(c.children))
	for i, ch := range c.children {
		if !interval.Viable(ch.Metrics().CostInterval()) {
			drop()
			return
		}
		subjects[i] = simulation.Subject{
			Schedule: ch.Schedule(),
			Metrics:  ch.Metrics(),
			TimeErr:  interval.NewTimeErrInterval(ch.Schedule(), true),
		}
	}
	res := c.opts.Engine.Run(subjects, mergedProjector(c.children))
	m.SetCostInterval(res.Cost)
	m.SetTimeErrInterval(nil)
	m.SetDateInterval(res.Date)
	m.SetOptimizedDateInterval(res.OptimizedDate)
}

func (c *RollupCalculator) collectLeaves() {
	var leaves []Leaf
	for _, ch := range c.children {
		leaves = append(leaves, ch.EVLeaves()...)
	}
	slices.SortStableFunc(leaves, func(a, b Leaf) int {
		an, bn := a.Node(), b.Node()
		if r := compareDates(an.DateCompleted, bn.DateCompleted); r != 0 {
			return r
		}
		return compareDates(an.PlanDate, bn.PlanDate)
	})
	c.leaves = leaves
}
