// Package calculator recalculates the earned-value state of task lists.
package calculator

import (
	"cmp"
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
	"github.com/rpggio/evtrack/internal/domain/timelog"
)

const day = 24 * time.Hour

// Leaf is an EV leaf of some task tree.
type Leaf struct {
	Tree *task.Tree
	ID   task.NodeID
}

// Node returns the leaf's node.
func (l Leaf) Node() *task.Node { return l.Tree.Node(l.ID) }

// Path returns the leaf's full name.
func (l Leaf) Path() string { return l.Tree.FullName(l.ID) }

// Baseline is the completion date and cost a task list was first committed
// to.
type Baseline struct {
	Date time.Time
	Cost float64
}

// LeafCalculator recalculates one task tree against its schedule and time
// log. It mutates the tree and schedule in place.
type LeafCalculator struct {
	tree     *task.Tree
	sched    *schedule.Schedule
	log      timelog.Source
	opts     Options
	metrics  *metrics.Metrics
	baseline *Baseline
	logger   *slog.Logger

	start       time.Time
	effective   time.Time
	completion  time.Time
	checkFuture bool
	leaves      []task.NodeID
	isEVLeaf    map[task.NodeID]bool
}

// NewLeafCalculator creates a calculator. A nil log is treated as empty.
func NewLeafCalculator(tree *task.Tree, sched *schedule.Schedule, log timelog.Source, opts Options) *LeafCalculator {
	if log == nil {
		log = timelog.Empty{}
	}
	opts = opts.withDefaults()
	m := metrics.New()
	m.SetConfidence(opts.Confidence)
	return &LeafCalculator{
		tree:    tree,
		sched:   sched,
		log:     log,
		opts:    opts,
		metrics: m,
		logger:  opts.Logger,
	}
}

// SetBaseline records the baseline reported with the metrics. Nil clears it.
func (c *LeafCalculator) SetBaseline(b *Baseline) { c.baseline = b }

func (c *LeafCalculator) Tree() *task.Tree             { return c.tree }
func (c *LeafCalculator) Schedule() *schedule.Schedule { return c.sched }
func (c *LeafCalculator) Metrics() *metrics.Metrics    { return c.metrics }

// EffectiveDate returns the "as of" date of the last recalculation.
func (c *LeafCalculator) EffectiveDate() time.Time { return c.effective }

// EVLeaves returns the EV leaves in value allocation order.
func (c *LeafCalculator) EVLeaves() []Leaf {
	out := make([]Leaf, len(c.leaves))
	for i, id := range c.leaves {
		out[i] = Leaf{Tree: c.tree, ID: id}
	}
	return out
}

// ReorderableEVLeaves returns the EV leaves whose position a user may still
// change. Completed tasks are fixed once they are ordered by completion.
func (c *LeafCalculator) ReorderableEVLeaves() []Leaf {
	var out []Leaf
	for _, id := range c.leaves {
		d := c.tree.Node(id).DateCompleted
		if !d.IsZero() && (c.opts.ReorderCompletedTasks || c.beforeZeroDate(d)) {
			continue
		}
		out = append(out, Leaf{Tree: c.tree, ID: id})
	}
	return out
}

// Recalculate recomputes every calculated field of the tree, the schedule
// and the metrics.
func (c *LeafCalculator) Recalculate(ctx context.Context) error {
	if c.sched == nil {
		return ErrNoSchedule
	}
	if c.tree == nil {
		return ErrNoTree
	}
	if err := c.tree.Validate(); err != nil {
		return err
	}
	timer := prometheus.NewTimer(recalculationDuration.WithLabelValues("leaf"))
	defer timer.ObserveDuration()
	recalculationsTotal.WithLabelValues("leaf").Inc()

	t, s, m := c.tree, c.sched, c.metrics

	task.ResetData(t)
	c.start = s.StartDate()
	loe := task.PruneAndInferLOE(t)
	task.RecalcPlanTimes(t)
	c.completion = task.RecalcDateCompleted(t)
	c.effective = c.effectiveDate()

	c.leaves = task.EVLeaves(t)
	c.isEVLeaf = make(map[task.NodeID]bool, len(c.leaves))
	for _, id := range c.leaves {
		c.isEVLeaf[id] = true
	}
	c.sortLeaves(task.EffectiveOrdinals(t, c.leaves))

	s.SetLevelOfEffort(loe)
	s.CleanUp()
	s.RecalcCumPlanTimes()

	entries, logErr := c.log.Entries(ctx, timelog.Filter{})
	if err := ctx.Err(); err != nil {
		return err
	}
	if logErr != nil {
		c.logger.Warn("time log unavailable", "error", logErr)
		entries = nil
	}
	if c.opts.RezeroAtStartDate {
		c.savePreTime(entries)
	}

	c.calcTaskValues()
	for _, id := range c.leaves {
		if n := t.Node(id); n.ValueEarned > 0 {
			s.SaveCompletedTask(n.DateCompleted, n.ValueEarned)
		}
	}

	s.SetEffectiveDate(c.effective)
	m.Reset(c.start, c.effective, s.PeriodStart(c.effective), s.PeriodEnd(c.effective))
	if c.baseline != nil {
		m.SetBaseline(c.baseline.Date, c.baseline.Cost)
	}
	if logErr != nil {
		m.AddError("Unable to retrieve time log data.", t.FullName(t.Root()))
	}

	c.saveActualScheduleTime(entries)
	s.RecalcCumActualTimes()

	c.checkNodeErrors()
	c.recalcMetrics(t.Root())
	m.RecalcScheduleTime(s)

	c.createCostInterval()
	m.SetTimeErrInterval(interval.NewTimeErrInterval(s, false))

	c.calculateReplanDates()
	c.calculateForecastDates()

	c.sumUpNodeData(t.Root())

	for _, id := range c.leaves {
		if n := t.Node(id); n.IsCompleted() {
			s.SaveCompletedTaskCost(n.DateCompleted, n.ActualCurrentTime)
		}
	}

	c.createDateInterval()
	m.RecalcViability()
	root := t.FullName(t.Root())
	if s.PastHorizon() {
		m.AddError("The plan extends beyond the schedule horizon. ", root)
	}
	if s.Dropped() > 0 {
		m.AddError("Time logged far in the future was left off the schedule. ", root)
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("recalculating schedule: %w", err)
	}
	return nil
}

func (c *LeafCalculator) effectiveDate() time.Time {
	c.checkFuture = c.completion.IsZero()
	switch {
	case !c.completion.IsZero():
		return c.completion
	case !c.opts.EffectiveDate.IsZero():
		return c.opts.EffectiveDate
	default:
		return c.opts.Now()
	}
}

func (c *LeafCalculator) beforeZeroDate(d time.Time) bool {
	return c.opts.RezeroAtStartDate && d.Before(c.start)
}

// sortLeaves orders leaves by completion date, then ordinal, then tree
// position. Tasks completed after the schedule start keep their ordinal
// position unless completed tasks are reordered.
func (c *LeafCalculator) sortLeaves(ordinals []int) {
	sortDate := func(id task.NodeID) time.Time {
		d := c.tree.Node(id).DateCompleted
		if !c.opts.ReorderCompletedTasks && d.After(c.start) {
			return time.Time{}
		}
		return d
	}
	slices.SortStableFunc(c.leaves, func(a, b task.NodeID) int {
		if r := compareDates(sortDate(a), sortDate(b)); r != 0 {
			return r
		}
		return cmp.Compare(ordinals[a], ordinals[b])
	})
}

// compareDates orders zero dates last.
func compareDates(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	default:
		return a.Compare(b)
	}
}

func (c *LeafCalculator) resolve(e timelog.Entry) (task.NodeID, bool) {
	id := c.tree.Find(e.Path)
	if id == task.NoNode {
		droppedEntriesTotal.Inc()
		c.logger.Debug("dropping time log entry", "path", e.Path, "start", e.Start)
		return task.NoNode, false
	}
	return id, true
}

func (c *LeafCalculator) savePreTime(entries []timelog.Entry) {
	for _, e := range entries {
		if e.Start.IsZero() || !e.Start.Before(c.start) {
			continue
		}
		id, ok := c.resolve(e)
		if !ok {
			continue
		}
		if n := c.tree.Node(id); !n.IsLevelOfEffort() {
			n.ActualPreTime += e.Elapsed
		}
	}
}

// calcTaskValues allocates plan value to the leaves in order and asks the
// schedule when each running total is due.
func (c *LeafCalculator) calcTaskValues() {
	t, s := c.tree, c.sched
	cum := 0.0
	startA, startB := c.start, c.start
	for _, id := range c.leaves {
		n := t.Node(id)
		pre := n.ActualPreTime
		if !t.IsLeaf(id) {
			pre = task.TotalActualPreTime(t, id)
		}
		if n.IsCompleted() && c.opts.RezeroAtStartDate && n.DateCompleted.Before(c.start) {
			continue
		}
		n.PlanValue = math.Max(0, n.PlanTime-pre)
		cum += n.PlanValue
		n.CumPlanValue = cum
		n.PlanDate = s.PlannedCompletionDate(cum, cum)

		if startB.Before(n.PlanDate) {
			startA = startB
		}
		n.PlanStartDate = startA
		startB = n.PlanDate

		if n.IsCompleted() {
			n.ValueEarned = n.PlanValue
		}
	}
}

func (c *LeafCalculator) saveActualScheduleTime(entries []timelog.Entry) {
	t, s, m := c.tree, c.sched, c.metrics
	for _, e := range entries {
		d := e.Start
		if d.IsZero() || c.beforeZeroDate(d) {
			continue
		}
		id, ok := c.resolve(e)
		if !ok {
			continue
		}
		n := t.Node(id)

		if n.IsLevelOfEffort() {
			// only time inside the elapsed schedule counts as overhead
			if d.After(c.start) && d.Before(c.effective) {
				n.ActualNodeTime += e.Elapsed
				m.AddIndirectTime(e.Elapsed)
				s.SaveActualIndirectTime(d, e.Elapsed)
			}
			continue
		}

		n.ActualNodeTime += e.Elapsed
		if n.ActualStartDate.IsZero() || n.ActualStartDate.After(d) {
			n.ActualStartDate = d
		}
		if n.IsUserPruned() {
			continue
		}
		s.SaveActualTime(d, e.Elapsed)

		if c.checkFuture && d.Sub(c.effective) > day {
			m.AddError("Time has been logged in the future.", t.FullName(t.Root()))
			c.checkFuture = false
		}
	}
}

// checkNodeErrors reports data problems found in the tree.
func (c *LeafCalculator) checkNodeErrors() {
	t, m := c.tree, c.metrics
	now := c.opts.Now()
	for _, id := range t.PreOrder(t.Root()) {
		n := t.Node(id)
		path := t.FullName(id)

		if id != t.Root() {
			for _, sib := range t.Children(t.Parent(id)) {
				if sib < id && t.Node(sib).Name == n.Name {
					m.AddError(fmt.Sprintf("The task %s appears more than once.", path), path)
					break
				}
			}
		}
		if n.Error != "" {
			m.AddError(fmt.Sprintf("%s: %s", path, n.Error), path)
			c.logger.Warn("task node error", "path", path, "error", n.Error)
		}
		if t.IsLeaf(id) && n.DateCompleted.Sub(now) > day {
			msg := fmt.Sprintf("The task %s is marked complete on %s, which is in the future.",
				path, n.DateCompleted.Format(time.DateOnly))
			m.AddError(msg, path)
		}
	}
}

// subtreeTime returns the direct time logged to id and its descendants.
// Time logged to the untracked children of an EV leaf counts toward the
// leaf.
func (c *LeafCalculator) subtreeTime(id task.NodeID) float64 {
	n := c.tree.Node(id)
	if n.IsLevelOfEffort() || n.IsUserPruned() {
		return 0
	}
	total := n.ActualNodeTime
	for _, ch := range c.tree.Children(id) {
		total += c.subtreeTime(ch)
	}
	return total
}

func (c *LeafCalculator) recalcMetrics(id task.NodeID) {
	t, m := c.tree, c.metrics
	n := t.Node(id)
	if !n.PlanDate.IsZero() {
		m.AddTask(n.PlanValue, c.subtreeTime(id), n.PlanDate, n.DateCompleted)
		return
	}
	children := t.Children(id)
	for i := len(children) - 1; i >= 0; i-- {
		c.recalcMetrics(children[i])
	}
	// Time logged against a parent counts right away, as an imaginary task
	// with no plan that finished instantly when the schedule started.
	if n.ActualNodeTime > 0 && !n.IsLevelOfEffort() && !n.IsUserPruned() {
		m.AddTask(0, n.ActualNodeTime, time.Time{}, m.StartDate())
		c.sched.SaveCompletedTaskCost(m.StartDate(), n.ActualNodeTime)
	}
}

// createCostInterval fits the estimating bias of completed work. A task
// list that is already complete has nothing left to forecast.
func (c *LeafCalculator) createCostInterval() {
	m := c.metrics
	if !c.completion.IsZero() {
		m.SetCostInterval(nil)
		return
	}
	var points []interval.DataPoint
	for _, id := range c.leaves {
		if n := c.tree.Node(id); n.IsCompleted() {
			points = append(points, interval.DataPoint{Plan: n.PlanValue, Actual: c.subtreeTime(id)})
		}
	}
	points = c.addLiabilities(c.tree.Root(), points)

	ci := interval.NewCostInterval(points)
	ci.SetInput(m.IncompleteTaskPlanTime())
	m.SetCostInterval(ci)
}

// addLiabilities adds time logged against parents as work with no plan.
func (c *LeafCalculator) addLiabilities(id task.NodeID, points []interval.DataPoint) []interval.DataPoint {
	if c.isEVLeaf[id] {
		return points
	}
	n := c.tree.Node(id)
	if n.ActualNodeTime > 0 && !n.IsLevelOfEffort() && !n.IsUserPruned() {
		points = append(points, interval.DataPoint{Plan: 0, Actual: n.ActualNodeTime})
	}
	for _, ch := range c.tree.Children(id) {
		points = c.addLiabilities(ch, points)
	}
	return points
}

func (c *LeafCalculator) createDateInterval() {
	m := c.metrics
	if !interval.Viable(m.CostInterval()) || !interval.Viable(m.TimeErrInterval()) {
		m.SetDateInterval(nil)
		return
	}
	res := c.opts.Engine.Run([]simulation.Subject{{
		Schedule: c.sched,
		Metrics:  m,
		TimeErr:  m.TimeErrInterval(),
	}}, nil)
	m.SetDateInterval(res.Date)
}

// sumUpNodeData aggregates calculated fields bottom-up. The untracked
// children of an EV leaf share the leaf's dates.
func (c *LeafCalculator) sumUpNodeData(id task.NodeID) {
	t := c.tree
	children := t.Children(id)
	for i := len(children) - 1; i >= 0; i-- {
		c.sumUpNodeData(children[i])
	}

	n := t.Node(id)
	n.ActualCurrentTime = n.ActualNodeTime
	n.ActualDirectTime = 0
	if !n.IsLevelOfEffort() && !n.IsUserPruned() {
		n.ActualDirectTime = n.ActualNodeTime
	}
	evLeaf := c.isEVLeaf[id]
	for _, ch := range children {
		cn := t.Node(ch)
		n.ActualCurrentTime += cn.ActualCurrentTime
		n.ActualDirectTime += cn.ActualDirectTime
		n.ActualPreTime += cn.ActualPreTime
		n.ActualStartDate = minDate(n.ActualStartDate, cn.ActualStartDate)
		if evLeaf {
			continue
		}
		n.PlanValue += cn.PlanValue
		n.ValueEarned += cn.ValueEarned
		n.CumPlanValue = math.Max(n.CumPlanValue, cn.CumPlanValue)
		n.PlanDate = maxDate(n.PlanDate, cn.PlanDate)
		n.PlanStartDate = minDate(n.PlanStartDate, cn.PlanStartDate)
		n.ReplanDate = maxDate(n.ReplanDate, cn.ReplanDate)
		n.ForecastDate = maxDate(n.ForecastDate, cn.ForecastDate)
	}
	n.ActualTime = n.ActualCurrentTime + n.ActualPreTime

	if evLeaf && !t.IsLeaf(id) {
		c.updateBumChildren(id)
	}
}

func (c *LeafCalculator) updateBumChildren(id task.NodeID) {
	t := c.tree
	n := t.Node(id)
	for _, ch := range t.Children(id) {
		cn := t.Node(ch)
		cn.PlanDate = n.PlanDate
		cn.ReplanDate = n.ReplanDate
		cn.ForecastDate = n.ForecastDate
		cn.PlanStartDate = n.PlanStartDate
		cn.CumPlanValue = n.CumPlanValue
		c.updateBumChildren(ch)
	}
}

func minDate(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

func maxDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
