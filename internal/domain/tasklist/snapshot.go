package tasklist

import (
	"time"

	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/task"
)

// Snapshot is the rendered state of a task list after a recalculation.
type Snapshot struct {
	ID            string            `json:"id,omitempty"`
	Name          string            `json:"name"`
	Kind          Kind              `json:"kind"`
	EffectiveDate time.Time         `json:"effective_date,omitzero"`
	Metrics       []metrics.Row     `json:"metrics"`
	Errors        map[string]string `json:"errors,omitempty"`
	// HasErrors is set when Errors holds more than warnings.
	HasErrors     bool              `json:"has_errors,omitempty"`
	Periods       []schedule.Period `json:"periods"`
	Tasks         []TaskView        `json:"tasks"`
	Tree          *NodeView         `json:"tree"`
}

// TaskView is one EV leaf in value order.
type TaskView struct {
	Path          string    `json:"path"`
	PlanMinutes   float64   `json:"plan_minutes"`
	ActualMinutes float64   `json:"actual_minutes"`
	PlanValue     float64   `json:"plan_value"`
	CumPlanValue  float64   `json:"cum_plan_value"`
	ValueEarned   float64   `json:"value_earned"`
	PlanDate      time.Time `json:"plan_date,omitzero"`
	ReplanDate    time.Time `json:"replan_date,omitzero"`
	ForecastDate  time.Time `json:"forecast_date,omitzero"`
	Completed     time.Time `json:"completed,omitzero"`
	Error         string    `json:"error,omitempty"`
}

// NodeView is one node of the calculated tree.
type NodeView struct {
	Name          string      `json:"name"`
	PlanMinutes   float64     `json:"plan_minutes"`
	ActualMinutes float64     `json:"actual_minutes"`
	PlanValue     float64     `json:"plan_value"`
	ValueEarned   float64     `json:"value_earned"`
	PlanDate      time.Time   `json:"plan_date,omitzero"`
	ForecastDate  time.Time   `json:"forecast_date,omitzero"`
	Completed     time.Time   `json:"completed,omitzero"`
	LevelOfEffort float64     `json:"level_of_effort,omitempty"`
	Pruned        bool        `json:"pruned,omitempty"`
	Error         string      `json:"error,omitempty"`
	Children      []*NodeView `json:"children,omitempty"`
}

// NewSnapshot renders l. Cost related metrics are left out unless
// includeCost is set.
func NewSnapshot(l TaskList, includeCost bool) *Snapshot {
	m := l.Metrics()
	s := &Snapshot{
		ID:            l.ID(),
		Name:          l.Name(),
		Kind:          l.Kind(),
		EffectiveDate: m.CurrentDate(),
		Metrics:       m.Rows(includeCost),
		Errors:        m.Errors(),
		Periods:       l.Schedule().Periods(),
	}
	s.HasErrors = len(s.Errors) > 0 && !metrics.WarningsOnly(s.Errors)
	for _, leaf := range l.EVLeaves() {
		n := leaf.Node()
		s.Tasks = append(s.Tasks, TaskView{
			Path:          leaf.Path(),
			PlanMinutes:   n.PlanTime,
			ActualMinutes: n.ActualCurrentTime,
			PlanValue:     n.PlanValue,
			CumPlanValue:  n.CumPlanValue,
			ValueEarned:   n.ValueEarned,
			PlanDate:      dateOrZero(n.PlanDate),
			ReplanDate:    dateOrZero(n.ReplanDate),
			ForecastDate:  dateOrZero(n.ForecastDate),
			Completed:     n.DateCompleted,
			Error:         n.Error,
		})
	}
	t := l.Tree()
	s.Tree = nodeView(t, t.Root())
	return s
}

func nodeView(t *task.Tree, id task.NodeID) *NodeView {
	n := t.Node(id)
	v := &NodeView{
		Name:          n.Name,
		PlanMinutes:   n.PlanTime,
		ActualMinutes: n.ActualCurrentTime,
		PlanValue:     n.PlanValue,
		ValueEarned:   n.ValueEarned,
		PlanDate:      dateOrZero(n.PlanDate),
		ForecastDate:  dateOrZero(n.ForecastDate),
		Completed:     n.DateCompleted,
		Pruned:        n.IsTotallyPruned(),
		Error:         n.Error,
	}
	if n.RollupLevelOfEffort > 0 {
		v.LevelOfEffort = n.RollupLevelOfEffort
	} else if n.IsLevelOfEffort() {
		v.LevelOfEffort = n.LevelOfEffort
	}
	for _, ch := range t.Children(id) {
		v.Children = append(v.Children, nodeView(t, ch))
	}
	return v
}

// Never dates render as absent.
func dateOrZero(t time.Time) time.Time {
	if schedule.IsNever(t) {
		return time.Time{}
	}
	return t
}
