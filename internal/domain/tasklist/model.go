package tasklist

import (
	"fmt"
	"time"

	"github.com/rpggio/evtrack/internal/domain/calculator"
	"github.com/rpggio/evtrack/internal/domain/task"
)

// Kind identifies how a task list gets its data.
type Kind string

const (
	// KindData is a stored task list with a stored time log.
	KindData Kind = "data"
	// KindFile is read from a definition file, time log included.
	KindFile Kind = "file"
	// KindRollup aggregates other task lists by name.
	KindRollup Kind = "rollup"
)

// Info describes a stored task list.
type Info struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Kind            Kind      `json:"kind"`
	Path            string    `json:"path,omitempty"`
	Start           time.Time `json:"start,omitzero"`
	BaselineDate    time.Time `json:"baseline_date,omitzero"`
	BaselineMinutes float64   `json:"baseline_minutes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Baseline returns the recorded baseline, or nil.
func (i *Info) Baseline() *calculator.Baseline {
	if i.BaselineDate.IsZero() && i.BaselineMinutes == 0 {
		return nil
	}
	return &calculator.Baseline{Date: i.BaselineDate, Cost: i.BaselineMinutes}
}

// Summary is a lightweight listing entry.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// NodeRecord is the stored form of one task node. Records are kept in
// pre-order; Parent is the position of the parent record, or -1 for the
// root.
type NodeRecord struct {
	Position      int
	Parent        int
	Name          string
	PlanMinutes   float64
	Completed     time.Time
	Ordinal       int
	Pruning       task.Pruning
	LevelOfEffort float64
}

// Flatten returns the input fields of every node in pre-order.
func Flatten(t *task.Tree) []NodeRecord {
	ids := t.PreOrder(t.Root())
	pos := make(map[task.NodeID]int, len(ids))
	out := make([]NodeRecord, 0, len(ids))
	for i, id := range ids {
		pos[id] = i
		n := t.Node(id)
		parent := -1
		if p := t.Parent(id); p != task.NoNode {
			parent = pos[p]
		}
		rec := NodeRecord{
			Position:      i,
			Parent:        parent,
			Name:          n.Name,
			PlanMinutes:   n.TopDownPlanTime,
			Ordinal:       n.Ordinal,
			Pruning:       n.Pruning,
			LevelOfEffort: n.UserLevelOfEffort,
		}
		if t.IsLeaf(id) {
			rec.Completed = n.DateCompleted
		}
		// inferred pruning is recalculated
		if rec.Pruning == task.AncestorPruned {
			rec.Pruning = task.InferFromContext
		}
		out = append(out, rec)
	}
	return out
}

// Rebuild turns records produced by Flatten back into a tree.
func Rebuild(recs []NodeRecord) (*task.Tree, error) {
	if len(recs) == 0 || recs[0].Parent != -1 {
		return nil, fmt.Errorf("%w: missing root node", ErrInvalidDefinition)
	}
	t := task.NewTree(recs[0].Name)
	ids := make([]task.NodeID, len(recs))
	ids[0] = t.Root()
	apply(t.Node(t.Root()), recs[0])
	for i := 1; i < len(recs); i++ {
		r := recs[i]
		if r.Parent < 0 || r.Parent >= i {
			return nil, fmt.Errorf("%w: node %q has no earlier parent", ErrInvalidDefinition, r.Name)
		}
		id, err := t.AddChild(ids[r.Parent], r.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
		ids[i] = id
		apply(t.Node(id), r)
	}
	return t, nil
}

func apply(n *task.Node, r NodeRecord) {
	n.TopDownPlanTime = r.PlanMinutes
	n.DateCompleted = r.Completed
	n.Ordinal = r.Ordinal
	n.Pruning = r.Pruning
	n.UserLevelOfEffort = r.LevelOfEffort
}
