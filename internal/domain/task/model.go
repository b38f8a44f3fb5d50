package task

import "time"

// NodeID addresses a node inside its Tree.
type NodeID int

// NoNode is returned by lookups that find nothing.
const NoNode NodeID = -1

// NotLevelOfEffort marks a node that is not a level-of-effort task.
const NotLevelOfEffort = -1.0

// Pruning is the pruning state of a node.
type Pruning int

const (
	InferFromContext Pruning = 0
	UserUnpruned     Pruning = 1
	UserPruned       Pruning = -1
	AncestorPruned   Pruning = -2
)

// Node is one entry of the work breakdown structure.
//
// Inputs are Name, TopDownPlanTime, DateCompleted (leaves only), Ordinal,
// Pruning and UserLevelOfEffort. Every other field is owned by the
// calculators and is reset at the start of each recalculation.
type Node struct {
	Name string

	TopDownPlanTime   float64
	Ordinal           int
	Pruning           Pruning
	UserLevelOfEffort float64

	PlanTime          float64
	BottomUpPlanTime  float64
	ActualNodeTime    float64
	ActualPreTime     float64
	ActualTime        float64
	ActualCurrentTime float64
	ActualDirectTime  float64
	PlanValue         float64
	CumPlanValue      float64
	ValueEarned       float64

	PlanDate        time.Time
	PlanStartDate   time.Time
	DateCompleted   time.Time
	ActualStartDate time.Time
	ReplanDate      time.Time
	ForecastDate    time.Time

	// LevelOfEffort is the effective LOE fraction after inference;
	// NotLevelOfEffort for ordinary tasks.
	LevelOfEffort       float64
	RollupLevelOfEffort float64
	InheritsLOE         bool

	// Error holds a data problem detected during the last recalculation.
	Error string

	parent   NodeID
	children []NodeID
}

// IsCompleted reports whether the node has a completion date.
func (n *Node) IsCompleted() bool {
	return !n.DateCompleted.IsZero()
}

// IsUserPruned reports whether the node, or one of its ancestors, was pruned.
func (n *Node) IsUserPruned() bool {
	return n.Pruning == UserPruned || n.Pruning == AncestorPruned
}

// IsLevelOfEffort reports whether the node carries an LOE fraction.
func (n *Node) IsLevelOfEffort() bool {
	return n.LevelOfEffort >= 0
}

// IsTotallyPruned reports a pruned node that carries no plan value.
func (n *Node) IsTotallyPruned() bool {
	return n.IsUserPruned() && n.PlanValue == 0
}

// ValidLevelOfEffort reports whether f is usable as an LOE fraction.
func ValidLevelOfEffort(f float64) bool {
	return f > 0 && f < 1
}

func (n *Node) resetData(leaf bool) {
	n.PlanTime = 0
	n.BottomUpPlanTime = 0
	n.ActualNodeTime = 0
	n.ActualPreTime = 0
	n.ActualTime = 0
	n.ActualCurrentTime = 0
	n.ActualDirectTime = 0
	n.PlanValue = 0
	n.CumPlanValue = 0
	n.ValueEarned = 0
	n.PlanDate = time.Time{}
	n.PlanStartDate = time.Time{}
	n.ActualStartDate = time.Time{}
	n.ReplanDate = time.Time{}
	n.ForecastDate = time.Time{}
	n.LevelOfEffort = NotLevelOfEffort
	n.RollupLevelOfEffort = NotLevelOfEffort
	n.InheritsLOE = false
	n.Error = ""
	if !leaf {
		n.DateCompleted = time.Time{}
	}
}
