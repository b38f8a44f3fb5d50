package task

import (
	"fmt"
	"math"
	"time"
)

// planMismatchTolerance is the largest top-down/bottom-up plan difference,
// in minutes, that is not reported as a node error.
const planMismatchTolerance = 0.5

// ResetData clears every calculated field. Completion dates of non-leaf
// nodes are calculated too, so they are cleared as well.
func ResetData(t *Tree) {
	for id := range t.nodes {
		t.nodes[id].resetData(t.IsLeaf(NodeID(id)))
	}
}

// PruneAndInferLOE propagates pruning top-down, then infers level-of-effort
// bottom-up. It returns the total LOE fraction declared in the tree.
func PruneAndInferLOE(t *Tree) float64 {
	prune(t, t.Root(), false)
	return inferLOE(t, t.Root())
}

func prune(t *Tree, id NodeID, parentPruned bool) {
	n := &t.nodes[id]
	pruned := parentPruned
	switch n.Pruning {
	case UserUnpruned:
		pruned = false
	case UserPruned:
		pruned = true
	default:
		if parentPruned {
			n.Pruning = AncestorPruned
		} else {
			n.Pruning = InferFromContext
		}
	}
	for _, c := range n.children {
		prune(t, c, pruned)
	}
}

func inferLOE(t *Tree, id NodeID) float64 {
	n := &t.nodes[id]
	if ValidLevelOfEffort(n.UserLevelOfEffort) {
		n.LevelOfEffort = n.UserLevelOfEffort
		for _, c := range n.children {
			inheritLOE(t, c)
		}
		if n.IsUserPruned() {
			return 0
		}
		return n.LevelOfEffort
	}

	n.LevelOfEffort = NotLevelOfEffort
	total := 0.0
	for _, c := range n.children {
		total += inferLOE(t, c)
	}
	return total
}

func inheritLOE(t *Tree, id NodeID) {
	n := &t.nodes[id]
	n.LevelOfEffort = 0
	n.InheritsLOE = true
	for _, c := range n.children {
		inheritLOE(t, c)
	}
}

// RecalcPlanTimes sets PlanTime bottom-up. A parent's plan is the sum of its
// children; a parent whose children carry no plan keeps its own top-down
// estimate and becomes an aggregate EV leaf.
func RecalcPlanTimes(t *Tree) {
	recalcPlanTime(t, t.Root())
}

func recalcPlanTime(t *Tree, id NodeID) float64 {
	n := &t.nodes[id]
	topDown := sanitize(n.TopDownPlanTime)
	if len(n.children) == 0 {
		n.PlanTime = topDown
		n.BottomUpPlanTime = topDown
		return n.PlanTime
	}

	bottomUp := 0.0
	for _, c := range n.children {
		bottomUp += recalcPlanTime(t, c)
	}
	n = &t.nodes[id]
	n.BottomUpPlanTime = bottomUp
	if bottomUp == 0 {
		n.PlanTime = topDown
	} else {
		n.PlanTime = bottomUp
		if topDown > 0 && math.Abs(topDown-bottomUp) > planMismatchTolerance {
			n.Error = fmt.Sprintf("top-down plan %.0f differs from bottom-up plan %.0f", topDown, bottomUp)
		}
	}
	return n.PlanTime
}

// RecalcDateCompleted sets each parent's completion date to the latest
// completion date of its counted children, or clears it when any counted
// child is still open. Pruned children are not counted.
func RecalcDateCompleted(t *Tree) time.Time {
	d, _ := recalcDateCompleted(t, t.Root())
	return d
}

func recalcDateCompleted(t *Tree, id NodeID) (time.Time, bool) {
	n := &t.nodes[id]
	if len(n.children) == 0 {
		return n.DateCompleted, true
	}

	var latest time.Time
	counted, open := false, false
	for _, c := range n.children {
		d, ok := recalcDateCompleted(t, c)
		if !ok || t.nodes[c].IsUserPruned() {
			continue
		}
		counted = true
		if d.IsZero() {
			open = true
		} else if d.After(latest) {
			latest = d
		}
	}

	n = &t.nodes[id]
	if !counted {
		n.DateCompleted = time.Time{}
		return time.Time{}, false
	}
	if open {
		n.DateCompleted = time.Time{}
	} else {
		n.DateCompleted = latest
	}
	return n.DateCompleted, true
}

// EVLeaves returns, in pre-order, the nodes tracked as single units.
// Pruned and level-of-effort nodes are skipped along with their subtrees.
func EVLeaves(t *Tree) []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(id NodeID) {
		if t.IsEVLeaf(id) && id != t.Root() {
			n := &t.nodes[id]
			if !n.IsUserPruned() && !n.IsLevelOfEffort() {
				out = append(out, id)
			}
			return
		}
		for _, c := range t.nodes[id].children {
			walk(c)
		}
	}
	walk(t.Root())
	return out
}

// EffectiveOrdinals returns the ordering rank of every node. When no node
// declares an explicit ordinal the result is all zeros; otherwise EV leaves
// without one take the most recent explicit ordinal seen in pre-order.
func EffectiveOrdinals(t *Tree, leaves []NodeID) []int {
	out := make([]int, len(t.nodes))
	explicit := false
	for id := range t.nodes {
		out[id] = t.nodes[id].Ordinal
		if out[id] > 0 {
			explicit = true
		}
	}
	if !explicit {
		return out
	}

	isLeaf := make(map[NodeID]bool, len(leaves))
	for _, id := range leaves {
		isLeaf[id] = true
	}
	var assign func(NodeID, int) int
	assign = func(id NodeID, def int) int {
		n := &t.nodes[id]
		if n.IsLevelOfEffort() {
			return def
		}
		if n.Ordinal != 0 {
			def = n.Ordinal
		} else if isLeaf[id] {
			out[id] = def
		}
		for _, c := range n.children {
			def = assign(c, def)
		}
		return def
	}
	assign(t.Root(), 1)
	return out
}

// TotalActualPreTime sums ActualPreTime over the subtree at id.
func TotalActualPreTime(t *Tree, id NodeID) float64 {
	total := t.nodes[id].ActualPreTime
	for _, c := range t.nodes[id].children {
		total += TotalActualPreTime(t, c)
	}
	return total
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
