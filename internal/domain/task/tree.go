package task

import (
	"fmt"
	"strings"
)

// Tree is an arena of nodes. The root is always NodeID 0; its name is the
// task list name and does not appear in node paths.
type Tree struct {
	nodes []Node
}

// NewTree creates a tree holding only a root node.
func NewTree(rootName string) *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, Node{Name: rootName, parent: NoNode, LevelOfEffort: NotLevelOfEffort})
	return t
}

// Root returns the root node ID.
func (t *Tree) Root() NodeID { return 0 }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node for id. It panics for an ID not produced by this tree.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Contains reports whether id addresses a node of this tree.
func (t *Tree) Contains(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// AddChild appends a new child under parent and returns its ID.
func (t *Tree) AddChild(parent NodeID, name string) (NodeID, error) {
	if !t.Contains(parent) {
		return NoNode, ErrNodeNotFound
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return NoNode, fmt.Errorf("%w: empty name", ErrInvalidInput)
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{Name: name, parent: parent, LevelOfEffort: NotLevelOfEffort})
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return id, nil
}

// Children returns the ordered child IDs of id.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].children
}

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].parent
}

// IsLeaf reports whether id has no children.
func (t *Tree) IsLeaf(id NodeID) bool {
	return len(t.nodes[id].children) == 0
}

// IsEVLeaf reports whether id is tracked as a single unit: a true leaf, or
// a parent whose plan comes only from its own top-down estimate.
func (t *Tree) IsEVLeaf(id NodeID) bool {
	n := &t.nodes[id]
	return t.IsLeaf(id) || (n.PlanTime > 0 && n.BottomUpPlanTime == 0)
}

// FullName returns the absolute path of id. The root's path is "".
func (t *Tree) FullName(id NodeID) string {
	if id == t.Root() {
		return ""
	}
	var parts []string
	for cur := id; cur != t.Root() && cur != NoNode; cur = t.nodes[cur].parent {
		parts = append(parts, t.nodes[cur].Name)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

// Find returns the deepest node whose path equals path or is a path prefix
// of it. The root never claims a path.
func (t *Tree) Find(path string) NodeID {
	if path == "" {
		return NoNode
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.find(t.Root(), "", path)
}

func (t *Tree) find(id NodeID, prefix, path string) NodeID {
	if id != t.Root() {
		prefix = prefix + "/" + t.nodes[id].Name
		if prefix == path {
			return id
		}
		if len(path) <= len(prefix) || !strings.HasPrefix(path, prefix) || path[len(prefix)] != '/' {
			return NoNode
		}
	}
	children := t.nodes[id].children
	for i := len(children) - 1; i >= 0; i-- {
		if found := t.find(children[i], prefix, path); found != NoNode {
			return found
		}
	}
	if id == t.Root() {
		return NoNode
	}
	return id
}

// PreOrder returns every node below and including id, parents first.
func (t *Tree) PreOrder(id NodeID) []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	var walk func(NodeID)
	walk = func(n NodeID) {
		out = append(out, n)
		for _, c := range t.nodes[n].children {
			walk(c)
		}
	}
	walk(id)
	return out
}

// PostOrder returns every node below and including id, children first.
func (t *Tree) PostOrder(id NodeID) []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	var walk func(NodeID)
	walk = func(n NodeID) {
		for _, c := range t.nodes[n].children {
			walk(c)
		}
		out = append(out, n)
	}
	walk(id)
	return out
}

// Validate checks that every node is reachable from the root exactly once
// and that parent links agree with child lists.
func (t *Tree) Validate() error {
	seen := make([]bool, len(t.nodes))
	stack := []NodeID{t.Root()}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !t.Contains(id) {
			return fmt.Errorf("%w: dangling node %d", ErrCycle, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: node %d reached twice", ErrCycle, id)
		}
		seen[id] = true
		for _, c := range t.nodes[id].children {
			if t.Contains(c) && t.nodes[c].parent != id {
				return fmt.Errorf("%w: node %d has inconsistent parent", ErrCycle, c)
			}
			stack = append(stack, c)
		}
	}
	for id, ok := range seen {
		if !ok {
			return fmt.Errorf("%w: node %d is unreachable", ErrCycle, id)
		}
	}
	return nil
}

// SetChildren replaces the child list of id. It exists for loaders that
// rebuild a tree from stored parent links; call Validate afterwards.
func (t *Tree) SetChildren(id NodeID, children []NodeID) {
	t.nodes[id].children = append([]NodeID(nil), children...)
	for _, c := range children {
		if t.Contains(c) {
			t.nodes[c].parent = id
		}
	}
}

// Graft copies the whole of src under parent. The copied root keeps src's
// root name and every field. It returns the ID of the copied root.
func (t *Tree) Graft(parent NodeID, src *Tree) (NodeID, error) {
	if !t.Contains(parent) {
		return NoNode, ErrNodeNotFound
	}
	offset := NodeID(len(t.nodes))
	for i := range src.nodes {
		n := src.nodes[i]
		n.children = make([]NodeID, len(src.nodes[i].children))
		for j, c := range src.nodes[i].children {
			n.children[j] = c + offset
		}
		if i == 0 {
			n.parent = parent
		} else {
			n.parent = src.nodes[i].parent + offset
		}
		t.nodes = append(t.nodes, n)
	}
	t.nodes[parent].children = append(t.nodes[parent].children, offset)
	return offset, nil
}

// Clone returns a deep copy.
func (t *Tree) Clone() *Tree {
	c := &Tree{nodes: make([]Node, len(t.nodes))}
	for i := range t.nodes {
		c.nodes[i] = t.nodes[i]
		c.nodes[i].children = append([]NodeID(nil), t.nodes[i].children...)
	}
	return c
}
