package calltree

import (
	"github.com/samber/lo"

	"github.com/matzehuels/trialviz/pkg/trace"
)

// Tree is the call tree of one loaded dataset.
//
// A Tree is not safe for concurrent use. Loading a new dataset builds a new
// Tree; trees are never patched incrementally.
type Tree struct {
	Root           *Node
	Trial1, Trial2 int

	nodes        map[Key]*Node
	keyOf        map[int]Key
	reclassified map[edgeRef]bool
}

type edgeRef struct {
	source, target int
	typ            trace.EdgeType
}

func refOf(e trace.Edge) edgeRef { return edgeRef{e.Source, e.Target, e.Type} }

// Diff reports whether the tree overlays two trials.
func (t *Tree) Diff() bool { return t.Trial1 != t.Trial2 }

// Len returns the number of nodes, visible or not.
func (t *Tree) Len() int { return len(t.nodes) }

// Lookup returns the node with the given key.
func (t *Tree) Lookup(k Key) (*Node, bool) {
	n, ok := t.nodes[k]
	return n, ok
}

// KeyOf returns the key of the node a dataset index was merged into.
func (t *Tree) KeyOf(index int) (Key, bool) {
	k, ok := t.keyOf[index]
	return k, ok
}

// Parent resolves a node's parent, or returns nil for the root.
func (t *Tree) Parent(n *Node) *Node {
	if n == nil || n.ParentKey == "" {
		return nil
	}
	return t.nodes[n.ParentKey]
}

// Ancestors returns the keys from n's parent up to the root.
func (t *Tree) Ancestors(n *Node) []Key {
	var out []Key
	for p := t.Parent(n); p != nil; p = t.Parent(p) {
		out = append(out, p.Key)
	}
	return out
}

// Reclassified reports whether a structural edge was rejected because it
// would have closed a cycle. Such edges are routed like sequence edges.
func (t *Tree) Reclassified(e trace.Edge) bool {
	return t.reclassified[refOf(e)]
}

// EffectiveType returns the type an edge is routed as.
func (t *Tree) EffectiveType(e trace.Edge) trace.EdgeType {
	if e.Type == trace.EdgeCall && t.Reclassified(e) {
		return trace.EdgeSequence
	}
	return e.Type
}

// Toggle collapses an expanded node or expands a collapsed one.
// It returns false when the key is unknown or the node is a leaf.
func (t *Tree) Toggle(k Key) bool {
	n, ok := t.nodes[k]
	if !ok || n.IsLeaf() {
		return false
	}
	if n.IsCollapsed() {
		n.Children, n.Collapsed = n.Collapsed, nil
	} else {
		n.Collapsed, n.Children = n.Children, nil
	}
	return true
}

// Collapse hides the children of a node. It reports whether anything changed.
func (t *Tree) Collapse(k Key) bool {
	n, ok := t.nodes[k]
	if !ok || len(n.Children) == 0 {
		return false
	}
	return t.Toggle(k)
}

// Expand shows the children of a node. It reports whether anything changed.
func (t *Tree) Expand(k Key) bool {
	n, ok := t.nodes[k]
	if !ok || !n.IsCollapsed() {
		return false
	}
	return t.Toggle(k)
}

// CollapseAll collapses every node with children, the root included.
func (t *Tree) CollapseAll() { t.CollapseBelow(0) }

// ExpandAll expands every collapsed node.
func (t *Tree) ExpandAll() {
	t.Walk(func(n *Node) bool {
		if n.IsCollapsed() {
			n.Children, n.Collapsed = n.Collapsed, nil
		}
		return true
	})
}

// CollapseBelow collapses every node at the given depth or deeper, so only
// the first depth+1 levels stay visible.
func (t *Tree) CollapseBelow(depth int) {
	t.Walk(func(n *Node) bool {
		if n.Depth >= depth && len(n.Children) > 0 {
			n.Collapsed, n.Children = n.Children, nil
		}
		return true
	})
}

// Walk visits every node in pre-order, descending into collapsed children
// as well. Returning false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(*Node) bool) {
	var walk func(*Node)
	walk = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.kids() {
			walk(c)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
}

// Visible returns the nodes reachable from the root through expanded
// children, in pre-order.
func (t *Tree) Visible() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
	return out
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Nodes        int
	Visible      int
	MaxDepth     int
	Matched      int // nodes carrying both trials
	OnlyTrial1   int
	OnlyTrial2   int
	Reparented   int
	Reclassified int
	Synthetic    bool // root is synthetic
	Diff         bool
}

// Stats counts the nodes of the tree.
func (t *Tree) Stats() Stats {
	var all []*Node
	t.Walk(func(n *Node) bool {
		all = append(all, n)
		return true
	})
	s := Stats{
		Nodes:        len(all),
		Visible:      len(t.Visible()),
		Matched:      lo.CountBy(all, (*Node).Both),
		Reparented:   lo.CountBy(all, func(n *Node) bool { return n.Reparented }),
		Reclassified: len(t.reclassified),
		Diff:         t.Diff(),
	}
	if len(all) > 0 {
		s.MaxDepth = lo.MaxBy(all, func(a, b *Node) bool { return a.Depth > b.Depth }).Depth
		s.Synthetic = t.Root.Synthetic
	}
	if s.Diff {
		s.OnlyTrial1 = lo.CountBy(all, func(n *Node) bool { return n.Membership() == trace.OnlyTrial1 })
		s.OnlyTrial2 = lo.CountBy(all, func(n *Node) bool { return n.Membership() == trace.OnlyTrial2 })
	}
	return s
}
