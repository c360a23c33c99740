package calltree

import (
	"strconv"

	"github.com/matzehuels/trialviz/pkg/trace"
)

// Key is the stable diagram identity of a hierarchy node.
type Key string

// RootKey identifies a synthetic root.
const RootKey Key = "root"

// KeyFor returns the key derived from a dataset node index.
func KeyFor(index int) Key { return Key(strconv.Itoa(index)) }

// Node is one node of the call tree.
//
// Single-trial trees set Display. Diff trees set Node1 (first trial), Node2
// (second trial) or both. A synthetic root sets none of them.
//
// The parent is held as a key and resolved through [Tree.Parent]; nodes
// never own their parent.
type Node struct {
	Key        Key
	Display    *trace.Node
	Node1      *trace.Node
	Node2      *trace.Node
	ParentKey  Key
	Children   []*Node
	Collapsed  []*Node
	Depth      int
	Synthetic  bool
	Reparented bool

	// Position fields are owned by the layout engine.
	X, Y         float64
	PrevX, PrevY float64

	seq int
}

// Primary returns the payload that names the node: Display, else Node1,
// else Node2. It is nil for a synthetic root.
func (n *Node) Primary() *trace.Node {
	switch {
	case n.Display != nil:
		return n.Display
	case n.Node1 != nil:
		return n.Node1
	default:
		return n.Node2
	}
}

// Name returns the activation name, or "root" for a synthetic root.
func (n *Node) Name() string {
	if p := n.Primary(); p != nil {
		return p.Name
	}
	return string(RootKey)
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentKey == "" }

// IsCollapsed reports whether the node's children are hidden.
func (n *Node) IsCollapsed() bool { return len(n.Collapsed) > 0 }

// IsLeaf reports whether the node has no children in either view.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 && len(n.Collapsed) == 0 }

// Both reports whether the node carries a payload from each trial.
func (n *Node) Both() bool { return n.Node1 != nil && n.Node2 != nil }

// Membership tells which trial(s) the node belongs to. Single-trial nodes,
// matched diff nodes and synthetic roots are [trace.Shared].
func (n *Node) Membership() trace.Membership {
	switch {
	case n.Display != nil, n.Synthetic, n.Both():
		return trace.Shared
	case n.Node1 != nil:
		return trace.OnlyTrial1
	default:
		return trace.OnlyTrial2
	}
}

// Indices returns the dataset indices merged into this node.
func (n *Node) Indices() []int {
	var out []int
	for _, p := range []*trace.Node{n.Display, n.Node1, n.Node2} {
		if p != nil {
			out = append(out, p.Index)
		}
	}
	return out
}

// Ordinal returns the position of the node among its parent's children,
// or -1 when the parent does not list it.
func (n *Node) Ordinal(parent *Node) int {
	if parent == nil {
		return -1
	}
	for i, c := range parent.kids() {
		if c == n {
			return i
		}
	}
	return -1
}

// kids returns the child set regardless of its collapsed state.
func (n *Node) kids() []*Node {
	if len(n.Children) > 0 {
		return n.Children
	}
	return n.Collapsed
}

func (n *Node) childIndex() int {
	if p := n.Primary(); p != nil {
		return p.ChildIndex
	}
	return 0
}

// trialRank orders combined nodes before second-trial-only ones.
func (n *Node) trialRank() int {
	switch {
	case n.Display != nil:
		return n.Display.TrialID
	case n.Node1 != nil:
		if n.Node2 != nil {
			return min(n.Node1.TrialID, n.Node2.TrialID)
		}
		return n.Node1.TrialID
	case n.Node2 != nil:
		return n.Node2.TrialID
	}
	return 0
}
