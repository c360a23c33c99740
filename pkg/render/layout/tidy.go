// Package layout assigns diagram coordinates to the visible part of a call
// tree.
//
// [Tidy] is a compact tidy-tree layout: leaves are packed left to right at a
// fixed horizontal spacing, every parent is centered over the span of its
// children, and each level sits a fixed distance below the previous one.
// Collapsed subtrees take no room and their descendants keep whatever
// position they had.
//
// The layout is a pure function of the visible tree shape and the two
// spacing parameters: running it twice on an unchanged tree yields identical
// coordinates.
package layout

import "github.com/matzehuels/trialviz/pkg/calltree"

const (
	DefaultSizeX = 60.0
	DefaultSizeY = 80.0
)

// Tidy positions root and every node reachable through expanded children.
// It writes X and Y on the nodes and returns the box enclosing them.
// Non-positive sizes fall back to the defaults.
func Tidy(root *calltree.Node, sizeX, sizeY float64) Bounds {
	if root == nil {
		return Bounds{}
	}
	if sizeX <= 0 {
		sizeX = DefaultSizeX
	}
	if sizeY <= 0 {
		sizeY = DefaultSizeY
	}

	t := tidy{sizeX: sizeX, sizeY: sizeY}
	t.place(root, 0)
	t.bounds = Bounds{MinX: root.X, MaxX: root.X, MinY: root.Y, MaxY: root.Y}
	t.measure(root)
	return t.bounds
}

type tidy struct {
	sizeX, sizeY float64
	leaves       int
	bounds       Bounds
}

func (t *tidy) place(n *calltree.Node, depth int) {
	n.Y = float64(depth) * t.sizeY
	if len(n.Children) == 0 {
		n.X = float64(t.leaves) * t.sizeX
		t.leaves++
		return
	}
	for _, c := range n.Children {
		t.place(c, depth+1)
	}
	first, last := n.Children[0], n.Children[len(n.Children)-1]
	n.X = (first.X + last.X) / 2
}

func (t *tidy) measure(n *calltree.Node) {
	t.bounds.include(n.X, n.Y)
	for _, c := range n.Children {
		t.measure(c)
	}
}
