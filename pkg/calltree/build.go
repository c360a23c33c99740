package calltree

import (
	"cmp"
	"slices"
)

// BuildTree assembles a caller map into a rooted tree.
//
// It returns nil when no node of the displayed trials can be placed, either
// because the map is empty or because every entry belongs to another trial;
// callers treat that as "nothing to render". The result always has exactly one root: the single top-level
// node of the dataset, the matched pair of top-level nodes of a diff, or a
// synthetic node keyed [RootKey] otherwise.
func BuildTree(cm *CallerMap) *Tree {
	if cm == nil || len(cm.Order) == 0 {
		return nil
	}
	b := &builder{
		cm: cm,
		tree: &Tree{
			Trial1:       cm.Trial1,
			Trial2:       cm.Trial2,
			nodes:        make(map[Key]*Node, len(cm.Order)+1),
			keyOf:        make(map[int]Key, len(cm.Order)),
			reclassified: make(map[edgeRef]bool, len(cm.Reclassified)),
		},
	}
	for _, e := range cm.Reclassified {
		b.tree.reclassified[refOf(e)] = true
	}
	if !b.build() {
		return nil
	}
	return b.tree
}

type builder struct {
	cm   *CallerMap
	tree *Tree
	seq  int
}

// pending is a placed node whose trial children are still to be attached.
type pending struct {
	node         *Node
	kids1, kids2 []Key
}

func (b *builder) entry(k Key) *Entry {
	if k == "" {
		return nil
	}
	return b.cm.Entries[k]
}

func (b *builder) children(k Key) []Key {
	if e := b.entry(k); e != nil {
		return e.Children
	}
	return nil
}

// build places every node and reports whether the tree has a root at all.
func (b *builder) build() bool {
	t1, t2 := b.cm.Trial1, b.cm.Trial2
	tops1, tops2 := b.cm.TopLevel(t1), []Key(nil)
	orphans1, orphans2 := b.cm.Orphans(t1), []Key(nil)
	if b.cm.Diff() {
		tops2, orphans2 = b.cm.TopLevel(t2), b.cm.Orphans(t2)
	}
	empty2 := len(tops2) == 0 && len(orphans2) == 0
	empty1 := len(tops1) == 0 && len(orphans1) == 0
	if empty1 && empty2 {
		return false
	}

	var root pending
	switch {
	case len(tops1) == 1 && empty2:
		root = b.rootFrom(tops1[0], "")
	case len(tops2) == 1 && empty1:
		root = b.rootFrom("", tops2[0])
	case len(tops1) == 1 && len(tops2) == 1 &&
		b.entry(tops1[0]).Node.Name == b.entry(tops2[0]).Node.Name:
		root = b.rootFrom(tops1[0], tops2[0])
	default:
		n := &Node{Key: RootKey, Synthetic: true}
		b.tree.nodes[RootKey] = n
		root = pending{node: n, kids1: tops1, kids2: tops2}
	}
	b.tree.Root = root.node

	queue := b.attach(root)
	for _, k := range orphans1 {
		queue = append(queue, b.adopt(root.node, b.entry(k), nil, true))
	}
	for _, k := range orphans2 {
		queue = append(queue, b.adopt(root.node, nil, b.entry(k), true))
	}
	b.sortChildren(root.node)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		queue = append(queue, b.attach(next)...)
		b.sortChildren(next.node)
	}
	return true
}

func (b *builder) rootFrom(k1, k2 Key) pending {
	n := b.newNode(b.entry(k1), b.entry(k2))
	return pending{node: n, kids1: b.children(k1), kids2: b.children(k2)}
}

// attach matches the two trials' children of p by (ChildIndex, Name) and
// places them under p.node.
func (b *builder) attach(p pending) []pending {
	var out []pending
	used := make([]bool, len(p.kids2))
	for _, k1 := range p.kids1 {
		e1 := b.entry(k1)
		var e2 *Entry
		for j, k2 := range p.kids2 {
			c := b.entry(k2)
			if !used[j] && c.Node.ChildIndex == e1.Node.ChildIndex && c.Node.Name == e1.Node.Name {
				used[j] = true
				e2 = c
				break
			}
		}
		out = append(out, b.adopt(p.node, e1, e2, false))
	}
	for j, k2 := range p.kids2 {
		if !used[j] {
			out = append(out, b.adopt(p.node, nil, b.entry(k2), false))
		}
	}
	return out
}

func (b *builder) adopt(parent *Node, e1, e2 *Entry, reparented bool) pending {
	n := b.newNode(e1, e2)
	n.ParentKey = parent.Key
	n.Depth = parent.Depth + 1
	n.Reparented = reparented
	parent.Children = append(parent.Children, n)

	var kids1, kids2 []Key
	if e1 != nil {
		kids1 = e1.Children
	}
	if e2 != nil {
		kids2 = e2.Children
	}
	return pending{node: n, kids1: kids1, kids2: kids2}
}

func (b *builder) newNode(e1, e2 *Entry) *Node {
	n := &Node{seq: b.seq}
	b.seq++
	switch {
	case !b.cm.Diff():
		n.Display = &e1.Node
	default:
		if e1 != nil {
			n.Node1 = &e1.Node
		}
		if e2 != nil {
			n.Node2 = &e2.Node
		}
	}
	n.Key = KeyFor(n.Primary().Index)
	b.tree.nodes[n.Key] = n
	for _, idx := range n.Indices() {
		b.tree.keyOf[idx] = n.Key
	}
	return n
}

// sortChildren orders children by ChildIndex, then trial id, then insertion.
// Reparented nodes stay after the regular children.
func (b *builder) sortChildren(n *Node) {
	slices.SortStableFunc(n.Children, func(x, y *Node) int {
		return cmp.Or(
			boolOrder(x.Reparented, y.Reparented),
			cmp.Compare(x.childIndex(), y.childIndex()),
			cmp.Compare(x.trialRank(), y.trialRank()),
			cmp.Compare(x.seq, y.seq),
		)
	})
}

func boolOrder(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
