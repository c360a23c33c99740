package calltree

import (
	"slices"
	"testing"

	"github.com/matzehuels/trialviz/pkg/trace"
)

func node(idx int, name string, trial, parent, child int) trace.Node {
	return trace.Node{Index: idx, Name: name, TrialID: trial, ParentIndex: parent, ChildIndex: child, Duration: 1}
}

func call(src, dst int) trace.Edge {
	return trace.Edge{Source: src, Target: dst, Type: trace.EdgeCall, Count: 1}
}

func seq(src, dst int) trace.Edge {
	return trace.Edge{Source: src, Target: dst, Type: trace.EdgeSequence, Count: 1}
}

func build(t *testing.T, ds *trace.Dataset) *Tree {
	t.Helper()
	tree := BuildTree(Populate(ds))
	if tree == nil {
		t.Fatal("BuildTree() = nil")
	}
	return tree
}

func keys(nodes []*Node) []Key {
	out := make([]Key, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}

func chain() *trace.Dataset {
	return &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{
			node(0, "A", 1, trace.RootIndex, 0),
			node(1, "B", 1, 0, 0),
			node(2, "C", 1, 1, 0),
		},
		Edges: []trace.Edge{call(0, 1), call(1, 2)},
	}
}

// checkShape asserts the structural invariants every tree must hold.
func checkShape(t *testing.T, tree *Tree) {
	t.Helper()
	roots := 0
	seen := make(map[*Node]bool)
	var walk func(n *Node, path map[*Node]bool)
	walk = func(n *Node, path map[*Node]bool) {
		if path[n] {
			t.Fatalf("node %s reachable from itself", n.Key)
		}
		if len(n.Children) > 0 && len(n.Collapsed) > 0 {
			t.Errorf("node %s has both children and collapsed children", n.Key)
		}
		seen[n] = true
		path[n] = true
		for _, c := range n.kids() {
			if c.ParentKey != n.Key {
				t.Errorf("child %s has ParentKey %q, want %q", c.Key, c.ParentKey, n.Key)
			}
			if c.Depth != n.Depth+1 {
				t.Errorf("child %s depth = %d, want %d", c.Key, c.Depth, n.Depth+1)
			}
			walk(c, path)
		}
		delete(path, n)
	}
	walk(tree.Root, map[*Node]bool{})

	for _, n := range tree.nodes {
		if n.IsRoot() {
			roots++
		}
		if !seen[n] {
			t.Errorf("node %s not reachable from root", n.Key)
		}
	}
	if roots != 1 {
		t.Errorf("roots = %d, want 1", roots)
	}
}

func TestBuildTreeChain(t *testing.T) {
	tree := build(t, chain())
	checkShape(t, tree)

	if tree.Root.Key != "0" || tree.Root.Synthetic {
		t.Fatalf("root = %s (synthetic %v), want 0", tree.Root.Key, tree.Root.Synthetic)
	}
	visible := tree.Visible()
	if got, want := keys(visible), []Key{"0", "1", "2"}; !slices.Equal(got, want) {
		t.Errorf("Visible() = %v, want %v", got, want)
	}
	for i, n := range visible {
		if n.Depth != i {
			t.Errorf("%s depth = %d, want %d", n.Key, n.Depth, i)
		}
		if n.Display == nil || n.Node1 != nil {
			t.Errorf("%s should carry a single-trial payload", n.Key)
		}
	}
	if s := tree.Stats(); s.MaxDepth != 2 || s.Nodes != 3 || s.Diff {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestBuildTreeEmpty(t *testing.T) {
	if tree := BuildTree(Populate(&trace.Dataset{Trial1: 1, Trial2: 1})); tree != nil {
		t.Errorf("BuildTree(empty) = %v, want nil", tree)
	}
	if tree := BuildTree(nil); tree != nil {
		t.Error("BuildTree(nil) should be nil")
	}
}

func TestBuildTreeForeignTrialOnly(t *testing.T) {
	tests := []struct {
		name   string
		t1, t2 int
	}{
		{"single trial", 1, 1},
		{"diff", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &trace.Dataset{
				Trial1: tt.t1, Trial2: tt.t2,
				Nodes: []trace.Node{
					node(0, "A", 7, trace.RootIndex, 0),
					node(1, "B", 7, 0, 0),
				},
				Edges: []trace.Edge{call(0, 1)},
			}
			if tree := BuildTree(Populate(ds)); tree != nil {
				t.Errorf("BuildTree() = tree with root %s, want nil", tree.Root.Key)
			}
		})
	}
}

func TestBuildTreeAcyclic(t *testing.T) {
	tests := []struct {
		name             string
		ds               *trace.Dataset
		wantReclassified int
		wantReparented   int
	}{
		{
			name: "mutual calls",
			ds: &trace.Dataset{
				Trial1: 1, Trial2: 1,
				Nodes: []trace.Node{node(0, "A", 1, trace.RootIndex, 0), node(1, "B", 1, 0, 0)},
				Edges: []trace.Edge{call(0, 1), call(1, 0)},
			},
			wantReclassified: 1,
		},
		{
			name: "self call",
			ds: &trace.Dataset{
				Trial1: 1, Trial2: 1,
				Nodes: []trace.Node{node(0, "fib", 1, trace.RootIndex, 0)},
				Edges: []trace.Edge{call(0, 0)},
			},
			wantReclassified: 1,
		},
		{
			name: "parent index cycle",
			ds: &trace.Dataset{
				Trial1: 1, Trial2: 1,
				Nodes: []trace.Node{
					node(0, "main", 1, trace.RootIndex, 0),
					node(1, "x", 1, 2, 0),
					node(2, "y", 1, 1, 0),
				},
			},
			wantReparented: 1,
		},
		{
			name: "missing caller",
			ds: &trace.Dataset{
				Trial1: 1, Trial2: 1,
				Nodes: []trace.Node{node(0, "main", 1, trace.RootIndex, 0), node(1, "lost", 1, 99, 0)},
			},
			wantReparented: 1,
		},
		{
			name: "sequence back to ancestor",
			ds: &trace.Dataset{
				Trial1: 1, Trial2: 1,
				Nodes: []trace.Node{
					node(0, "main", 1, trace.RootIndex, 0),
					node(1, "a", 1, 0, 0),
					node(2, "b", 1, 1, 0),
				},
				Edges: []trace.Edge{call(0, 1), call(1, 2), seq(2, 1)},
			},
			wantReclassified: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := build(t, tt.ds)
			checkShape(t, tree)
			s := tree.Stats()
			if s.Reclassified != tt.wantReclassified {
				t.Errorf("Reclassified = %d, want %d", s.Reclassified, tt.wantReclassified)
			}
			if s.Reparented != tt.wantReparented {
				t.Errorf("Reparented = %d, want %d", s.Reparented, tt.wantReparented)
			}
			if s.Nodes != len(tt.ds.Nodes) {
				t.Errorf("Nodes = %d, want %d", s.Nodes, len(tt.ds.Nodes))
			}
		})
	}
}

func TestReclassifiedEdgeRoutesAsSequence(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{node(0, "A", 1, trace.RootIndex, 0), node(1, "B", 1, 0, 0)},
		Edges: []trace.Edge{call(0, 1), call(1, 0)},
	}
	tree := build(t, ds)
	if got := tree.EffectiveType(call(1, 0)); got != trace.EdgeSequence {
		t.Errorf("EffectiveType(1->0) = %v, want sequence", got)
	}
	if got := tree.EffectiveType(call(0, 1)); got != trace.EdgeCall {
		t.Errorf("EffectiveType(0->1) = %v, want call", got)
	}
	if n, _ := tree.Lookup("1"); tree.Parent(n) != tree.Root {
		t.Error("B should stay under A")
	}
}

func TestPopulateSequence(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{
			node(0, "main", 1, trace.RootIndex, 0),
			node(1, "a", 1, trace.RootIndex, 0),
			node(2, "b", 1, trace.RootIndex, 1),
			node(3, "c", 1, trace.RootIndex, 2),
		},
		// Sequence edges listed before the edge that places their head.
		Edges: []trace.Edge{seq(2, 3), seq(1, 2), call(0, 1)},
	}
	cm := Populate(ds)
	for _, k := range []Key{"1", "2", "3"} {
		if got := cm.Entries[k].CallerKey; got != "0" {
			t.Errorf("caller(%s) = %q, want 0", k, got)
		}
	}
	if got, want := cm.Entries["0"].Children, []Key{"1", "2", "3"}; !slices.Equal(got, want) {
		t.Errorf("children(0) = %v, want %v", got, want)
	}
	if got := cm.TopLevel(1); !slices.Equal(got, []Key{"0"}) {
		t.Errorf("TopLevel(1) = %v, want [0]", got)
	}
}

func TestPopulateIgnoresCrossTrialLinks(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 2,
		Nodes: []trace.Node{
			node(0, "A", 1, trace.RootIndex, 0),
			node(1, "B", 2, trace.RootIndex, 0),
		},
		Edges: []trace.Edge{call(0, 1)},
	}
	cm := Populate(ds)
	if got := cm.Entries["1"].CallerKey; got != "" {
		t.Errorf("caller(1) = %q, want none", got)
	}
}

func TestChildOrdering(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{
			node(0, "main", 1, trace.RootIndex, 0),
			node(1, "third", 1, 0, 2),
			node(2, "first", 1, 0, 0),
			node(3, "second-a", 1, 0, 1),
			node(4, "second-b", 1, 0, 1),
		},
	}
	tree := build(t, ds)
	if got, want := keys(tree.Root.Children), []Key{"2", "3", "4", "1"}; !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
}

func TestSyntheticRoot(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{
			node(0, "init", 1, trace.RootIndex, 0),
			node(1, "run", 1, trace.RootIndex, 1),
		},
	}
	tree := build(t, ds)
	checkShape(t, tree)
	if tree.Root.Key != RootKey || !tree.Root.Synthetic {
		t.Fatalf("root = %s, want synthetic root", tree.Root.Key)
	}
	if tree.Root.Name() != "root" || tree.Root.Primary() != nil {
		t.Error("synthetic root should carry no payload")
	}
	if got := keys(tree.Root.Children); !slices.Equal(got, []Key{"0", "1"}) {
		t.Errorf("children = %v", got)
	}
}

func TestReparentedUnderRoot(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{
			node(0, "main", 1, trace.RootIndex, 0),
			node(1, "orphan", 1, 42, 0),
			node(2, "child", 1, 0, 5),
		},
	}
	tree := build(t, ds)
	if got := keys(tree.Root.Children); !slices.Equal(got, []Key{"2", "1"}) {
		t.Errorf("children = %v, want [2 1]", got)
	}
	orphan, _ := tree.Lookup("1")
	if !orphan.Reparented || orphan.Depth != 1 {
		t.Errorf("orphan = %+v, want reparented at depth 1", orphan)
	}
}

func diffDataset(withB2 bool) *trace.Dataset {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 2,
		Nodes: []trace.Node{
			node(0, "A", 1, trace.RootIndex, 0),
			node(1, "B", 1, 0, 0),
			node(2, "A", 2, trace.RootIndex, 0),
		},
		Edges: []trace.Edge{
			{Source: 0, Target: 1, Type: trace.EdgeCall, Count: 1, Trial: trace.OnlyTrial1},
		},
		MinDuration: map[int]float64{1: 0, 2: 0},
		MaxDuration: map[int]float64{1: 10, 2: 10},
	}
	if withB2 {
		ds.Nodes = append(ds.Nodes, node(3, "B", 2, 2, 0))
		ds.Edges = append(ds.Edges, trace.Edge{Source: 2, Target: 3, Type: trace.EdgeCall, Count: 1, Trial: trace.OnlyTrial2})
	}
	return ds
}

func TestDiffMerge(t *testing.T) {
	tree := build(t, diffDataset(true))
	checkShape(t, tree)

	if !tree.Root.Both() || tree.Root.Key != "0" {
		t.Fatalf("root = %s, want combined node 0", tree.Root.Key)
	}
	if len(tree.Root.Children) != 1 {
		t.Fatalf("root children = %d, want 1", len(tree.Root.Children))
	}
	b := tree.Root.Children[0]
	if !b.Both() || b.Node1.Index != 1 || b.Node2.Index != 3 {
		t.Errorf("B = %+v, want payloads 1 and 3", b)
	}
	if k, _ := tree.KeyOf(3); k != "1" {
		t.Errorf("KeyOf(3) = %q, want 1", k)
	}
	if b.Membership() != trace.Shared {
		t.Errorf("Membership() = %v, want shared", b.Membership())
	}
	if s := tree.Stats(); s.Matched != 2 || s.OnlyTrial1 != 0 || s.OnlyTrial2 != 0 {
		t.Errorf("Stats() = %+v", s)
	}

	// Reload without trial 2's B.
	tree = build(t, diffDataset(false))
	b = tree.Root.Children[0]
	if b.Node1 == nil || b.Node2 != nil {
		t.Errorf("B = %+v, want only trial 1 payload", b)
	}
	if b.Membership() != trace.OnlyTrial1 {
		t.Errorf("Membership() = %v, want trial1", b.Membership())
	}
}

func TestDiffSameSlotDifferentNames(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 2,
		Nodes: []trace.Node{
			node(0, "main", 1, trace.RootIndex, 0),
			node(1, "load", 1, 0, 0),
			node(2, "main", 2, trace.RootIndex, 0),
			node(3, "fetch", 2, 2, 0),
		},
		Edges: []trace.Edge{call(0, 1), call(2, 3)},
	}
	tree := build(t, ds)
	kids := tree.Root.Children
	if len(kids) != 2 {
		t.Fatalf("children = %v, want two single-trial nodes", keys(kids))
	}
	if kids[0].Membership() != trace.OnlyTrial1 || kids[1].Membership() != trace.OnlyTrial2 {
		t.Errorf("memberships = %v, %v", kids[0].Membership(), kids[1].Membership())
	}
	if kids[1].Key != "3" {
		t.Errorf("trial 2 node key = %s, want 3", kids[1].Key)
	}
}

func TestDiffMismatchedRoots(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 2,
		Nodes: []trace.Node{
			node(0, "main", 1, trace.RootIndex, 0),
			node(1, "other", 2, trace.RootIndex, 0),
		},
	}
	tree := build(t, ds)
	if !tree.Root.Synthetic {
		t.Fatal("mismatched roots should produce a synthetic root")
	}
	if s := tree.Stats(); s.OnlyTrial1 != 1 || s.OnlyTrial2 != 1 || s.Nodes != 3 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{
			node(0, "main", 1, trace.RootIndex, 0),
			node(1, "a", 1, 0, 0),
			node(2, "b", 1, 0, 1),
			node(3, "c", 1, 1, 0),
		},
	}
	tree := build(t, ds)
	before := keys(tree.Visible())
	children := slices.Clone(tree.Root.Children)

	if !tree.Toggle("0") {
		t.Fatal("Toggle(root) = false")
	}
	if got := tree.Visible(); len(got) != 1 {
		t.Errorf("visible after collapse = %v, want root only", keys(got))
	}
	checkShape(t, tree)

	tree.Toggle("0")
	if got := keys(tree.Visible()); !slices.Equal(got, before) {
		t.Errorf("visible after expand = %v, want %v", got, before)
	}
	for i, c := range tree.Root.Children {
		if c != children[i] {
			t.Errorf("child %d identity changed", i)
		}
	}

	if tree.Toggle("3") {
		t.Error("Toggle(leaf) = true")
	}
	if tree.Toggle("missing") {
		t.Error("Toggle(missing) = true")
	}
}

func TestCollapseHelpers(t *testing.T) {
	tree := build(t, chain())

	tree.CollapseBelow(1)
	if got := keys(tree.Visible()); !slices.Equal(got, []Key{"0", "1"}) {
		t.Errorf("after CollapseBelow(1) = %v", got)
	}
	tree.ExpandAll()
	if got := len(tree.Visible()); got != 3 {
		t.Errorf("after ExpandAll = %d visible, want 3", got)
	}
	tree.CollapseAll()
	if got := len(tree.Visible()); got != 1 {
		t.Errorf("after CollapseAll = %d visible, want 1", got)
	}
	if tree.Collapse("0") {
		t.Error("Collapse on a collapsed node should report no change")
	}
	if !tree.Expand("0") {
		t.Error("Expand(0) = false")
	}
	if tree.Stats().Nodes != 3 {
		t.Error("collapsing should not lose nodes")
	}
}

func TestAncestors(t *testing.T) {
	tree := build(t, chain())
	c, _ := tree.Lookup("2")
	if got := tree.Ancestors(c); !slices.Equal(got, []Key{"1", "0"}) {
		t.Errorf("Ancestors(2) = %v, want [1 0]", got)
	}
	if tree.Parent(tree.Root) != nil {
		t.Error("root should have no parent")
	}
	b, _ := tree.Lookup("1")
	if got := c.Ordinal(b); got != 0 {
		t.Errorf("Ordinal = %d, want 0", got)
	}
}
