package calltree

import (
	"testing"

	"github.com/matzehuels/trialviz/pkg/trace"
)

// datasetFrom decodes arbitrary bytes into a dataset of up to 12 nodes with
// any parent declaration, including self and forward references, followed by
// call, sequence and return edges between any two nodes.
func datasetFrom(diff bool, data []byte) *trace.Dataset {
	ds := &trace.Dataset{Trial1: 1, Trial2: 1}
	if diff {
		ds.Trial2 = 2
	}
	if len(data) == 0 {
		return ds
	}
	n := int(data[0])%12 + 1
	data = data[1:]
	next := func() int {
		if len(data) == 0 {
			return 0
		}
		b := data[0]
		data = data[1:]
		return int(b)
	}

	names := []string{"main", "load", "parse", "emit"}
	for i := range n {
		b := next()
		trial := 1
		if diff && b&0x80 != 0 {
			trial = 2
		}
		parent := b%(n+1) - 1
		ds.Nodes = append(ds.Nodes, node(i, names[b%len(names)], trial, parent, b%3))
	}

	types := []trace.EdgeType{trace.EdgeCall, trace.EdgeSequence, trace.EdgeReturn}
	for len(data) >= 3 {
		src, dst, typ := next()%n, next()%n, next()
		ds.Edges = append(ds.Edges, trace.Edge{
			Source: src,
			Target: dst,
			Type:   types[typ%len(types)],
			Count:  1,
		})
	}
	return ds
}

func FuzzBuildTree(f *testing.F) {
	f.Add(false, []byte{})
	f.Add(false, []byte{2, 0, 1, 0, 1, 0})
	f.Add(false, []byte{3, 1, 2, 3, 0, 1, 0, 1, 2, 0, 2, 0, 0})
	f.Add(true, []byte{3, 0, 0x80, 0x81, 0, 1, 0})
	f.Add(true, []byte{5, 0x80, 1, 2, 0x83, 0x84, 4, 0, 1, 1, 2, 1, 3, 4, 2})

	f.Fuzz(func(t *testing.T, diff bool, data []byte) {
		ds := datasetFrom(diff, data)
		tree := BuildTree(Populate(ds))
		if len(ds.Nodes) == 0 {
			if tree != nil {
				t.Fatal("BuildTree() of an empty dataset should be nil")
			}
			return
		}
		if tree == nil {
			t.Fatalf("BuildTree() = nil for %d nodes", len(ds.Nodes))
		}
		checkShape(t, tree)

		for _, n := range ds.Nodes {
			if _, ok := tree.KeyOf(n.Index); !ok {
				t.Errorf("node %d (%s) missing from the tree", n.Index, n.Name)
			}
		}

		// Collapsing everything and expanding again restores the shape.
		before := keys(tree.Visible())
		tree.CollapseAll()
		checkShape(t, tree)
		tree.ExpandAll()
		checkShape(t, tree)
		if after := keys(tree.Visible()); len(after) != len(before) {
			t.Errorf("visible after round trip = %d, want %d", len(after), len(before))
		}
	})
}
