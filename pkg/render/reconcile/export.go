package reconcile

import "github.com/matzehuels/trialviz/pkg/render/layout"

// Export is the full rendered geometry of the current state, handed to
// external serializers.
type Export struct {
	Trial1    int           `json:"trial1"`
	Trial2    int           `json:"trial2"`
	Diff      bool          `json:"diff"`
	Seq       int           `json:"seq"`
	Empty     bool          `json:"empty"`
	Bounds    layout.Bounds `json:"bounds"`
	Transform Transform     `json:"transform"`
	Config    Config        `json:"config"`
	Nodes     []NodeState   `json:"nodes"`
	Edges     []EdgeState   `json:"edges"`
	Labels    []LabelState  `json:"labels"`
}

// Export returns the current render state. The result shares nothing with
// the engine.
func (e *Engine) Export() *Export {
	x := &Export{
		Seq:       e.seq,
		Empty:     e.tree == nil,
		Bounds:    e.bounds,
		Transform: e.transform,
		Config:    e.cfg,
		Nodes:     e.snap.Nodes(),
		Edges:     e.snap.Edges(),
		Labels:    e.snap.Labels(),
	}
	if e.ds != nil {
		x.Trial1, x.Trial2 = e.ds.Trial1, e.ds.Trial2
		x.Diff = e.ds.IsDiff()
	}
	return x
}

// Node returns the exported state of a node.
func (x *Export) Node(key string) (NodeState, bool) {
	for _, n := range x.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return NodeState{}, false
}
