package reconcile

import (
	"github.com/matzehuels/trialviz/pkg/render/palette"
	"github.com/matzehuels/trialviz/pkg/render/route"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// Vanish is the size and opacity of elements at the start of an enter
// transition and the end of an exit transition.
const Vanish = 1e-6

// NodeState is everything a surface needs to draw one node.
type NodeState struct {
	Key         string           `json:"key"`
	Slot        int              `json:"slot"`
	Parent      string           `json:"parent,omitempty"`
	Depth       int              `json:"depth"`
	Ordinal     int              `json:"ordinal"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Radius      float64          `json:"radius"`
	Opacity     float64          `json:"opacity"`
	Label       string           `json:"label"`
	FontSize    float64          `json:"font_size"`
	Tooltip     string           `json:"tooltip,omitempty"`
	Fill        palette.Fill     `json:"fill"`
	Border      string           `json:"border"`
	Corner      float64          `json:"corner"`
	Collapsed   bool             `json:"collapsed"`
	HasChildren bool             `json:"has_children"`
	Membership  trace.Membership `json:"membership"`
	Reparented  bool             `json:"reparented,omitempty"`
}

func (n NodeState) endpoint() route.Endpoint {
	return route.Endpoint{Key: n.Key, X: n.X, Y: n.Y, Depth: n.Depth, Parent: n.Parent, Ordinal: n.Ordinal}
}

// EdgeState is everything a surface needs to draw one edge.
type EdgeState struct {
	ID           string           `json:"id"`
	Slot         int              `json:"slot"`
	Source       string           `json:"source"`
	Target       string           `json:"target"`
	Type         trace.EdgeType   `json:"type"`
	RoutedAs     trace.EdgeType   `json:"routed_as"`
	Count        int              `json:"count"`
	Membership   trace.Membership `json:"membership"`
	Path         route.Path       `json:"-"`
	D            string           `json:"d"`
	Marker       string           `json:"marker"`
	Stroke       string           `json:"stroke"`
	Opacity      float64          `json:"opacity"`
	Reclassified bool             `json:"reclassified,omitempty"`
}

// LabelState is the count label of one edge.
type LabelState struct {
	ID       string  `json:"id"`
	Slot     int     `json:"slot"`
	EdgeID   string  `json:"edge_id"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"font_size"`
	Opacity  float64 `json:"opacity"`
}

// EdgeID returns the identity of the edge between two node keys.
func EdgeID(source, target string) string { return source + "-" + target }

// LabelID returns the identity of an edge's count label.
func LabelID(edgeID string) string { return "label-" + edgeID }

// Snapshot is the immutable render state produced by one pass.
type Snapshot struct {
	nodes      map[string]NodeState
	nodeOrder  []string
	edges      map[string]EdgeState
	edgeOrder  []string
	labels     map[string]LabelState
	labelOrder []string
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		nodes:  make(map[string]NodeState),
		edges:  make(map[string]EdgeState),
		labels: make(map[string]LabelState),
	}
}

func (s *Snapshot) putNode(n NodeState) {
	if _, ok := s.nodes[n.Key]; !ok {
		s.nodeOrder = append(s.nodeOrder, n.Key)
	}
	s.nodes[n.Key] = n
}

func (s *Snapshot) putEdge(e EdgeState) {
	if _, ok := s.edges[e.ID]; !ok {
		s.edgeOrder = append(s.edgeOrder, e.ID)
	}
	s.edges[e.ID] = e
}

func (s *Snapshot) putLabel(l LabelState) {
	if _, ok := s.labels[l.ID]; !ok {
		s.labelOrder = append(s.labelOrder, l.ID)
	}
	s.labels[l.ID] = l
}

// Node returns the state of a visible node.
func (s *Snapshot) Node(key string) (NodeState, bool) {
	n, ok := s.nodes[key]
	return n, ok
}

// Edge returns the state of a visible edge.
func (s *Snapshot) Edge(id string) (EdgeState, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// Label returns the state of a visible label.
func (s *Snapshot) Label(id string) (LabelState, bool) {
	l, ok := s.labels[id]
	return l, ok
}

// Nodes returns the visible nodes in tree pre-order.
func (s *Snapshot) Nodes() []NodeState { return ordered(s.nodes, s.nodeOrder) }

// Edges returns the visible edges in dataset order.
func (s *Snapshot) Edges() []EdgeState { return ordered(s.edges, s.edgeOrder) }

// Labels returns the visible labels in edge order.
func (s *Snapshot) Labels() []LabelState { return ordered(s.labels, s.labelOrder) }

// Len returns the number of visible nodes, edges and labels.
func (s *Snapshot) Len() (nodes, edges, labels int) {
	return len(s.nodes), len(s.edges), len(s.labels)
}

func ordered[T any](m map[string]T, keys []string) []T {
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
