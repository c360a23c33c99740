package reconcile

import "github.com/matzehuels/trialviz/pkg/calltree"

// Surface receives the passes of an engine. Apply is called once per pass,
// after the engine's state has been updated. Exits are applied before enters;
// see [Pass].
type Surface interface {
	Apply(p *Pass)
}

// SurfaceFunc adapts a function to the [Surface] interface.
type SurfaceFunc func(p *Pass)

// Apply calls f(p).
func (f SurfaceFunc) Apply(p *Pass) { f(p) }

type nopSurface struct{}

func (nopSurface) Apply(*Pass) {}

// Callbacks are optional hooks into the host UI.
type Callbacks struct {
	// NodeSelected is called when a node is clicked.
	NodeSelected func(node *calltree.Node)

	// NodeCtrlSelected is called when a node is clicked with the modifier
	// key held. prev is the node selected by the last plain click, or nil.
	NodeCtrlSelected func(prev, node *calltree.Node)
}

// Transform is the viewport transform reported by the host's zoom layer.
// The engine stores it for exports and never interprets it.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the transform of an unzoomed, unpanned viewport.
var Identity = Transform{K: 1}

// MemorySurface records every pass it receives. It is the surface used in
// tests and by hosts that poll for state instead of drawing.
type MemorySurface struct {
	Passes []*Pass
}

// Apply records the pass.
func (m *MemorySurface) Apply(p *Pass) { m.Passes = append(m.Passes, p) }

// Last returns the most recent pass, or nil.
func (m *MemorySurface) Last() *Pass {
	if len(m.Passes) == 0 {
		return nil
	}
	return m.Passes[len(m.Passes)-1]
}

// Reset forgets every recorded pass.
func (m *MemorySurface) Reset() { m.Passes = nil }
