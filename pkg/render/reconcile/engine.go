package reconcile

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trialviz/pkg/calltree"
	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/observability"
	"github.com/matzehuels/trialviz/pkg/render/layout"
	"github.com/matzehuels/trialviz/pkg/render/palette"
	"github.com/matzehuels/trialviz/pkg/render/route"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// Engine reconciles a call tree against its previously rendered state.
type Engine struct {
	cfg       Config
	surface   Surface
	callbacks Callbacks
	logger    *log.Logger

	ds        *trace.Dataset
	report    trace.Report
	tree      *calltree.Tree
	maxTotal  float64
	bounds    layout.Bounds
	snap      *Snapshot
	seq       int
	slots     int
	selected  calltree.Key
	transform Transform
}

// Option configures an [Engine].
type Option func(*Engine)

// WithConfig sets the initial configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.cfg = c.WithDefaults() } }

// WithCallbacks sets the host callbacks.
func WithCallbacks(cb Callbacks) Option { return func(e *Engine) { e.callbacks = cb } }

// WithLogger sets the logger passes are reported to.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine with no dataset loaded. A nil surface discards passes.
func New(surface Surface, opts ...Option) *Engine {
	if surface == nil {
		surface = nopSurface{}
	}
	e := &Engine{
		cfg:       DefaultConfig(),
		surface:   surface,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
		snap:      newSnapshot(),
		transform: Identity,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load replaces all engine state with a new dataset.
//
// The dataset is ingested first; dropped records are logged as warnings and
// available through [Engine.Report]. The returned pass exits everything
// rendered before and enters the new tree, so a key shared by both datasets
// is both exited and entered. It is marked Empty when no node of the
// displayed trials can be placed.
func (e *Engine) Load(ds *trace.Dataset) *Pass {
	start := time.Now()
	if ds == nil {
		ds = &trace.Dataset{}
	}
	clean, rep := trace.Ingest(ds)
	for _, p := range rep.Problems {
		e.logger.Warn("dropped malformed record", "code", errs.ErrCodeMalformedRecord, "record", p.String())
	}

	e.ds = clean
	e.report = rep
	e.maxTotal = clean.MaxTotalDuration()
	e.tree = calltree.BuildTree(calltree.Populate(clean))
	e.selected = ""

	if e.tree != nil {
		if e.cfg.CollapseDepth > 0 {
			e.tree.CollapseBelow(e.cfg.CollapseDepth)
		}
		if s := e.tree.Stats(); s.Reclassified > 0 || s.Reparented > 0 {
			e.logger.Warn("call tree repaired",
				"code", errs.ErrCodeCyclicReference,
				"reclassified", s.Reclassified,
				"reparented", s.Reparented)
		}
	}

	old := e.snap
	e.snap = newSnapshot()
	p := e.run(TriggerLoad, "")

	// Keys do not survive a reload: everything rendered before exits.
	p.Nodes.Exit = exitAll(old.nodes, old.nodeOrder, func(n NodeState) NodeState {
		n.Radius, n.Opacity = Vanish, Vanish
		return n
	})
	p.Edges.Exit = exitAll(old.edges, old.edgeOrder, func(s EdgeState) EdgeState {
		s.Opacity = Vanish
		return s
	})
	p.Labels.Exit = exitAll(old.labels, old.labelOrder, func(l LabelState) LabelState {
		l.Opacity = Vanish
		return l
	})
	e.apply(p, start)
	return p
}

// OnNodeClick toggles a node between expanded and collapsed and runs a pass
// anchored on it. Clicking a leaf selects it and runs a pass without
// structural change.
func (e *Engine) OnNodeClick(key string) (*Pass, error) {
	n, err := e.lookup(key)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if e.tree.Toggle(n.Key) {
		observability.Engine().OnToggle(context.Background(), key, n.IsCollapsed())
	}
	e.selected = n.Key
	if e.callbacks.NodeSelected != nil {
		e.callbacks.NodeSelected(n)
	}
	p := e.run(TriggerClick, n.Key)
	e.apply(p, start)
	return p, nil
}

// OnNodeCtrlClick reports a modifier click to the host together with the
// node selected by the last plain click. It does not change the tree, the
// selection or the rendered state.
func (e *Engine) OnNodeCtrlClick(key string) error {
	n, err := e.lookup(key)
	if err != nil {
		return err
	}
	var prev *calltree.Node
	if e.selected != "" {
		prev, _ = e.tree.Lookup(e.selected)
	}
	if e.callbacks.NodeCtrlSelected != nil {
		e.callbacks.NodeCtrlSelected(prev, n)
	}
	return nil
}

// OnConfigChange applies a partial configuration update and runs a pass
// anchored on the root.
func (e *Engine) OnConfigChange(ch ConfigChange) *Pass {
	start := time.Now()
	e.cfg = e.cfg.Apply(ch)
	p := e.run(TriggerConfig, "")
	e.apply(p, start)
	return p
}

// OnViewportTransform stores the host's viewport transform.
func (e *Engine) OnViewportTransform(t Transform) { e.transform = t }

// CollapseAll collapses every node and runs a pass anchored on the root.
func (e *Engine) CollapseAll() *Pass {
	return e.restructure(func(t *calltree.Tree) { t.CollapseAll() })
}

// ExpandAll expands every node and runs a pass anchored on the root.
func (e *Engine) ExpandAll() *Pass {
	return e.restructure(func(t *calltree.Tree) { t.ExpandAll() })
}

// CollapseBelow collapses every node at depth or deeper and runs a pass
// anchored on the root.
func (e *Engine) CollapseBelow(depth int) *Pass {
	return e.restructure(func(t *calltree.Tree) { t.CollapseBelow(depth) })
}

func (e *Engine) restructure(fn func(*calltree.Tree)) *Pass {
	start := time.Now()
	if e.tree != nil {
		fn(e.tree)
	}
	p := e.run(TriggerCollapse, "")
	e.apply(p, start)
	return p
}

// Tree returns the current call tree, or nil when nothing is loaded.
func (e *Engine) Tree() *calltree.Tree { return e.tree }

// Dataset returns the ingested dataset, or nil when nothing is loaded.
func (e *Engine) Dataset() *trace.Dataset { return e.ds }

// Report returns the ingestion report of the loaded dataset.
func (e *Engine) Report() trace.Report { return e.report }

// Snapshot returns the current render state.
func (e *Engine) Snapshot() *Snapshot { return e.snap }

// Config returns the current configuration.
func (e *Engine) Config() Config { return e.cfg }

// Transform returns the last viewport transform reported by the host.
func (e *Engine) Transform() Transform { return e.transform }

// Bounds returns the layout bounds of the last pass.
func (e *Engine) Bounds() layout.Bounds { return e.bounds }

// Selected returns the key of the node selected by the last plain click.
func (e *Engine) Selected() string { return string(e.selected) }

func (e *Engine) lookup(key string) (*calltree.Node, error) {
	if e.tree == nil {
		return nil, errs.New(errs.ErrCodeEmptyDataset, "nothing to render")
	}
	n, ok := e.tree.Lookup(calltree.Key(key))
	if !ok {
		return nil, errs.New(errs.ErrCodeNodeNotFound, "no node with key %q", key)
	}
	return n, nil
}

// run lays out the tree, builds the next snapshot and diffs it against the
// current one. The engine state is updated before run returns.
func (e *Engine) run(trigger Trigger, anchorKey calltree.Key) *Pass {
	prev := e.snap
	next := newSnapshot()
	p := &Pass{
		Seq:      e.seq + 1,
		Trigger:  trigger,
		Duration: e.cfg.Duration,
		Snapshot: next,
	}

	var from, to route.Point
	if e.tree == nil {
		p.Empty = true
		e.bounds = layout.Bounds{}
	} else {
		e.bounds = layout.Tidy(e.tree.Root, e.cfg.NodeSpacingX, e.cfg.NodeSpacingY)
		anchor, ok := e.tree.Lookup(anchorKey)
		if !ok {
			anchor = e.tree.Root
		}
		if trigger == TriggerLoad {
			anchor.PrevX, anchor.PrevY = anchor.X, anchor.Y
		}
		p.Anchor = string(anchor.Key)
		from = route.Point{X: anchor.PrevX, Y: anchor.PrevY}
		to = route.Point{X: anchor.X, Y: anchor.Y}
		e.fill(prev, next)
	}

	p.Nodes = diff(prev.nodes, prev.nodeOrder, next.nodes, next.nodeOrder,
		func(n NodeState) NodeState {
			n.X, n.Y, n.Radius, n.Opacity = from.X, from.Y, Vanish, Vanish
			return n
		},
		func(n NodeState) NodeState {
			n.X, n.Y, n.Radius, n.Opacity = to.X, to.Y, Vanish, Vanish
			return n
		})
	p.Edges = diff(prev.edges, prev.edgeOrder, next.edges, next.edgeOrder,
		func(s EdgeState) EdgeState { return collapseEdge(s, from) },
		func(s EdgeState) EdgeState { return collapseEdge(s, to) })
	p.Labels = diff(prev.labels, prev.labelOrder, next.labels, next.labelOrder,
		func(l LabelState) LabelState {
			l.X, l.Y, l.Opacity = from.X, from.Y, Vanish
			return l
		},
		func(l LabelState) LabelState {
			l.X, l.Y, l.Opacity = to.X, to.Y, Vanish
			return l
		})

	if e.tree != nil {
		for _, n := range e.tree.Visible() {
			n.PrevX, n.PrevY = n.X, n.Y
		}
	}
	e.snap = next
	e.seq = p.Seq
	return p
}

// apply hands a finished pass to the surface and reports it.
func (e *Engine) apply(p *Pass, start time.Time) {
	e.surface.Apply(p)

	info := observability.PassInfo{
		Seq:     p.Seq,
		Trigger: string(p.Trigger),
		Visible: len(p.Snapshot.nodes),
		Empty:   p.Empty,
	}
	info.Enter, info.Update, info.Exit = p.Nodes.Len()
	observability.Engine().OnPass(context.Background(), info, time.Since(start))
	e.logger.Debug("reconciled",
		"seq", p.Seq,
		"trigger", p.Trigger,
		"anchor", p.Anchor,
		"enter", info.Enter,
		"update", info.Update,
		"exit", info.Exit,
		"empty", p.Empty)
}

// fill computes the render state of every visible element into next.
func (e *Engine) fill(prev, next *Snapshot) {
	diffMode := e.tree.Diff()
	for _, n := range e.tree.Visible() {
		parent := e.tree.Parent(n)
		st := NodeState{
			Key:         string(n.Key),
			Parent:      string(n.ParentKey),
			Depth:       n.Depth,
			Ordinal:     max(0, n.Ordinal(parent)),
			X:           n.X,
			Y:           n.Y,
			Radius:      e.cfg.NodeRadius,
			Opacity:     1,
			Label:       n.Name(),
			FontSize:    e.cfg.FontSize,
			Fill:        palette.Paint(n, e.maxTotal),
			Border:      palette.Border(n, diffMode),
			Corner:      palette.Corner(n),
			Collapsed:   n.IsCollapsed(),
			HasChildren: !n.IsLeaf(),
			Membership:  n.Membership(),
			Reparented:  n.Reparented,
		}
		if e.cfg.TooltipEnabled {
			st.Tooltip = tooltip(n, e.tree)
		}
		st.Slot = nextSlot(e, prev.nodes, st.Key, func(s NodeState) int { return s.Slot })
		next.putNode(st)
	}

	rcfg := e.cfg.route()
	for _, ed := range e.mergedEdges(next) {
		src, dst := next.nodes[ed.Source], next.nodes[ed.Target]
		ed.Path = route.Route(ed.RoutedAs, src.endpoint(), dst.endpoint(), rcfg)
		ed.D = ed.Path.D()
		ed.Marker = route.MarkerID(ed.Membership)
		ed.Stroke = palette.MembershipColor(ed.Membership)
		ed.Opacity = 1
		ed.Slot = nextSlot(e, prev.edges, ed.ID, func(s EdgeState) int { return s.Slot })
		next.putEdge(ed)

		if !route.ShowLabel(ed.Type) {
			continue
		}
		mid := ed.Path.Midpoint()
		l := LabelState{
			ID:       LabelID(ed.ID),
			EdgeID:   ed.ID,
			Text:     strconv.Itoa(ed.Count),
			X:        mid.X,
			Y:        mid.Y,
			FontSize: e.cfg.LabelFontSize,
			Opacity:  1,
		}
		l.Slot = nextSlot(e, prev.labels, l.ID, func(s LabelState) int { return s.Slot })
		next.putLabel(l)
	}
}

// mergedEdges maps dataset edges onto visible node keys. Edges of the two
// trials landing on the same pair of keys are merged into one.
func (e *Engine) mergedEdges(next *Snapshot) []EdgeState {
	var out []EdgeState
	at := make(map[string]int)
	for _, ed := range e.ds.Edges {
		sk, ok1 := e.tree.KeyOf(ed.Source)
		tk, ok2 := e.tree.KeyOf(ed.Target)
		if !ok1 || !ok2 {
			continue
		}
		if _, ok := next.nodes[string(sk)]; !ok {
			continue
		}
		if _, ok := next.nodes[string(tk)]; !ok {
			continue
		}
		id := EdgeID(string(sk), string(tk))
		if i, ok := at[id]; ok {
			if out[i].Membership != ed.Trial {
				out[i].Membership = trace.Shared
			}
			out[i].Count = max(out[i].Count, ed.Count)
			continue
		}
		at[id] = len(out)
		out = append(out, EdgeState{
			ID:           id,
			Source:       string(sk),
			Target:       string(tk),
			Type:         ed.Type,
			RoutedAs:     e.tree.EffectiveType(ed),
			Count:        ed.Count,
			Membership:   ed.Trial,
			Reclassified: e.tree.Reclassified(ed),
		})
	}
	return out
}

// nextSlot returns the slot a key held in the previous snapshot, or a new one.
func nextSlot[T any](e *Engine, prev map[string]T, key string, get func(T) int) int {
	if s, ok := prev[key]; ok {
		return get(s)
	}
	e.slots++
	return e.slots
}

func collapseEdge(s EdgeState, at route.Point) EdgeState {
	s.Path = route.Path{Kind: route.Line, From: at, To: at}
	s.D = s.Path.D()
	s.Opacity = Vanish
	return s
}

func exitAll[T any](m map[string]T, order []string, vanish func(T) T) []Change[T] {
	out := make([]Change[T], 0, len(order))
	for _, k := range order {
		out = append(out, Change[T]{Key: k, From: m[k], To: vanish(m[k])})
	}
	return out
}

func tooltip(n *calltree.Node, t *calltree.Tree) string {
	var b strings.Builder
	b.WriteString(n.Name())
	for _, p := range []*trace.Node{n.Display, n.Node1, n.Node2} {
		if p == nil {
			continue
		}
		if t.Diff() {
			fmt.Fprintf(&b, "\ntrial %d: %s", p.TrialID, formatDuration(p.Duration))
		} else {
			fmt.Fprintf(&b, "\nduration: %s", formatDuration(p.Duration))
		}
	}
	if n.Reparented {
		b.WriteString("\n(caller unresolved)")
	}
	return b.String()
}

func formatDuration(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Microsecond).String()
}
