package calltree

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/matzehuels/trialviz/pkg/trace"
)

// Entry is the resolved placement of one dataset node.
type Entry struct {
	Node       trace.Node
	CallerKey  Key   // empty for top-level and reparented nodes
	Children   []Key // ordered by ChildIndex, then input order
	Reparented bool  // declared a caller that could not be resolved
	seq        int
}

// CallerMap maps every node key of a dataset to its placement.
type CallerMap struct {
	Trial1, Trial2 int
	Entries        map[Key]*Entry
	Order          []Key // input order

	// Reclassified lists structural edges rejected because they would have
	// closed a cycle.
	Reclassified []trace.Edge
}

// Diff reports whether the map was built from a two-trial dataset.
func (cm *CallerMap) Diff() bool { return cm.Trial1 != cm.Trial2 }

// TopLevel returns the keys of the given trial's nodes that declare no caller,
// in input order.
func (cm *CallerMap) TopLevel(trial int) []Key {
	return cm.filter(trial, func(e *Entry) bool {
		return e.CallerKey == "" && !e.Reparented
	})
}

// Orphans returns the keys of the given trial's reparented nodes.
func (cm *CallerMap) Orphans(trial int) []Key {
	return cm.filter(trial, func(e *Entry) bool { return e.Reparented })
}

func (cm *CallerMap) filter(trial int, keep func(*Entry) bool) []Key {
	var out []Key
	for _, k := range cm.Order {
		e := cm.Entries[k]
		if e.Node.TrialID == trial && keep(e) {
			out = append(out, k)
		}
	}
	return out
}

// placer resolves callers by dataset index. Every accepted link keeps the
// caller relation a forest.
type placer struct {
	nodes  map[int]*trace.Node
	caller map[int]int
}

func (p *placer) placed(idx int) bool {
	_, ok := p.caller[idx]
	return ok
}

// isAncestor reports whether anc is idx or one of its resolved callers.
func (p *placer) isAncestor(anc, idx int) bool {
	cur := idx
	for {
		if cur == anc {
			return true
		}
		next, ok := p.caller[cur]
		if !ok {
			return false
		}
		cur = next
	}
}

// link tries to make parent the caller of child. It returns false without
// linking when child is already placed, and reports cyclic when the link
// would close a cycle.
func (p *placer) link(parent, child int) (ok, cyclic bool) {
	pn, cn := p.nodes[parent], p.nodes[child]
	if pn == nil || cn == nil || pn.TrialID != cn.TrialID {
		return false, false
	}
	if p.isAncestor(child, parent) {
		return false, true
	}
	if p.placed(child) {
		return false, false
	}
	p.caller[child] = parent
	return true, false
}

// Populate resolves the caller of every node of ds.
//
// Edges whose endpoints are missing are ignored; run the dataset through
// [trace.Ingest] first to have them reported.
func Populate(ds *trace.Dataset) *CallerMap {
	cm := &CallerMap{
		Trial1:  ds.Trial1,
		Trial2:  ds.Trial2,
		Entries: make(map[Key]*Entry, len(ds.Nodes)),
	}
	p := &placer{
		nodes:  make(map[int]*trace.Node, len(ds.Nodes)),
		caller: make(map[int]int, len(ds.Nodes)),
	}
	for i := range ds.Nodes {
		n := &ds.Nodes[i]
		if _, dup := p.nodes[n.Index]; dup {
			continue
		}
		p.nodes[n.Index] = n
		k := KeyFor(n.Index)
		cm.Entries[k] = &Entry{Node: *n, seq: len(cm.Order)}
		cm.Order = append(cm.Order, k)
	}

	byType := lo.GroupBy(ds.Edges, func(e trace.Edge) trace.EdgeType { return e.Type })
	rejected := make(map[int]bool)
	reject := func(i int, e trace.Edge) {
		if !rejected[i] {
			rejected[i] = true
			cm.Reclassified = append(cm.Reclassified, e)
		}
	}

	for i, e := range byType[trace.EdgeCall] {
		if _, cyclic := p.link(e.Source, e.Target); cyclic {
			reject(i, e)
		}
	}

	sequence := byType[trace.EdgeSequence]
	seqRejected := make(map[int]bool)
	resolveSequence := func() {
		for changed := true; changed; {
			changed = false
			for i, e := range sequence {
				parent, ok := p.caller[e.Source]
				if !ok || seqRejected[i] {
					continue
				}
				linked, cyclic := p.link(parent, e.Target)
				if cyclic {
					seqRejected[i] = true
				}
				changed = changed || linked
			}
		}
	}
	resolveSequence()

	for _, k := range cm.Order {
		n := &cm.Entries[k].Node
		if p.placed(n.Index) || n.IsTopLevel() {
			continue
		}
		p.link(n.ParentIndex, n.Index)
	}
	resolveSequence()

	for i, e := range sequence {
		if seqRejected[i] {
			cm.Reclassified = append(cm.Reclassified, e)
		}
	}

	for _, k := range cm.Order {
		e := cm.Entries[k]
		parent, ok := p.caller[e.Node.Index]
		if !ok {
			e.Reparented = !e.Node.IsTopLevel()
			continue
		}
		e.CallerKey = KeyFor(parent)
		pe := cm.Entries[e.CallerKey]
		pe.Children = append(pe.Children, k)
	}
	for _, k := range cm.Order {
		e := cm.Entries[k]
		slices.SortStableFunc(e.Children, func(a, b Key) int {
			ea, eb := cm.Entries[a], cm.Entries[b]
			return cmp.Or(
				cmp.Compare(ea.Node.ChildIndex, eb.Node.ChildIndex),
				cmp.Compare(ea.seq, eb.seq),
			)
		})
	}
	return cm
}
