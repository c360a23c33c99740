package trace

import "fmt"

// Problem describes one record dropped during ingestion.
type Problem struct {
	Err   error // ErrUnknownSource, ErrUnknownTarget, ErrUnknownTrial or ErrDuplicateIndex
	Node  *Node // set for node problems
	Edge  *Edge // set for edge problems
	Index int   // position of the record in its input slice
}

// String formats the problem for warning logs.
func (p Problem) String() string {
	switch {
	case p.Edge != nil:
		return fmt.Sprintf("edge #%d %d->%d (%s): %v", p.Index, p.Edge.Source, p.Edge.Target, p.Edge.Type, p.Err)
	case p.Node != nil:
		return fmt.Sprintf("node #%d index %d (%s): %v", p.Index, p.Node.Index, p.Node.Name, p.Err)
	default:
		return p.Err.Error()
	}
}

// Report summarizes an ingestion pass.
type Report struct {
	NodesKept    int
	EdgesKept    int
	NodesDropped int
	EdgesDropped int
	Problems     []Problem
}

// Malformed reports whether any record was dropped.
func (r Report) Malformed() bool { return len(r.Problems) > 0 }

// Ingest validates a dataset and returns a cleaned copy.
//
// Nodes whose index was already seen are dropped, as are nodes recorded under
// a trial other than Trial1 or Trial2. Edges whose source or target does not
// reference a kept node are dropped too. Edges with an unknown type
// or membership are kept as the decoder produced them; [ReadDataset] already
// rejects those at the schema level. The input dataset is not modified.
//
// Ingest never fails: every dropped record is listed in the report so the
// caller can log it as a warning.
func Ingest(d *Dataset) (*Dataset, Report) {
	var rep Report
	out := d.Clone()
	out.Nodes = out.Nodes[:0]
	out.Edges = out.Edges[:0]

	seen := make(map[int]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		var err error
		switch {
		case seen[n.Index]:
			err = ErrDuplicateIndex
		case n.TrialID != d.Trial1 && n.TrialID != d.Trial2:
			err = ErrUnknownTrial
		}
		if err != nil {
			node := n
			rep.Problems = append(rep.Problems, Problem{Err: err, Node: &node, Index: i})
			rep.NodesDropped++
			continue
		}
		seen[n.Index] = true
		out.Nodes = append(out.Nodes, n)
	}

	for i, e := range d.Edges {
		var err error
		switch {
		case !seen[e.Source]:
			err = ErrUnknownSource
		case !seen[e.Target]:
			err = ErrUnknownTarget
		}
		if err != nil {
			edge := e
			rep.Problems = append(rep.Problems, Problem{Err: err, Edge: &edge, Index: i})
			rep.EdgesDropped++
			continue
		}
		out.Edges = append(out.Edges, e)
	}

	rep.NodesKept = len(out.Nodes)
	rep.EdgesKept = len(out.Edges)
	return out, rep
}
