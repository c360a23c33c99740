package trace

import (
	"errors"
	"slices"
)

var (
	// ErrUnknownEdgeType is returned when an edge type name is not one of
	// call, return, sequence, loop or initial.
	ErrUnknownEdgeType = errors.New("unknown edge type")

	// ErrUnknownSource is reported by [Ingest] for an edge whose source index
	// does not reference a node of the dataset.
	ErrUnknownSource = errors.New("unknown source node")

	// ErrUnknownTarget is reported by [Ingest] for an edge whose target index
	// does not reference a node of the dataset.
	ErrUnknownTarget = errors.New("unknown target node")

	// ErrUnknownTrial is reported by [Ingest] for a node recorded under a trial
	// the dataset does not display.
	ErrUnknownTrial = errors.New("node outside the displayed trials")

	// ErrDuplicateIndex is reported by [Ingest] when two nodes share an index.
	// The later node is dropped.
	ErrDuplicateIndex = errors.New("duplicate node index")

	// ErrInvalidTrial is returned when a dataset names a non-positive trial id.
	ErrInvalidTrial = errors.New("invalid trial id")
)

// RootIndex is the ParentIndex sentinel of a top-level activation.
const RootIndex = -1

// Node is a single activation record of a trial.
//
// The zero value is a valid record with index 0; nodes are identified only by
// Index, which is unique across both trials of a dataset.
type Node struct {
	Index       int            `json:"index"`
	Name        string         `json:"name"`
	TrialID     int            `json:"trial_id"`
	ParentIndex int            `json:"parent_index"`
	ChildIndex  int            `json:"child_index"`
	Duration    float64        `json:"duration"`
	Info        map[string]any `json:"info,omitempty"`
}

// IsTopLevel reports whether the node declares no caller.
func (n Node) IsTopLevel() bool { return n.ParentIndex == RootIndex }

// Edge is a directed relationship between two activations.
type Edge struct {
	Source int        `json:"source"`
	Target int        `json:"target"`
	Type   EdgeType   `json:"type"`
	Count  int        `json:"count"`
	Trial  Membership `json:"trial"`
}

// IsSelf reports whether the edge starts and ends on the same activation.
func (e Edge) IsSelf() bool { return e.Source == e.Target }

// Dataset is the unit of data handed over by the fetch collaborator.
// Trial1 == Trial2 selects single-trial mode.
type Dataset struct {
	Trial1      int             `json:"trial1"`
	Trial2      int             `json:"trial2"`
	Nodes       []Node          `json:"nodes"`
	Edges       []Edge          `json:"edges"`
	MinDuration map[int]float64 `json:"min_duration,omitempty"`
	MaxDuration map[int]float64 `json:"max_duration,omitempty"`
}

// IsDiff reports whether the dataset overlays two different trials.
func (d *Dataset) IsDiff() bool { return d.Trial1 != d.Trial2 }

// Trials returns the distinct trial ids of the dataset in ascending order.
func (d *Dataset) Trials() []int {
	if !d.IsDiff() {
		return []int{d.Trial1}
	}
	return []int{min(d.Trial1, d.Trial2), max(d.Trial1, d.Trial2)}
}

// TotalDuration returns MaxDuration[trial] - MinDuration[trial].
// The result may be zero or negative for degenerate datasets; consumers
// computing proportions must clamp.
func (d *Dataset) TotalDuration(trial int) float64 {
	return d.MaxDuration[trial] - d.MinDuration[trial]
}

// MaxTotalDuration returns the largest total duration over the dataset's trials.
func (d *Dataset) MaxTotalDuration() float64 {
	return max(d.TotalDuration(d.Trial1), d.TotalDuration(d.Trial2))
}

// NodesOfTrial returns the nodes recorded for the given trial, in input order.
func (d *Dataset) NodesOfTrial(trial int) []Node {
	var out []Node
	for _, n := range d.Nodes {
		if n.TrialID == trial {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy of the dataset's slices and maps.
// Info payloads are shared, since nodes are immutable once received.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Trial1: d.Trial1,
		Trial2: d.Trial2,
		Nodes:  slices.Clone(d.Nodes),
		Edges:  slices.Clone(d.Edges),
	}
	if d.MinDuration != nil {
		out.MinDuration = make(map[int]float64, len(d.MinDuration))
		for k, v := range d.MinDuration {
			out.MinDuration[k] = v
		}
	}
	if d.MaxDuration != nil {
		out.MaxDuration = make(map[int]float64, len(d.MaxDuration))
		for k, v := range d.MaxDuration {
			out.MaxDuration[k] = v
		}
	}
	return out
}
