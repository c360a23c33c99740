package reconcile

import "time"

// Trigger names what started a pass.
type Trigger string

const (
	TriggerLoad     Trigger = "load"
	TriggerClick    Trigger = "click"
	TriggerConfig   Trigger = "config"
	TriggerCollapse Trigger = "collapse"
)

// Change describes one element's transition.
type Change[T any] struct {
	Key  string
	From T
	To   T
}

// Diff groups the changes of one element category.
type Diff[T any] struct {
	Enter  []Change[T]
	Update []Change[T]
	Exit   []Change[T]
}

// Len returns the number of entering, updating and exiting elements.
func (d Diff[T]) Len() (enter, update, exit int) {
	return len(d.Enter), len(d.Update), len(d.Exit)
}

// Pass is the result of one reconciliation.
//
// Within a pass, every edge references node keys present in the new
// snapshot, and every label references an edge present in it.
//
// A key appears in at most one of Enter, Update and Exit, except in a load
// pass: a reload exits every element rendered before, so a key reused by the
// new dataset is listed in both Exit and Enter. Surfaces that index elements
// by key must apply Exit before Enter.
type Pass struct {
	Seq      int
	Trigger  Trigger
	Anchor   string
	Nodes    Diff[NodeState]
	Edges    Diff[EdgeState]
	Labels   Diff[LabelState]
	Duration time.Duration

	// Empty is set when there is nothing to render.
	Empty bool

	// Snapshot is the render state after the pass.
	Snapshot *Snapshot
}

// diff compares two keyed collections. enter builds the starting state of a
// new element from its final state; exit builds the final state of a
// removed element from its last state.
func diff[T any](
	prev map[string]T, prevOrder []string,
	next map[string]T, nextOrder []string,
	enter, exit func(T) T,
) Diff[T] {
	var d Diff[T]
	for _, k := range nextOrder {
		to := next[k]
		if from, ok := prev[k]; ok {
			d.Update = append(d.Update, Change[T]{Key: k, From: from, To: to})
			continue
		}
		d.Enter = append(d.Enter, Change[T]{Key: k, From: enter(to), To: to})
	}
	for _, k := range prevOrder {
		if _, ok := next[k]; ok {
			continue
		}
		from := prev[k]
		d.Exit = append(d.Exit, Change[T]{Key: k, From: from, To: exit(from)})
	}
	return d
}
