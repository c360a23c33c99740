// Package calltree reconstructs a rooted call tree from the flat records of a
// [trace.Dataset].
//
// # Overview
//
// Building a tree is a two step process. [Populate] resolves the caller of
// every activation and returns a [CallerMap]; [BuildTree] assembles the map
// into a [Tree] with exactly one root, merging the two trials of a diff
// dataset into combined nodes along the way.
//
//	cm := calltree.Populate(ds)
//	tree := calltree.BuildTree(cm)
//	if tree == nil {
//	    // nothing to render
//	}
//
// # Caller Resolution
//
// Only call and sequence edges place nodes. A call edge makes its source the
// caller of its target; a sequence edge gives its target the same caller as
// its source. Sequence links are resolved repeatedly until nothing changes,
// so chains of siblings inherit their caller from the first one. Nodes that
// no edge places fall back to their ParentIndex. Structural links never cross
// trials, and the first caller found for a node wins.
//
// # Cycles
//
// A structural link whose target is its own source, or an ancestor of its
// source, would make the tree cyclic. Such links are rejected and the edge is
// recorded as reclassified: the renderer routes it like a sequence edge. A
// node left without a resolvable caller is attached directly under the root
// and flagged as [Node.Reparented].
//
// # Diff Merge
//
// When the dataset holds two trials, the builder walks both call trees
// breadth-first from the root pair. The children of two matched nodes are
// matched by (ChildIndex, Name); each matched pair becomes one [Node] with
// both Node1 and Node2 set. Nodes without a partner keep a single payload and
// no placeholder is invented for the missing side.
//
// # Collapse and Expand
//
// Every node holds its child set either in Children (expanded) or in
// Collapsed, never both. [Tree.Toggle] moves the set between the two without
// losing order or identity.
package calltree
