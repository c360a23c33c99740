// Package reconcile keeps a rendered call tree in step with user
// interaction.
//
// # Overview
//
// An [Engine] owns the call tree of one loaded dataset. Every interaction
// (loading data, clicking a node, changing a spacing or font size) runs one
// reconciliation pass to completion: the visible tree is laid out again,
// every visible node, edge and count label is recomputed into a new
// immutable [Snapshot], and the new snapshot is compared with the previous
// one by key. The resulting [Pass] lists which elements enter, update and
// exit, each with the state to animate from and to, and is handed to the
// host's [Surface].
//
// # Animation Anchors
//
// Entering elements start at the previous position of the pass's anchor,
// the node whose click triggered the pass, and exiting elements shrink
// toward the anchor's new position. Loads and configuration changes anchor
// on the root.
//
// # Identity
//
// Every key receives a slot number when it first enters. The slot is carried
// unchanged for as long as the key stays visible, so hosts can bind their
// drawing objects to it.
//
// # Concurrency
//
// An Engine is not safe for concurrent use. Passes never interleave: each
// method returns only after the pass it triggered has been applied.
package reconcile
