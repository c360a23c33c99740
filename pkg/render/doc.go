// Package render groups the stages that turn a call tree into drawable
// geometry.
//
//   - [layout] assigns tidy-tree coordinates to the visible nodes
//   - [route] computes edge paths by edge type
//   - [palette] maps durations and memberships to colors
//   - [reconcile] diffs successive render states into enter, update and
//     exit sets, and owns the interaction surface
//   - [sink] serializes a reconciled state to SVG, JSON, DOT or
//     Graphviz-rendered SVG
//
// [layout]: github.com/matzehuels/trialviz/pkg/render/layout
// [route]: github.com/matzehuels/trialviz/pkg/render/route
// [palette]: github.com/matzehuels/trialviz/pkg/render/palette
// [reconcile]: github.com/matzehuels/trialviz/pkg/render/reconcile
// [sink]: github.com/matzehuels/trialviz/pkg/render/sink
package render
