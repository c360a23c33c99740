// Package palette derives node and edge colors from activation durations and
// trial membership.
//
// A node's shade is 1 - duration/maxTotalDuration, clamped to [0, 1], used
// for the green and blue channels with red fixed at full intensity: long
// activations render deep red, short ones near white.
package palette

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/trialviz/pkg/calltree"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// Border colors of diff nodes and edge markers.
const (
	SharedColor = "#000000"
	Trial1Color = "#ff0000"
	Trial2Color = "#00aa00"
)

// Corner radii signaling the collapsed state of a node.
const (
	CornerExpanded  = 10.0
	CornerCollapsed = 2.0
)

// Proportion returns 1 - duration/maxTotal clamped to [0, 1]. A non-positive
// or undefined maxTotal yields 1.
func Proportion(duration, maxTotal float64) float64 {
	if maxTotal <= 0 || math.IsNaN(maxTotal) || math.IsNaN(duration) {
		return 1
	}
	p := 1 - duration/maxTotal
	return math.Min(1, math.Max(0, p))
}

// DurationColor maps a duration onto the red gradient.
func DurationColor(duration, maxTotal float64) colorful.Color {
	p := Proportion(duration, maxTotal)
	return colorful.Color{R: 1, G: p, B: p}
}

// Fill describes how a node is painted. A split fill paints the left half
// with Left and the right half with Right through the gradient GradientID.
type Fill struct {
	Color      string `json:"color"`
	Split      bool   `json:"split,omitempty"`
	Left       string `json:"left,omitempty"`
	Right      string `json:"right,omitempty"`
	GradientID string `json:"gradient_id,omitempty"`
}

// Paint computes the fill of a node.
//
// Nodes carrying both trials get a split fill with trial 2 on the left and
// trial 1 on the right. Other nodes are filled with their own payload's
// color. A synthetic root is white.
func Paint(n *calltree.Node, maxTotal float64) Fill {
	if n.Both() {
		return Fill{
			Color:      DurationColor(n.Node1.Duration, maxTotal).BlendRgb(DurationColor(n.Node2.Duration, maxTotal), 0.5).Hex(),
			Split:      true,
			Left:       DurationColor(n.Node2.Duration, maxTotal).Hex(),
			Right:      DurationColor(n.Node1.Duration, maxTotal).Hex(),
			GradientID: "grad-" + string(n.Key),
		}
	}
	p := n.Primary()
	if p == nil {
		return Fill{Color: DurationColor(0, maxTotal).Hex()}
	}
	return Fill{Color: DurationColor(p.Duration, maxTotal).Hex()}
}

// MembershipColor returns the status color of a trial membership.
func MembershipColor(m trace.Membership) string {
	switch m {
	case trace.OnlyTrial1:
		return Trial1Color
	case trace.OnlyTrial2:
		return Trial2Color
	default:
		return SharedColor
	}
}

// Border returns the border color of a node. Only single-payload nodes of a
// diff tree get a status color; everything else uses the shared color.
func Border(n *calltree.Node, diff bool) string {
	if !diff {
		return SharedColor
	}
	return MembershipColor(n.Membership())
}

// Corner returns the corner radius for a node's collapsed state.
func Corner(n *calltree.Node) float64 {
	if n.IsCollapsed() {
		return CornerCollapsed
	}
	return CornerExpanded
}

// Legend returns steps colors sampled evenly from the shortest to the longest
// duration, for drawing a scale next to the diagram.
func Legend(steps int) []string {
	if steps < 2 {
		steps = 2
	}
	short := DurationColor(0, 1)
	long := DurationColor(1, 1)
	out := make([]string, steps)
	for i := range out {
		out[i] = short.BlendRgb(long, float64(i)/float64(steps-1)).Clamped().Hex()
	}
	return out
}
