package sink

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/matzehuels/trialviz/pkg/render/palette"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	margin    float64
	legend    bool
	title     string
	transform bool
}

// WithMargin sets the padding around the diagram. The default is 40.
func WithMargin(m float64) SVGOption { return func(r *svgRenderer) { r.margin = m } }

// WithLegend draws a duration color scale below the diagram.
func WithLegend() SVGOption { return func(r *svgRenderer) { r.legend = true } }

// WithTitle adds a title line above the diagram.
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

// WithViewportTransform applies the export's viewport transform to the
// diagram group, reproducing the host's zoom and pan.
func WithViewportTransform() SVGOption { return func(r *svgRenderer) { r.transform = true } }

const legendHeight = 30.0

// RenderSVG draws the export as a standalone SVG document.
func RenderSVG(x *reconcile.Export, opts ...SVGOption) []byte {
	r := svgRenderer{margin: 40}
	for _, opt := range opts {
		opt(&r)
	}

	b := x.Bounds.Pad(r.margin + x.Config.NodeRadius)
	width, height := b.Width(), b.Height()
	top := b.MinY
	if r.title != "" {
		top -= x.Config.FontSize * 2
		height += x.Config.FontSize * 2
	}
	if r.legend {
		height += legendHeight
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		b.MinX, top, width, height, width, height)

	renderDefs(&buf, x)
	if r.title != "" {
		fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" font-size="%.1f" font-weight="bold">%s</text>`+"\n",
			b.MinX+r.margin/2, top+x.Config.FontSize*1.5, x.Config.FontSize, html.EscapeString(r.title))
	}

	if r.transform {
		fmt.Fprintf(&buf, `  <g transform="translate(%.2f,%.2f) scale(%.3f)">`+"\n", x.Transform.X, x.Transform.Y, x.Transform.K)
	} else {
		buf.WriteString("  <g>\n")
	}
	for _, e := range x.Edges {
		renderEdge(&buf, e)
	}
	for _, n := range x.Nodes {
		renderNode(&buf, n)
	}
	for _, l := range x.Labels {
		renderLabel(&buf, l)
	}
	buf.WriteString("  </g>\n")

	if r.legend {
		renderLegend(&buf, b.MinX+r.margin/2, b.MaxY+legendHeight/3, width-r.margin)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderDefs(buf *bytes.Buffer, x *reconcile.Export) {
	buf.WriteString("  <defs>\n")
	for _, m := range []trace.Membership{trace.Shared, trace.OnlyTrial1, trace.OnlyTrial2} {
		fmt.Fprintf(buf, `    <marker id="marker-%s" viewBox="0 -5 10 10" refX="8" refY="0" markerWidth="6" markerHeight="6" orient="auto">`+
			`<path d="M0,-5L10,0L0,5" fill="%s"/></marker>`+"\n", m, palette.MembershipColor(m))
	}
	for _, n := range x.Nodes {
		if !n.Fill.Split {
			continue
		}
		fmt.Fprintf(buf, `    <linearGradient id="%s" x1="0%%" x2="100%%" y1="0%%" y2="0%%">`+
			`<stop offset="50%%" stop-color="%s"/><stop offset="50%%" stop-color="%s"/></linearGradient>`+"\n",
			n.Fill.GradientID, n.Fill.Left, n.Fill.Right)
	}
	buf.WriteString("  </defs>\n")
}

func renderEdge(buf *bytes.Buffer, e reconcile.EdgeState) {
	dash := ""
	if e.Reclassified {
		dash = ` stroke-dasharray="4,3"`
	}
	fmt.Fprintf(buf, `    <path id="edge-%s" class="edge edge-%s" d="%s" fill="none" stroke="%s" stroke-width="1.5"%s marker-end="url(#%s)"/>`+"\n",
		e.ID, e.Type, e.D, e.Stroke, dash, e.Marker)
}

func renderNode(buf *bytes.Buffer, n reconcile.NodeState) {
	fill := n.Fill.Color
	if n.Fill.Split {
		fill = "url(#" + n.Fill.GradientID + ")"
	}
	size := n.Radius * 2
	fmt.Fprintf(buf, `    <g class="node" id="node-%s">`, n.Key)
	if n.Tooltip != "" {
		fmt.Fprintf(buf, `<title>%s</title>`, html.EscapeString(n.Tooltip))
	}
	fmt.Fprintf(buf, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="%.1f" fill="%s" stroke="%s" stroke-width="2"/>`,
		n.X-n.Radius, n.Y-n.Radius, size, size, min(n.Corner, n.Radius), fill, n.Border)
	fmt.Fprintf(buf, `<text x="%.2f" y="%.2f" font-size="%.1f" text-anchor="start">%s</text></g>`+"\n",
		n.X+n.Radius+3, n.Y+n.FontSize/3, n.FontSize, html.EscapeString(n.Label))
}

func renderLabel(buf *bytes.Buffer, l reconcile.LabelState) {
	fmt.Fprintf(buf, `    <text class="edge-label" id="%s" x="%.2f" y="%.2f" font-size="%.1f" text-anchor="middle">%s</text>`+"\n",
		l.ID, l.X, l.Y, l.FontSize, html.EscapeString(l.Text))
}

func renderLegend(buf *bytes.Buffer, x, y, width float64) {
	colors := palette.Legend(10)
	step := width / float64(len(colors))
	var parts []string
	for i, c := range colors {
		parts = append(parts, fmt.Sprintf(`<rect x="%.2f" y="%.2f" width="%.2f" height="8" fill="%s"/>`, x+float64(i)*step, y, step, c))
	}
	fmt.Fprintf(buf, `  <g class="legend">%s</g>`+"\n", strings.Join(parts, ""))
}
