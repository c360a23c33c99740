package sink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/trialviz/pkg/render/reconcile"
	"github.com/matzehuels/trialviz/pkg/render/route"
)

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// Detailed adds the tooltip text (durations per trial) to node labels.
	Detailed bool
	// Structural keeps only call and sequence edges.
	Structural bool
}

// ToDOT converts the visible call tree of an export to Graphviz DOT.
//
// Diff nodes carrying both trials are drawn striped with trial 2 on the left,
// mirroring the SVG split fill. Reclassified edges are dashed.
func ToDOT(x *reconcile.Export, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range x.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Key, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range x.Edges {
		if opts.Structural && !e.RoutedAs.Structural() {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(edgeAttrs(e), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n reconcile.NodeState, detailed bool) []string {
	label := n.Label
	if detailed && n.Tooltip != "" {
		label = n.Tooltip
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("color=%q", n.Border),
	}
	switch {
	case n.Fill.Split:
		attrs = append(attrs, `style="rounded,striped"`, fmt.Sprintf("fillcolor=%q", n.Fill.Left+";0.5:"+n.Fill.Right))
	default:
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", n.Fill.Color))
	}
	if n.Collapsed {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

func edgeAttrs(e reconcile.EdgeState) []string {
	attrs := []string{fmt.Sprintf("color=%q", e.Stroke)}
	if route.ShowLabel(e.Type) {
		attrs = append(attrs, fmt.Sprintf("label=%q", strconv.Itoa(e.Count)))
	}
	if e.Reclassified || !e.RoutedAs.Structural() {
		attrs = append(attrs, "style=dashed", "constraint=false")
	}
	return attrs
}

// RenderGraphviz lays out a DOT graph with Graphviz and returns it as SVG.
func RenderGraphviz(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a
// pixel-sized one starting at the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
