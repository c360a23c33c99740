// Package sink serializes an engine export into files.
//
// Three formats are supported:
//
//   - SVG ([RenderSVG]): the diagram exactly as the engine laid it out,
//     with split-fill gradients for diff nodes and one arrowhead marker per
//     trial membership.
//   - JSON ([RenderJSON]): the export payload itself, for external viewers.
//   - DOT ([ToDOT], [RenderGraphviz]): the visible call tree as a Graphviz
//     digraph, optionally laid out again and rendered by Graphviz.
//
// All renderers are pure functions of the export and are safe for concurrent
// use.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/trialviz/pkg/render/reconcile"
)

// Supported output formats.
const (
	FormatSVG      = "svg"
	FormatJSON     = "json"
	FormatDOT      = "dot"
	FormatGraphviz = "graphviz"
)

// Formats lists every format accepted by [Render].
var Formats = []string{FormatSVG, FormatJSON, FormatDOT, FormatGraphviz}

// Render serializes x in the named format with default options.
func Render(ctx context.Context, x *reconcile.Export, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatSVG:
		return RenderSVG(x), nil
	case FormatJSON:
		return RenderJSON(x)
	case FormatDOT:
		return []byte(ToDOT(x, DOTOptions{})), nil
	case FormatGraphviz:
		return RenderGraphviz(ctx, ToDOT(x, DOTOptions{}))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	if format == FormatGraphviz {
		return ".gv.svg"
	}
	return "." + format
}
