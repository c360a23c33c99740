package sink

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/trialviz/pkg/render/reconcile"
	"github.com/matzehuels/trialviz/pkg/trace"
)

func export(t *testing.T, diff bool) *reconcile.Export {
	t.Helper()
	ds := &trace.Dataset{
		Trial1: 1, Trial2: 1,
		Nodes: []trace.Node{
			{Index: 0, Name: "main", TrialID: 1, ParentIndex: trace.RootIndex, Duration: 4},
			{Index: 1, Name: "load<x>", TrialID: 1, ParentIndex: 0, Duration: 2},
		},
		Edges: []trace.Edge{
			{Source: 0, Target: 0, Type: trace.EdgeInitial, Count: 1},
			{Source: 0, Target: 1, Type: trace.EdgeCall, Count: 3},
			{Source: 1, Target: 1, Type: trace.EdgeLoop, Count: 2},
		},
		MinDuration: map[int]float64{1: 0, 2: 0},
		MaxDuration: map[int]float64{1: 4, 2: 4},
	}
	if diff {
		ds.Trial2 = 2
		ds.Nodes = append(ds.Nodes,
			trace.Node{Index: 2, Name: "main", TrialID: 2, ParentIndex: trace.RootIndex, Duration: 1},
			trace.Node{Index: 3, Name: "load<x>", TrialID: 2, ParentIndex: 2, Duration: 1},
		)
	}
	e := reconcile.New(nil)
	e.Load(ds)
	return e.Export()
}

func TestRenderSVG(t *testing.T) {
	svg := string(RenderSVG(export(t, false), WithTitle("trial 1"), WithLegend()))

	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`id="marker-shared"`,
		`id="marker-trial1"`,
		`id="node-0"`,
		`id="edge-0-1"`,
		`load&lt;x&gt;`,
		`class="legend"`,
		`>trial 1</text>`,
		` A`, // the loop edge is an arc
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if strings.Contains(svg, "NaN") {
		t.Error("SVG contains NaN coordinates")
	}
	if strings.Contains(svg, `id="label-0-0"`) {
		t.Error("initial edge rendered with a count label")
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("SVG not terminated")
	}
}

func TestRenderSVGSplitFill(t *testing.T) {
	svg := string(RenderSVG(export(t, true)))
	if !strings.Contains(svg, `<linearGradient id="grad-1"`) {
		t.Error("missing gradient for combined node")
	}
	if !strings.Contains(svg, `fill="url(#grad-1)"`) {
		t.Error("combined node not filled with its gradient")
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := RenderJSON(export(t, false))
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Kind  string `json:"kind"`
		Nodes []struct {
			Key string `json:"key"`
		} `json:"nodes"`
		Edges []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
			D    string `json:"d"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Kind != "trialviz/export" || len(out.Nodes) != 2 || len(out.Edges) != 3 {
		t.Errorf("decoded = %+v", out)
	}
	for _, e := range out.Edges {
		if e.ID == "0-1" && (e.Type != "call" || !strings.HasPrefix(e.D, "M")) {
			t.Errorf("call edge = %+v", e)
		}
	}
}

func TestToDOT(t *testing.T) {
	tests := []struct {
		name    string
		opts    DOTOptions
		diff    bool
		want    []string
		notWant []string
	}{
		{
			name: "default",
			want: []string{"digraph G {", `"0" -> "1"`, `label="3"`, `"1" -> "1"`},
		},
		{
			name:    "structural only",
			opts:    DOTOptions{Structural: true},
			want:    []string{`"0" -> "1"`},
			notWant: []string{`"1" -> "1"`, `"0" -> "0"`},
		},
		{
			name: "diff striped",
			diff: true,
			want: []string{`style="rounded,striped"`, `;0.5:`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(export(t, tt.diff), tt.opts)
			for _, w := range tt.want {
				if !strings.Contains(dot, w) {
					t.Errorf("DOT missing %q:\n%s", w, dot)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(dot, w) {
					t.Errorf("DOT should not contain %q", w)
				}
			}
		})
	}
}

func TestRenderUnsupported(t *testing.T) {
	if _, err := Render(context.Background(), export(t, false), "bmp"); err == nil {
		t.Error("expected error for unsupported format")
	}
	data, err := Render(context.Background(), export(t, false), "DOT")
	if err != nil || !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("Render(DOT) = %q, %v", data, err)
	}
	if Extension(FormatGraphviz) != ".gv.svg" || Extension(FormatSVG) != ".svg" {
		t.Error("unexpected extensions")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("no viewBox should be left unchanged, got %s", got)
	}
}
