package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

const testDataset = `{"trial1": 1, "trial2": 2,
  "nodes": [
    {"index": 0, "name": "main", "trial_id": 1, "parent_index": -1, "duration": 4},
    {"index": 1, "name": "load", "trial_id": 1, "parent_index": 0, "duration": 3},
    {"index": 2, "name": "main", "trial_id": 2, "parent_index": -1, "duration": 2},
    {"index": 3, "name": "load", "trial_id": 2, "parent_index": 2, "duration": 1},
    {"index": 4, "name": "save", "trial_id": 2, "parent_index": 2, "child_index": 1, "duration": 1}
  ],
  "edges": [
    {"source": 0, "target": 1, "type": "call"},
    {"source": 2, "target": 3, "type": "call"},
    {"source": 3, "target": 4, "type": "sequence", "trial": 2}
  ],
  "min_duration": {"1": 0, "2": 0},
  "max_duration": {"1": 4, "2": 2}}`

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "svg"},
		{"svg", "svg"},
		{"svg, json,,dot", "svg|json|dot"},
	}
	for _, tt := range tests {
		if got := strings.Join(parseFormats(tt.input), "|"); got != tt.want {
			t.Errorf("parseFormats(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := map[string]string{
		"runs/trace.json":       "trace",
		"-":                     "trialviz",
		"http://h/trials/1/2":   "trialviz",
		"/abs/dir/diff.v2.json": "diff.v2",
	}
	for in, want := range tests {
		if got := basePath(in); got != want {
			t.Errorf("basePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	artifacts := map[string][]byte{"svg": []byte("<svg/>"), "graphviz": []byte("<svg/>")}

	paths, err := writeArtifacts(artifacts, []string{"svg", "graphviz"}, filepath.Join(dir, "out", "run"), "x.json")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "out", "run.svg"), filepath.Join(dir, "out", "run.gv.svg")}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("path[%d] = %s, want %s", i, paths[i], p)
		}
		if _, err := os.Stat(p); err != nil {
			t.Error(err)
		}
	}

	single := filepath.Join(dir, "exact.svg")
	paths, _ = writeArtifacts(artifacts, []string{"svg"}, single, "x.json")
	if paths[0] != single {
		t.Errorf("single format should use the exact output path, got %s", paths[0])
	}
}

func TestRenderCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	var stdout bytes.Buffer
	out = &stdout
	defer func() { out = os.Stdout }()

	dir := t.TempDir()
	src := writeFile(t, "diff.json", testDataset)
	base := filepath.Join(dir, "diff")

	c := New(&bytes.Buffer{}, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs([]string{"render", src, "-f", "svg,json", "-o", base, "--legend", "--no-cache"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "linearGradient") {
		t.Error("diff render should contain split-fill gradients")
	}
	if _, err := os.Stat(base + ".json"); err != nil {
		t.Error(err)
	}
	if !strings.Contains(stdout.String(), "Rendered") {
		t.Errorf("stdout = %q", stdout.String())
	}
}
