package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const sampleJSON = `{
  "trial1": 1, "trial2": 2,
  "nodes": [
    {"index": 0, "name": "main", "trial_id": 1, "parent_index": -1, "child_index": 0, "duration": 3},
    {"index": 1, "name": "load", "trial_id": 1, "parent_index": 0, "child_index": 0, "duration": 1},
    {"index": 2, "name": "main", "trial_id": 2, "parent_index": -1, "child_index": 0, "duration": 4}
  ],
  "edges": [
    {"source": 0, "target": 1, "type": "call", "count": 2, "trial": 1},
    {"source": 1, "target": 0, "type": "return", "trial": 1},
    {"source": 0, "target": 0, "type": "initial", "count": 1, "trial": 0}
  ],
  "min_duration": {"1": 0, "2": 1},
  "max_duration": {"1": 3, "2": 6}
}`

func TestEdgeType(t *testing.T) {
	tests := []struct {
		typ        EdgeType
		name       string
		structural bool
	}{
		{EdgeCall, "call", true},
		{EdgeReturn, "return", false},
		{EdgeSequence, "sequence", true},
		{EdgeLoop, "loop", false},
		{EdgeInitial, "initial", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.typ.Structural(); got != tt.structural {
				t.Errorf("Structural() = %v, want %v", got, tt.structural)
			}
			parsed, err := ParseEdgeType(tt.name)
			if err != nil {
				t.Fatalf("ParseEdgeType(%q) error: %v", tt.name, err)
			}
			if parsed != tt.typ {
				t.Errorf("ParseEdgeType(%q) = %v, want %v", tt.name, parsed, tt.typ)
			}
		})
	}
}

func TestParseEdgeTypeUnknown(t *testing.T) {
	_, err := ParseEdgeType("jump")
	if !errors.Is(err, ErrUnknownEdgeType) {
		t.Errorf("ParseEdgeType(jump) error = %v, want ErrUnknownEdgeType", err)
	}
	if EdgeType(42).Valid() {
		t.Error("EdgeType(42).Valid() = true")
	}
	if _, err := json.Marshal(EdgeType(42)); err == nil {
		t.Error("expected marshal error for invalid edge type")
	}
}

func TestMembershipString(t *testing.T) {
	tests := map[Membership]string{
		Shared:        "shared",
		OnlyTrial1:    "trial1",
		OnlyTrial2:    "trial2",
		Membership(9): "Membership(9)",
	}
	for m, want := range tests {
		if got := m.String(); got != want {
			t.Errorf("Membership(%d).String() = %q, want %q", int(m), got, want)
		}
	}
}

func TestDatasetDurations(t *testing.T) {
	ds := &Dataset{
		Trial1:      1,
		Trial2:      2,
		MinDuration: map[int]float64{1: 0, 2: 1},
		MaxDuration: map[int]float64{1: 3, 2: 6},
	}
	if got := ds.TotalDuration(1); got != 3 {
		t.Errorf("TotalDuration(1) = %v, want 3", got)
	}
	if got := ds.TotalDuration(2); got != 5 {
		t.Errorf("TotalDuration(2) = %v, want 5", got)
	}
	if got := ds.MaxTotalDuration(); got != 5 {
		t.Errorf("MaxTotalDuration() = %v, want 5", got)
	}
	if !ds.IsDiff() {
		t.Error("IsDiff() = false, want true")
	}
	if got := ds.Trials(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Trials() = %v, want [1 2]", got)
	}

	single := &Dataset{Trial1: 3, Trial2: 3}
	if single.IsDiff() {
		t.Error("IsDiff() = true for equal trial ids")
	}
	if got := single.MaxTotalDuration(); got != 0 {
		t.Errorf("MaxTotalDuration() = %v, want 0 without durations", got)
	}
}

func TestIngest(t *testing.T) {
	ds := &Dataset{
		Trial1: 1,
		Trial2: 1,
		Nodes: []Node{
			{Index: 0, Name: "A", TrialID: 1, ParentIndex: RootIndex},
			{Index: 1, Name: "B", TrialID: 1, ParentIndex: 0},
			{Index: 1, Name: "B-dup", TrialID: 1, ParentIndex: 0},
		},
		Edges: []Edge{
			{Source: 0, Target: 1, Type: EdgeCall, Count: 1},
			{Source: 0, Target: 99, Type: EdgeCall, Count: 1},
			{Source: 42, Target: 1, Type: EdgeReturn, Count: 1},
		},
	}

	out, rep := Ingest(ds)

	if len(out.Nodes) != 2 || out.Nodes[1].Name != "B" {
		t.Fatalf("Nodes = %+v, want A and the first B", out.Nodes)
	}
	if len(out.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(out.Edges))
	}
	if rep.NodesDropped != 1 || rep.EdgesDropped != 2 {
		t.Errorf("dropped = %d nodes / %d edges, want 1 / 2", rep.NodesDropped, rep.EdgesDropped)
	}
	if !rep.Malformed() {
		t.Error("Malformed() = false")
	}

	wantErrs := []error{ErrDuplicateIndex, ErrUnknownTarget, ErrUnknownSource}
	for i, want := range wantErrs {
		if !errors.Is(rep.Problems[i].Err, want) {
			t.Errorf("Problems[%d].Err = %v, want %v", i, rep.Problems[i].Err, want)
		}
	}
	if !strings.Contains(rep.Problems[1].String(), "0->99") {
		t.Errorf("problem string = %q", rep.Problems[1].String())
	}

	if len(ds.Nodes) != 3 || len(ds.Edges) != 3 {
		t.Error("Ingest modified its input")
	}
}

func TestIngestDropsForeignTrial(t *testing.T) {
	ds := &Dataset{
		Trial1: 1,
		Trial2: 2,
		Nodes: []Node{
			{Index: 0, Name: "A", TrialID: 1, ParentIndex: RootIndex},
			{Index: 1, Name: "A", TrialID: 2, ParentIndex: RootIndex},
			{Index: 2, Name: "A", TrialID: 3, ParentIndex: RootIndex},
			{Index: 3, Name: "B", TrialID: 3, ParentIndex: 2},
		},
		Edges: []Edge{
			{Source: 2, Target: 3, Type: EdgeCall, Count: 1},
			{Source: 0, Target: 0, Type: EdgeInitial, Count: 1},
		},
	}

	out, rep := Ingest(ds)

	if len(out.Nodes) != 2 || len(out.Edges) != 1 {
		t.Fatalf("kept %d nodes / %d edges, want 2 / 1", len(out.Nodes), len(out.Edges))
	}
	if rep.NodesDropped != 2 || rep.EdgesDropped != 1 {
		t.Errorf("dropped = %d nodes / %d edges, want 2 / 1", rep.NodesDropped, rep.EdgesDropped)
	}
	for _, p := range rep.Problems[:2] {
		if !errors.Is(p.Err, ErrUnknownTrial) {
			t.Errorf("problem %s, want ErrUnknownTrial", p)
		}
	}
	if !errors.Is(rep.Problems[2].Err, ErrUnknownSource) {
		t.Errorf("edge problem = %v, want ErrUnknownSource", rep.Problems[2].Err)
	}
}

func TestReadDataset(t *testing.T) {
	ds, err := ReadDataset(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("ReadDataset() error: %v", err)
	}
	if len(ds.Nodes) != 3 || len(ds.Edges) != 3 {
		t.Fatalf("got %d nodes, %d edges", len(ds.Nodes), len(ds.Edges))
	}
	if ds.Edges[1].Type != EdgeReturn {
		t.Errorf("Edges[1].Type = %v, want return", ds.Edges[1].Type)
	}
	if ds.Edges[1].Count != 1 {
		t.Errorf("missing count decoded as %d, want 1", ds.Edges[1].Count)
	}
	if ds.Edges[0].Trial != OnlyTrial1 {
		t.Errorf("Edges[0].Trial = %v, want trial1", ds.Edges[0].Trial)
	}
	if got := ds.TotalDuration(2); got != 5 {
		t.Errorf("TotalDuration(2) = %v, want 5", got)
	}
}

func TestReadDatasetRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"trial1":`},
		{"missing nodes", `{"trial1": 1, "trial2": 1, "edges": []}`},
		{"unknown edge type", `{"trial1": 1, "trial2": 1, "nodes": [], "edges": [{"source": 0, "target": 0, "type": "jump"}]}`},
		{"bad membership", `{"trial1": 1, "trial2": 1, "nodes": [], "edges": [{"source": 0, "target": 0, "type": "call", "trial": 7}]}`},
		{"zero trial", `{"trial1": 0, "trial2": 1, "nodes": [], "edges": []}`},
		{"name not string", `{"trial1": 1, "trial2": 1, "nodes": [{"index": 0, "name": 5, "trial_id": 1, "parent_index": -1}], "edges": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadDataset(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteDatasetRoundTrip(t *testing.T) {
	ds, err := ReadDataset(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "trial.json")
	if err := WriteDatasetFile(ds, path); err != nil {
		t.Fatalf("WriteDatasetFile() error: %v", err)
	}
	got, err := ReadDatasetFile(path)
	if err != nil {
		t.Fatalf("ReadDatasetFile() error: %v", err)
	}
	if len(got.Nodes) != len(ds.Nodes) || got.Nodes[2].Name != "main" || got.MaxDuration[2] != 6 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	var buf bytes.Buffer
	if err := WriteDataset(ds, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"type": "return"`) {
		t.Errorf("edge types should encode as names:\n%s", buf.String())
	}
}

func TestReadDatasetFileMissing(t *testing.T) {
	if _, err := ReadDatasetFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
