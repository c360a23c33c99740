package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/httputil"
)

const dataset = `{"trial1": 1, "trial2": 1,
  "nodes": [
    {"index": 0, "name": "main", "trial_id": 1, "parent_index": -1, "duration": 2},
    {"index": 1, "name": "run", "trial_id": 1, "parent_index": 0, "duration": 1}
  ],
  "edges": [{"source": 0, "target": 1, "type": "call", "count": 1}]}`

func TestOpenKinds(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"-", "stdin"},
		{"run.json", "run.json"},
		{"http://host/trials/{trial1}/{trial2}", "http://host/trials/3/5"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			src, err := Open(tt.location, Options{Trial1: 3, Trial2: 5, Stdin: strings.NewReader("")})
			if err != nil {
				t.Fatal(err)
			}
			if src.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.want)
			}
		})
	}

	if _, err := Open("bad\x00path", Options{}); !errs.Is(err, errs.ErrCodeInvalidPath) {
		t.Errorf("Open(null byte) = %v", err)
	}
}

func TestExpandURL(t *testing.T) {
	if got := ExpandURL("/t/{trial1}/{trial2}", 4, 0); got != "/t/4/4" {
		t.Errorf("ExpandURL = %s", got)
	}
}

func TestFileFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(dataset), 0o644); err != nil {
		t.Fatal(err)
	}
	src, _ := Open(path, Options{})
	ds, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Nodes) != 2 || ds.IsDiff() {
		t.Errorf("dataset = %+v", ds)
	}

	missing, _ := Open(filepath.Join(t.TempDir(), "nope.json"), Options{})
	if _, err := missing.Fetch(context.Background()); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("missing file: %v", err)
	}
}

func TestReaderFetchInvalid(t *testing.T) {
	src, _ := Open("-", Options{Stdin: strings.NewReader(`{"trial1": 0}`)})
	if _, err := src.Fetch(context.Background()); !errs.Is(err, errs.ErrCodeInvalidDataset) {
		t.Errorf("invalid dataset: %v", err)
	}
}

func TestHTTPFetchOverridesTrials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trials/1/2" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(dataset))
	}))
	defer srv.Close()

	src, err := Open(srv.URL+"/trials/{trial1}/{trial2}", Options{
		Trial1: 1, Trial2: 2,
		Client: httputil.NewClient(httputil.WithRetry(1, time.Millisecond)),
	})
	if err != nil {
		t.Fatal(err)
	}
	ds, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ds.Trial1 != 1 || ds.Trial2 != 2 {
		t.Errorf("trials = %d/%d, want 1/2", ds.Trial1, ds.Trial2)
	}
}
