// Package source fetches trial datasets for the engine.
//
// A [Source] is the data-fetch collaborator: it hands a decoded, schema
// validated [trace.Dataset] to the caller and nothing else. Three sources
// exist:
//
//   - [File]: a dataset JSON file on disk
//   - [Reader]: any io.Reader, used for stdin ("-")
//   - [HTTP]: an endpoint serving the dataset JSON, fetched with retries and
//     an optional response cache (see [httputil.Client])
//
// [Open] picks one from a location string:
//
//	src, err := source.Open("http://localhost:5000/trials/{trial1}/{trial2}", source.Options{Trial1: 1, Trial2: 2})
//	ds, err := src.Fetch(ctx)
package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/httputil"
	"github.com/matzehuels/trialviz/pkg/observability"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// Source produces a dataset.
type Source interface {
	// Name identifies the source in logs and cache keys.
	Name() string
	// Fetch reads and validates the dataset.
	Fetch(ctx context.Context) (*trace.Dataset, error)
}

// Options configures [Open].
type Options struct {
	// Trial1 and Trial2 fill the {trial1} and {trial2} placeholders of an
	// HTTP location. When both are set they also override the trial ids
	// recorded in the dataset.
	Trial1, Trial2 int

	// Client performs HTTP fetches. Nil uses httputil.NewClient().
	Client *httputil.Client

	// Stdin is read for the location "-". Nil uses os.Stdin.
	Stdin io.Reader
}

// Open returns the source for location: "-" for stdin, an http(s) URL, or a
// file path.
func Open(location string, opts Options) (Source, error) {
	var src Source
	switch {
	case location == "-":
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		src = &Reader{Label: "stdin", R: in}
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		client := opts.Client
		if client == nil {
			client = httputil.NewClient()
		}
		src = &HTTP{URL: ExpandURL(location, opts.Trial1, opts.Trial2), Client: client}
	default:
		if err := errs.ValidatePath(location); err != nil {
			return nil, err
		}
		src = &File{Path: location}
	}
	if opts.Trial1 > 0 && opts.Trial2 > 0 {
		src = withTrials{src, opts.Trial1, opts.Trial2}
	}
	return src, nil
}

// ExpandURL substitutes the {trial1} and {trial2} placeholders. A zero
// trial2 repeats trial1, selecting single-trial mode.
func ExpandURL(tmpl string, trial1, trial2 int) string {
	if trial2 == 0 {
		trial2 = trial1
	}
	return strings.NewReplacer(
		"{trial1}", strconv.Itoa(trial1),
		"{trial2}", strconv.Itoa(trial2),
	).Replace(tmpl)
}

// File reads a dataset file.
type File struct {
	Path string
}

func (f *File) Name() string { return f.Path }

func (f *File) Fetch(ctx context.Context) (*trace.Dataset, error) {
	return observe(ctx, f.Name(), func() (*trace.Dataset, error) {
		ds, err := trace.ReadDatasetFile(f.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "dataset %s", f.Path)
		}
		return ds, classify(err, f.Path)
	})
}

// Reader reads a dataset from R once.
type Reader struct {
	Label string
	R     io.Reader
}

func (r *Reader) Name() string { return r.Label }

func (r *Reader) Fetch(ctx context.Context) (*trace.Dataset, error) {
	return observe(ctx, r.Name(), func() (*trace.Dataset, error) {
		ds, err := trace.ReadDataset(r.R)
		return ds, classify(err, r.Label)
	})
}

// HTTP fetches a dataset from URL.
type HTTP struct {
	URL    string
	Client *httputil.Client
}

func (h *HTTP) Name() string { return h.URL }

func (h *HTTP) Fetch(ctx context.Context) (*trace.Dataset, error) {
	return observe(ctx, h.Name(), func() (*trace.Dataset, error) {
		body, err := h.Client.Get(ctx, h.URL)
		if err != nil {
			return nil, err
		}
		ds, err := trace.ReadDataset(bytes.NewReader(body))
		return ds, classify(err, h.URL)
	})
}

type withTrials struct {
	Source
	trial1, trial2 int
}

func (w withTrials) Fetch(ctx context.Context) (*trace.Dataset, error) {
	ds, err := w.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	ds.Trial1, ds.Trial2 = w.trial1, w.trial2
	return ds, nil
}

func classify(err error, name string) error {
	if err == nil {
		return nil
	}
	if errs.GetCode(err) != "" {
		return err
	}
	return errs.Wrap(errs.ErrCodeInvalidDataset, err, "read dataset %s", name)
}

func observe(ctx context.Context, name string, fetch func() (*trace.Dataset, error)) (*trace.Dataset, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, name)
	start := time.Now()
	ds, err := fetch()
	n := 0
	if ds != nil {
		n = len(ds.Nodes)
	}
	hooks.OnLoadComplete(ctx, name, n, time.Since(start), err)
	return ds, err
}
