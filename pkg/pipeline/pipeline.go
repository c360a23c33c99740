// Package pipeline runs the load → build → reconcile → export chain shared by
// the CLI commands and the viewer server.
//
// # Stages
//
//  1. Load: fetch a dataset from a file, stdin or HTTP endpoint ([source])
//  2. Build: ingest it into a reconciliation engine, which builds the call
//     tree, lays it out and runs the initial pass
//  3. Export: serialize the engine's state in every requested format
//     ([sink]), with per-format caching
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "trace.json",
//	    Formats: []string{"svg", "json"},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trialviz/pkg/cache"
	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
	"github.com/matzehuels/trialviz/pkg/render/sink"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// DefaultFormat is the export format used when none is requested.
const DefaultFormat = sink.FormatSVG

// ErrNoData is returned when a dataset yields no nodes to draw.
var ErrNoData = errs.New(errs.ErrCodeEmptyDataset, "no data to display")

// Options configures one pipeline run.
type Options struct {
	// Load options
	Source string `json:"source"`
	Trial1 int    `json:"trial1,omitempty"`
	Trial2 int    `json:"trial2,omitempty"`

	// Engine options
	Config reconcile.Config `json:"config"`

	// Export options
	Formats  []string `json:"formats,omitempty"`
	Legend   bool     `json:"legend,omitempty"`
	Title    string   `json:"title,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // DOT labels carry durations
	Refresh  bool     `json:"refresh,omitempty"`  // bypass the export cache

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// Result holds the outputs of a pipeline run.
type Result struct {
	Dataset   *trace.Dataset
	Report    trace.Report
	Engine    *reconcile.Engine
	Export    *reconcile.Export
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timing and size information of a run.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	Visible     int
	LoadTime    time.Duration
	BuildTime   time.Duration
	ExportTime  time.Duration
	DatasetHash string
}

// CacheInfo records which exports came from the cache.
type CacheInfo struct {
	ExportHits []string
}

// ValidateFormat checks that format is one of [sink.Formats].
func ValidateFormat(format string) error {
	if !slices.Contains(sink.Formats, format) {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format %q (must be one of: svg, json, dot, graphviz)", format)
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == "" {
		return errs.New(errs.ErrCodeInvalidInput, "source is required")
	}
	if o.Trial1 != 0 || o.Trial2 != 0 {
		if o.Trial2 == 0 {
			o.Trial2 = o.Trial1
		}
		if err := errs.ValidateTrialPair(o.Trial1, o.Trial2); err != nil {
			return err
		}
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Config.CollapseDepth < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "collapse depth must not be negative")
	}
	o.Config = o.Config.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ExportKeyOpts returns the cache key options for one export format.
func (o *Options) ExportKeyOpts(format string) cache.ExportKeyOpts {
	return cache.ExportKeyOpts{
		Format:        format,
		CollapseDepth: o.Config.CollapseDepth,
		SpacingX:      o.Config.NodeSpacingX,
		SpacingY:      o.Config.NodeSpacingY,
		Tooltip:       o.Config.TooltipEnabled,
		Legend:        o.Legend,
	}
}

// IsNoData reports whether err is [ErrNoData].
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData) || errs.Is(err, errs.ErrCodeEmptyDataset)
}

func (o *Options) sinkOptions() []sink.SVGOption {
	var opts []sink.SVGOption
	if o.Legend {
		opts = append(opts, sink.WithLegend())
	}
	if o.Title != "" {
		opts = append(opts, sink.WithTitle(o.Title))
	}
	return opts
}

func (o *Options) String() string {
	return fmt.Sprintf("%s trials=%d/%d formats=%v", o.Source, o.Trial1, o.Trial2, o.Formats)
}
