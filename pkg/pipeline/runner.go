package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trialviz/pkg/cache"
	"github.com/matzehuels/trialviz/pkg/httputil"
	"github.com/matzehuels/trialviz/pkg/observability"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
	"github.com/matzehuels/trialviz/pkg/render/sink"
	"github.com/matzehuels/trialviz/pkg/source"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// Runner executes pipelines against a shared cache.
//
// It keeps no per-run state, so one Runner may serve concurrent runs with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Client *httputil.Client
	Logger *log.Logger
}

// NewRunner returns a runner. A nil cache disables caching, a nil keyer uses
// [cache.DefaultKeyer] and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	c = cache.Observe(c)
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Client: httputil.NewClient(httputil.WithCache(c, cache.HTTPTTL), httputil.WithKeyer(keyer)),
		Logger: logger,
	}
}

// Execute loads the dataset, runs the initial pass and exports every format.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)
	result := &Result{}

	loadStart := time.Now()
	ds, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Dataset = ds
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = len(ds.Nodes)
	result.Stats.EdgeCount = len(ds.Edges)
	if data, err := trace.MarshalDataset(ds); err == nil {
		result.Stats.DatasetHash = cache.Hash(data)
	}
	r.Logger.Info("loaded dataset",
		"source", opts.Source,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.LoadTime)

	buildStart := time.Now()
	eng, err := r.Build(ctx, ds, opts)
	if err != nil {
		return nil, err
	}
	result.Engine = eng
	result.Report = eng.Report()
	result.Export = eng.Export()
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.Visible = len(result.Export.Nodes)
	r.Logger.Info("built call tree",
		"visible", result.Stats.Visible,
		"dropped", len(result.Report.Problems),
		"duration", result.Stats.BuildTime)

	exportStart := time.Now()
	artifacts, hits, err := r.ExportWithCacheInfo(ctx, result.Export, result.Stats.DatasetHash, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.ExportHits = hits
	result.Stats.ExportTime = time.Since(exportStart)
	r.Logger.Info("exported",
		"formats", opts.Formats,
		"cached", len(hits),
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Load fetches the dataset named by opts.Source.
func (r *Runner) Load(ctx context.Context, opts Options) (*trace.Dataset, error) {
	src, err := source.Open(opts.Source, source.Options{
		Trial1: opts.Trial1,
		Trial2: opts.Trial2,
		Client: r.Client,
	})
	if err != nil {
		return nil, err
	}
	return src.Fetch(ctx)
}

// Build creates an engine for ds and runs the load pass. It returns
// [ErrNoData] when nothing can be drawn; malformed records are logged by the
// engine and counted through the observability hooks. extra options are
// applied after the configuration and logger of opts.
func (r *Runner) Build(ctx context.Context, ds *trace.Dataset, opts Options, extra ...reconcile.Option) (*reconcile.Engine, error) {
	r.applyLogger(&opts)
	eopts := append([]reconcile.Option{reconcile.WithConfig(opts.Config), reconcile.WithLogger(opts.Logger)}, extra...)
	eng := reconcile.New(nil, eopts...)
	pass := eng.Load(ds)

	rep := eng.Report()
	hooks := observability.Pipeline()
	if rep.NodesDropped > 0 {
		hooks.OnMalformed(ctx, "node", rep.NodesDropped)
	}
	if rep.EdgesDropped > 0 {
		hooks.OnMalformed(ctx, "edge", rep.EdgesDropped)
	}
	if pass.Empty {
		return nil, ErrNoData
	}
	return eng, nil
}

// ExportWithCacheInfo renders every format of opts, serving from the cache
// where possible. It returns the formats that were cache hits.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, x *reconcile.Export, datasetHash string, opts Options) (map[string][]byte, []string, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, opts.Formats)
	start := time.Now()

	artifacts := make(map[string][]byte, len(opts.Formats))
	var hits []string
	var err error
	for _, format := range opts.Formats {
		key := r.Keyer.ExportKey(datasetHash, opts.ExportKeyOpts(format))
		cacheable := datasetHash != "" && !opts.Refresh
		if cacheable {
			if data, ok, gerr := r.Cache.Get(ctx, key); gerr == nil && ok {
				artifacts[format] = data
				hits = append(hits, format)
				continue
			}
		}

		var data []byte
		data, err = Render(ctx, x, format, opts)
		if err != nil {
			err = fmt.Errorf("render %s: %w", format, err)
			break
		}
		artifacts[format] = data
		if cacheable {
			_ = r.Cache.Set(ctx, key, data, cache.ExportTTL)
		}
	}

	hooks.OnExportComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	return artifacts, hits, nil
}

// Render serializes x in one format with the export options of opts.
func Render(ctx context.Context, x *reconcile.Export, format string, opts Options) ([]byte, error) {
	switch format {
	case sink.FormatSVG:
		return sink.RenderSVG(x, opts.sinkOptions()...), nil
	case sink.FormatDOT:
		return []byte(sink.ToDOT(x, sink.DOTOptions{Detailed: opts.Detailed})), nil
	case sink.FormatGraphviz:
		return sink.RenderGraphviz(ctx, sink.ToDOT(x, sink.DOTOptions{Detailed: opts.Detailed}))
	default:
		return sink.Render(ctx, x, format)
	}
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
