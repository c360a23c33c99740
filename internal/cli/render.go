package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/trialviz/pkg/pipeline"
	"github.com/matzehuels/trialviz/pkg/render/sink"
)

type renderOpts struct {
	output   string
	formats  string
	trial1   int
	trial2   int
	legend   bool
	title    string
	detailed bool
	noCache  bool
	refresh  bool
	viewer   viewerFlags
}

func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <dataset|url|->",
		Short: "Export the call tree of a trace",
		Long: `Render loads a dataset (a JSON file, an http(s) URL, or - for stdin),
builds the call tree and writes it in one or more formats.

HTTP locations may contain {trial1} and {trial2} placeholders, filled from
--trial1 and --trial2. Two different trials render a structural diff.`,
		Example: `  trialviz render trace.json
  trialviz render trace.json -f svg,json -o out/run
  trialviz render 'http://localhost:5000/trials/{trial1}/{trial2}' --trial1 3 --trial2 4 --legend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.viewer.resolve(cmd)
			if err != nil {
				return err
			}
			formats := parseFormats(opts.formats)
			if !cmd.Flags().Changed("format") && len(cfg.Output.Formats) > 0 {
				formats = cfg.Output.Formats
			}
			popts := pipeline.Options{
				Source:   args[0],
				Trial1:   opts.trial1,
				Trial2:   opts.trial2,
				Config:   cfg.Viewer,
				Formats:  formats,
				Legend:   opts.legend || cfg.Output.Legend,
				Title:    opts.title,
				Detailed: opts.detailed,
				Refresh:  opts.refresh,
			}
			output := opts.output
			if output == "" && cfg.Output.Dir != "" {
				output = filepath.Join(cfg.Output.Dir, basePath(args[0]))
			}
			return c.runRender(cmd.Context(), popts, output, opts.noCache)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.output, "output", "o", "", "output file (one format) or base path (several)")
	fs.StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), json, dot, graphviz (comma-separated)")
	fs.IntVar(&opts.trial1, "trial1", 0, "first trial id (overrides the dataset)")
	fs.IntVar(&opts.trial2, "trial2", 0, "second trial id; differs from --trial1 for a diff")
	fs.BoolVar(&opts.legend, "legend", false, "draw the duration color scale (svg)")
	fs.StringVar(&opts.title, "title", "", "title line above the diagram (svg)")
	fs.BoolVar(&opts.detailed, "detailed", false, "put durations in node labels (dot, graphviz)")
	fs.BoolVar(&opts.noCache, "no-cache", false, "disable the export and HTTP cache")
	fs.BoolVar(&opts.refresh, "refresh", false, "re-render even when a cached export exists")
	opts.viewer.register(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	runner, err := c.newRunner(noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	spin := newSpinner(ctx, "Loading "+opts.Source)
	spin.Start()
	result, err := runner.Execute(ctx, opts)
	spin.Stop()
	if err != nil {
		if pipeline.IsNoData(err) {
			printWarning("No data to display in %s", opts.Source)
			return nil
		}
		return err
	}

	if dropped := len(result.Report.Problems); dropped > 0 {
		printWarning("Dropped %d malformed records", dropped)
		for _, p := range result.Report.Problems {
			logger.Debug("dropped", "record", p.String())
		}
	}

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, output, opts.Source)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d file(s)", len(paths)))

	printSuccess("Rendered %s", StyleHighlight.Render(opts.Source))
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, len(result.Report.Problems),
		len(result.CacheInfo.ExportHits) == len(opts.Formats))
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// writeArtifacts writes one file per format and returns their paths in
// format order. With a single format, output is the exact file name;
// otherwise it is a base path extended per format.
func writeArtifacts(artifacts map[string][]byte, formats []string, output, source string) ([]string, error) {
	base := output
	if base == "" {
		base = basePath(source)
	}
	var paths []string
	for _, f := range formats {
		path := base + sink.Extension(f)
		if len(formats) == 1 && output != "" {
			path = output
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// basePath derives an output base name from a source location.
func basePath(source string) string {
	if source == "-" || strings.Contains(source, "://") {
		return "trialviz"
	}
	return strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
}
