package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/trialviz/pkg/calltree"
	"github.com/matzehuels/trialviz/pkg/pipeline"
	"github.com/matzehuels/trialviz/pkg/trace"
)

func (c *CLI) statsCommand() *cobra.Command {
	var (
		trial1, trial2 int
		noCache        bool
	)

	cmd := &cobra.Command{
		Use:   "stats <dataset|url|->",
		Short: "Summarize a dataset and its call tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := pipeline.Options{Source: args[0], Trial1: trial1, Trial2: trial2, Logger: loggerFromContext(ctx)}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			ds, err := runner.Load(ctx, opts)
			if err != nil {
				return err
			}
			eng, err := runner.Build(ctx, ds, opts)
			if err != nil {
				if pipeline.IsNoData(err) {
					printWarning("No data to display in %s", args[0])
					return nil
				}
				return err
			}

			fmt.Fprintln(out, StyleTitle.Render(args[0]))
			fmt.Fprintln(out, datasetTable(eng.Dataset(), eng.Report()))
			fmt.Fprintln(out, treeTable(eng.Tree().Stats()))
			return nil
		},
	}

	cmd.Flags().IntVar(&trial1, "trial1", 0, "first trial id (overrides the dataset)")
	cmd.Flags().IntVar(&trial2, "trial2", 0, "second trial id")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the HTTP cache")

	return cmd
}

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...)
}

// datasetTable lists per-trial record counts and durations.
func datasetTable(ds *trace.Dataset, rep trace.Report) string {
	trials := ds.Trials()
	headers := []string{""}
	for _, id := range trials {
		headers = append(headers, fmt.Sprintf("trial %d", id))
	}

	nodes := []string{"nodes"}
	total := []string{"duration"}
	for _, id := range trials {
		nodes = append(nodes, strconv.Itoa(len(ds.NodesOfTrial(id))))
		total = append(total, seconds(ds.TotalDuration(id)))
	}

	edges := map[trace.Membership]int{}
	for _, e := range ds.Edges {
		edges[e.Trial]++
	}
	edgeRow := []string{"edges", strconv.Itoa(edges[trace.Shared] + edges[trace.OnlyTrial1])}
	if ds.IsDiff() {
		edgeRow = append(edgeRow, strconv.Itoa(edges[trace.Shared]+edges[trace.OnlyTrial2]))
	}

	t := newTable(headers...).
		Rows(nodes, edgeRow, total).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow && col == 1 && ds.IsDiff():
				return tableHeaderStyle.Foreground(colorTrial1)
			case row == table.HeaderRow && col == 2:
				return tableHeaderStyle.Foreground(colorTrial2)
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return StyleDim
			}
			return StyleNumber
		})

	s := t.Render()
	if rep.Malformed() {
		s += "\n" + StyleWarning.Render(fmt.Sprintf("%d nodes and %d edges dropped as malformed", rep.NodesDropped, rep.EdgesDropped))
	}
	return s
}

// treeTable summarizes the shape of the call tree.
func treeTable(st calltree.Stats) string {
	rows := [][]string{
		{"nodes", strconv.Itoa(st.Nodes)},
		{"max depth", strconv.Itoa(st.MaxDepth)},
	}
	if st.Diff {
		rows = append(rows,
			[]string{"matched", strconv.Itoa(st.Matched)},
			[]string{"only trial 1", strconv.Itoa(st.OnlyTrial1)},
			[]string{"only trial 2", strconv.Itoa(st.OnlyTrial2)},
		)
	}
	rows = append(rows,
		[]string{"reparented", strconv.Itoa(st.Reparented)},
		[]string{"reclassified", strconv.Itoa(st.Reclassified)},
	)
	if st.Synthetic {
		rows = append(rows, []string{"root", "synthetic"})
	}

	return newTable("call tree", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return StyleDim
			}
			switch rows[row][0] {
			case "only trial 1":
				return styleTrial1
			case "only trial 2":
				return styleTrial2
			}
			return StyleNumber
		}).
		Render()
}

func seconds(v float64) string {
	return time.Duration(v * float64(time.Second)).Round(time.Microsecond).String()
}
