package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/trialviz/pkg/calltree"
	"github.com/matzehuels/trialviz/pkg/pipeline"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
	"github.com/matzehuels/trialviz/pkg/trace"
)

var (
	treeSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	treeDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// spacingStep is the change applied by one +/- key press.
const spacingStep = 10.0

func (c *CLI) exploreCommand() *cobra.Command {
	var (
		trial1, trial2 int
		noCache        bool
		viewer         viewerFlags
	)

	cmd := &cobra.Command{
		Use:   "explore <dataset|url|->",
		Short: "Browse a call tree in the terminal",
		Long: `Explore loads a dataset and shows its call tree as an indented list.

Keys:
  ↑/↓ j/k   move
  enter     collapse or expand the node under the cursor
  c         report the node together with the last selected one
  +/-       widen or narrow the horizontal node spacing
  t         toggle tooltips
  e / C     expand all / collapse all
  q         quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := viewer.resolve(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := pipeline.Options{Source: args[0], Trial1: trial1, Trial2: trial2, Config: cfg.Viewer, Logger: logger}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			ds, err := runner.Load(ctx, opts)
			if err != nil {
				return err
			}

			m := newExploreModel(ds, opts.Config)
			if m.eng.Tree() == nil {
				printWarning("No data to display in %s", args[0])
				return nil
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().IntVar(&trial1, "trial1", 0, "first trial id (overrides the dataset)")
	cmd.Flags().IntVar(&trial2, "trial2", 0, "second trial id")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the HTTP cache")
	viewer.register(cmd)

	return cmd
}

// exploreModel is the bubbletea model of the explore command. It drives a
// reconcile engine and lists the visible nodes in pre-order.
type exploreModel struct {
	eng    *reconcile.Engine
	rows   []*calltree.Node
	cursor int
	offset int
	height int
	last   *reconcile.Pass

	// note is written by the engine callbacks.
	note *string
}

func newExploreModel(ds *trace.Dataset, cfg reconcile.Config) exploreModel {
	note := new(string)
	cb := reconcile.Callbacks{
		NodeSelected: func(n *calltree.Node) {
			*note = "selected " + n.Name()
		},
		NodeCtrlSelected: func(prev, n *calltree.Node) {
			if prev == nil {
				*note = fmt.Sprintf("%s (no previous selection)", n.Name())
				return
			}
			*note = fmt.Sprintf("%s ↔ %s", prev.Name(), n.Name())
		},
	}
	eng := reconcile.New(nil, reconcile.WithConfig(cfg), reconcile.WithCallbacks(cb))
	m := exploreModel{eng: eng, height: 20, note: note}
	m.last = eng.Load(ds)
	m.refresh("")
	return m
}

func (m exploreModel) Init() tea.Cmd { return nil }

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "enter", " ":
			if n := m.current(); n != nil {
				if p, err := m.eng.OnNodeClick(string(n.Key)); err == nil {
					m.last = p
				}
				m.refresh(n.Key)
			}
		case "c":
			if n := m.current(); n != nil {
				_ = m.eng.OnNodeCtrlClick(string(n.Key))
			}
		case "+", "=":
			m.spacing(spacingStep)
		case "-":
			m.spacing(-spacingStep)
		case "t":
			on := !m.eng.Config().TooltipEnabled
			m.last = m.eng.OnConfigChange(reconcile.ConfigChange{TooltipEnabled: reconcile.Bool(on)})
		case "e":
			m.last = m.eng.ExpandAll()
			m.refresh(m.currentKey())
		case "C":
			m.last = m.eng.CollapseAll()
			m.refresh("")
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 5)
		m.scroll()
	}
	return m, nil
}

func (m *exploreModel) spacing(delta float64) {
	x := max(m.eng.Config().NodeSpacingX+delta, spacingStep)
	m.last = m.eng.OnConfigChange(reconcile.ConfigChange{NodeSpacingX: reconcile.Float(x)})
}

func (m *exploreModel) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.scroll()
}

func (m *exploreModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

// refresh reloads the visible rows and puts the cursor on key, or on the
// first row when key is no longer visible.
func (m *exploreModel) refresh(key calltree.Key) {
	m.rows = nil
	if t := m.eng.Tree(); t != nil {
		m.rows = t.Visible()
	}
	m.cursor = 0
	for i, n := range m.rows {
		if n.Key == key {
			m.cursor = i
			break
		}
	}
	m.scroll()
}

func (m exploreModel) current() *calltree.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor]
}

func (m exploreModel) currentKey() calltree.Key {
	if n := m.current(); n != nil {
		return n.Key
	}
	return ""
}

func (m exploreModel) View() string {
	var b strings.Builder

	title := "Call tree"
	if ds := m.eng.Dataset(); ds != nil {
		if ds.IsDiff() {
			title = fmt.Sprintf("Call tree · %s vs %s",
				styleTrial1.Render(fmt.Sprintf("trial %d", ds.Trial1)),
				styleTrial2.Render(fmt.Sprintf("trial %d", ds.Trial2)))
		} else {
			title = fmt.Sprintf("Call tree · trial %d", ds.Trial1)
		}
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(treeDimStyle.Render("↑/↓ move  ⏎ toggle  c compare  +/- spacing  t tooltips  e/C expand/collapse all  q quit"))
	b.WriteString("\n\n")

	snap := m.eng.Snapshot()
	end := min(m.offset+m.height, len(m.rows))
	for i := m.offset; i < end; i++ {
		n := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		line := strings.Repeat("  ", n.Depth) + marker(n) + " " + n.Name()
		if st, ok := snap.Node(string(n.Key)); ok && m.eng.Config().TooltipEnabled && st.Tooltip != "" {
			if _, detail, found := strings.Cut(st.Tooltip, "\n"); found {
				line += "  " + treeDimStyle.Render(strings.ReplaceAll(detail, "\n", " · "))
			}
		}
		b.WriteString(cursor + rowStyle(n, i == m.cursor).Render(line) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(treeDimStyle.Render(m.status()))
	if *m.note != "" {
		b.WriteString("\n" + StyleHighlight.Render(*m.note))
	}
	return b.String()
}

// status summarizes the last pass, e.g. "pass 3 (click) +2 ~5 -0 · spacing 60×80".
func (m exploreModel) status() string {
	cfg := m.eng.Config()
	s := fmt.Sprintf("[%d/%d]", m.cursor+1, len(m.rows))
	if p := m.last; p != nil {
		enter, update, exit := p.Nodes.Len()
		s += fmt.Sprintf("  pass %d (%s) +%d ~%d -%d", p.Seq, p.Trigger, enter, update, exit)
	}
	return s + fmt.Sprintf(" · spacing %g×%g", cfg.NodeSpacingX, cfg.NodeSpacingY)
}

func marker(n *calltree.Node) string {
	switch {
	case n.IsCollapsed():
		return "▸"
	case n.IsLeaf():
		return "·"
	default:
		return "▾"
	}
}

func rowStyle(n *calltree.Node, selected bool) lipgloss.Style {
	var style lipgloss.Style
	switch n.Membership() {
	case trace.OnlyTrial1:
		style = styleTrial1
	case trace.OnlyTrial2:
		style = styleTrial2
	default:
		if selected {
			return treeSelectedStyle
		}
		return lipgloss.NewStyle()
	}
	if selected {
		return style.Bold(true)
	}
	return style
}
