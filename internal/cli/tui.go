package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/relnet/pkg/attr"
	"github.com/matzehuels/relnet/pkg/document"
	"github.com/matzehuels/relnet/pkg/graph"
	"github.com/matzehuels/relnet/pkg/pipeline"
)

var (
	inspectDimStyle  = lipgloss.NewStyle().Foreground(colorDim)
	inspectEdgeStyle = lipgloss.NewStyle().Foreground(colorWhite)
	inspectBoxStyle  = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// Command
// =============================================================================

// inspectCommand creates the interactive graph browser.
func (c *CLI) inspectCommand() *cobra.Command {
	var flags cacheFlags

	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "Browse the compiled network interactively",
		Long: `Compile a relationship document and browse its nodes in a table.
Select a node and press enter to list its incident edges.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeDocument,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], flags)
		},
	}
	flags.register(cmd)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, flags cacheFlags) error {
	doc, err := document.Load(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Compile(ctx, doc, pipeline.Options{Logger: c.Logger})
	if err != nil {
		return err
	}

	p := tea.NewProgram(newInspectModel(input, res.Graph), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// =============================================================================
// InspectModel - Node table with edge details
// =============================================================================

type inspectKeyMap struct {
	Enter key.Binding
	Back  key.Binding
	Quit  key.Binding
	Up    key.Binding
	Down  key.Binding
}

var inspectKeys = inspectKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("⏎", "edges"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k inspectKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Back, k.Quit}
}

func (k inspectKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Enter, k.Back, k.Quit}}
}

// InspectModel is the bubbletea model behind the inspect command.
type InspectModel struct {
	title string
	graph *graph.Graph
	nodes table.Model
	help  help.Model
	keys  inspectKeyMap

	// detail is the node whose edges are shown, empty when none.
	detail string
}

func newInspectModel(title string, g *graph.Graph) InspectModel {
	columns := []table.Column{
		{Title: "Node", Width: 24},
		{Title: "Degree", Width: 8},
		{Title: "Color", Width: 12},
		{Title: "Size", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(nodeRows(g)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorDim).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorCyan).
		Bold(false)
	t.SetStyles(s)

	return InspectModel{
		title: title,
		graph: g,
		nodes: t,
		help:  help.New(),
		keys:  inspectKeys,
	}
}

func nodeRows(g *graph.Graph) []table.Row {
	rows := make([]table.Row, len(g.Nodes))
	for i, n := range g.Nodes {
		size := "—"
		if v, ok := attr.Float(n.Attrs[attr.KeySize]); ok {
			size = strconv.FormatFloat(v, 'f', -1, 64)
		}
		color := n.Color
		if color == "" {
			color = "—"
		}
		rows[i] = table.Row{n.Name, strconv.Itoa(n.Degree), color, size}
	}
	return rows
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		h := msg.Height - 8
		if h < 5 {
			h = 5
		}
		m.nodes.SetHeight(h)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.detail = ""
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			if row := m.nodes.SelectedRow(); row != nil {
				m.detail = row[0]
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.nodes, cmd = m.nodes.Update(msg)
	return m, cmd
}

func (m InspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString(inspectDimStyle.Render(fmt.Sprintf("  %d nodes · %d edges", m.graph.NodeCount(), m.graph.EdgeCount())))
	b.WriteString("\n\n")

	if m.detail != "" {
		b.WriteString(inspectBoxStyle.Render(m.edgeList(m.detail)))
	} else {
		b.WriteString(m.nodes.View())
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// edgeList renders the edges incident to name in creation order.
func (m InspectModel) edgeList(name string) string {
	var lines []string
	lines = append(lines, StyleValue.Render(name))
	for _, e := range m.graph.Edges {
		if e.Source != name && e.Target != name {
			continue
		}
		arrow := "—"
		if e.Directed {
			arrow = "→"
		}
		line := fmt.Sprintf("#%d %s %s %s", e.Index, e.Source, arrow, e.Target)
		meta := e.Kind
		if e.Section != "" {
			meta = e.Section + " · " + meta
		}
		if c, ok := e.Color(); ok {
			meta += " · " + c
		}
		lines = append(lines, inspectEdgeStyle.Render(line)+"  "+inspectDimStyle.Render(meta))
	}
	if len(lines) == 1 {
		lines = append(lines, inspectDimStyle.Render("no edges"))
	}
	return strings.Join(lines, "\n")
}
