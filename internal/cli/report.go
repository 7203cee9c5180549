package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/relnet/pkg/graph"
	"github.com/matzehuels/relnet/pkg/postprocess"
)

// reportRows builds degree rows from a graph, for when the compile did not
// produce a report.
func reportRows(g *graph.Graph) []postprocess.Row {
	rows := make([]postprocess.Row, len(g.Nodes))
	for i, n := range g.Nodes {
		rows[i] = postprocess.Row{Name: n.Name, Degree: n.Degree, Color: n.Color}
	}
	return rows
}

// renderReport draws the degree/color table. The color column shows a
// swatch when the color is a hex value lipgloss can render.
func renderReport(rows []postprocess.Row) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{r.Name, strconv.Itoa(r.Degree), r.Color}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Node", "Degree", "Color").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			switch col {
			case 1:
				return cellStyle.Foreground(colorCyan).Align(lipgloss.Right)
			case 2:
				if c := rows[row].Color; len(c) > 0 && c[0] == '#' {
					return cellStyle.Foreground(lipgloss.Color(c))
				}
			}
			return cellStyle
		})

	return t.String()
}
