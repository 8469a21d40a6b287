package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sparsetree/pkg/snode"
)

// exploreCommand creates the explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explore <manifest>",
		Short: "Browse a layout tree interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.loadLayout(args[0])
			if err != nil {
				return err
			}
			model := NewNodeListModel(l.Tree)
			if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("explore: %w", err)
			}
			return nil
		},
	}
}

// List styles
var (
	listDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	listLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// NodeListModel - Interactive layout tree browser
// =============================================================================

// NodeListModel is the bubbletea model for browsing a finalized tree. The
// nodes are listed depth first; the selected node's properties are shown
// below the list.
type NodeListModel struct {
	Nodes  []*snode.Node
	Cursor int
	Height int
	Offset int
}

// NewNodeListModel lists every node of t in depth-first order.
func NewNodeListModel(t *snode.Tree) NodeListModel {
	var nodes []*snode.Node
	t.Walk(func(n *snode.Node) bool {
		nodes = append(nodes, n)
		return true
	})
	return NodeListModel{Nodes: nodes, Height: 15}
}

func (m NodeListModel) Init() tea.Cmd {
	return nil
}

func (m NodeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			m.Cursor = len(m.Nodes) - 1
			m.Offset = max(0, m.Cursor-m.Height+1)
		}
	case tea.WindowSizeMsg:
		// Leave room for the title and the detail pane.
		m.Height = max(5, msg.Height-18)
		if m.Cursor >= m.Offset+m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m, nil
}

func (m NodeListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Layout Tree"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Nodes))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n := m.Nodes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		name := strings.Repeat("  ", n.Depth()) + n.HintedName()
		rows = append(rows, []string{cursor, name, leafName(n), strconv.Itoa(n.NumCells())})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Field", "Cells").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Nodes) {
				return lipgloss.NewStyle()
			}
			style := styleFor(m.Nodes[idx])
			if col == 2 || col == 3 {
				style = listDimStyle
			}
			if idx == m.Cursor {
				return style.Bold(true)
			}
			return style
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Nodes))))
	b.WriteString("\n\n")

	if len(m.Nodes) > 0 {
		for _, kv := range nodeDetails(m.Nodes[m.Cursor]) {
			b.WriteString("  " + listLabelStyle.Render(kv[0]) + StyleValue.Render(kv[1]) + "\n")
		}
	}
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func leafName(n *snode.Node) string {
	if n.IsPlace() {
		return n.Name()
	}
	return ""
}

// nodeDetails returns label/value pairs describing n. The tree must be
// finalized.
func nodeDetails(n *snode.Node) [][2]string {
	details := [][2]string{
		{"type", n.Type().String()},
		{"depth", strconv.Itoa(n.Depth())},
		{"children", strconv.Itoa(n.NumChildren())},
	}

	if axes := n.PhysicalIndexPosition(); len(axes) > 0 {
		var parts []string
		for i, ax := range axes {
			e := n.Extractor(ax)
			shape, err := n.ShapeAlongAxis(i)
			if err != nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("%d: %d bits, %d trailing, shape %d", ax, e.NumBits, e.TrailingBits, shape))
		}
		details = append(details, [2]string{"axes", strings.Join(parts, "; ")})
	}

	sparse := "dense path"
	if lsa, err := n.LeastSparseAncestor(); err == nil && lsa != nil {
		sparse = lsa.HintedName()
	}
	details = append(details, [2]string{"sparse", sparse})

	switch n.Type() {
	case snode.TypeDynamic:
		details = append(details, [2]string{"chunk", strconv.Itoa(n.ChunkSize())})
	case snode.TypeBitStruct, snode.TypeBitArray:
		details = append(details, [2]string{"packed", fmt.Sprintf("%d of %d bits", n.BitsUsed(), n.PhysicalType().BitWidth())})
	case snode.TypePlace:
		details = append(details, [2]string{"dtype", n.DType().String()})
		if n.IsBitLevel() {
			details = append(details, [2]string{"bit offset", strconv.Itoa(n.BitOffset())})
		}
		if exp := n.ExponentNode(); exp != nil {
			details = append(details, [2]string{"exponent", exp.Name()})
		}
		if g, err := n.Grad(); err == nil {
			details = append(details, [2]string{"grad", g.Name()})
		}
		if v, ok := n.Ambient(); ok {
			details = append(details, [2]string{"ambient", v.String()})
		}
		if offs := n.IndexOffsets(); len(offs) > 0 {
			details = append(details, [2]string{"offsets", fmt.Sprint(offs)})
		}
	}
	return details
}
