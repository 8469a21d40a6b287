package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/sparsetree/pkg/snode"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - sparse containers
	colorBlue   = lipgloss.Color("75")  // Light blue - leaves
	colorPurple = lipgloss.Color("141") // Purple - bit-level nodes
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	styleSparse   = lipgloss.NewStyle().Foreground(colorYellow)
	styleLeaf     = lipgloss.NewStyle().Foreground(colorBlue)
	styleBitLevel = lipgloss.NewStyle().Foreground(colorPurple)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed detail line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Layout Output
// =============================================================================

// layoutStats summarizes a tree on one line.
type layoutStats struct {
	nodes, leaves, sparse, bitLevel, grads int
}

func collectStats(t *snode.Tree) layoutStats {
	var s layoutStats
	t.Walk(func(n *snode.Node) bool {
		s.nodes++
		switch {
		case n.IsPlace():
			s.leaves++
			if n.Field() != nil && !n.Field().IsPrimal() {
				s.grads++
			}
		case n.NeedActivation():
			s.sparse++
		}
		if n.Type() == snode.TypeBitStruct || n.Type() == snode.TypeBitArray {
			s.bitLevel++
		}
		return true
	})
	return s
}

// formatStats renders stats as "12 nodes · 8 leaves · 1 sparse".
func formatStats(s layoutStats) string {
	parts := []string{
		fmt.Sprintf("%d nodes", s.nodes),
		fmt.Sprintf("%d leaves", s.leaves),
	}
	if s.sparse > 0 {
		parts = append(parts, fmt.Sprintf("%d sparse", s.sparse))
	}
	if s.bitLevel > 0 {
		parts = append(parts, fmt.Sprintf("%d packed", s.bitLevel))
	}
	if s.grads > 0 {
		parts = append(parts, fmt.Sprintf("%d gradients", s.grads))
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	return line
}

// styleFor picks the color of a node in dumps and the explorer.
func styleFor(n *snode.Node) lipgloss.Style {
	switch {
	case n.IsBitLevel() || n.Type() == snode.TypeBitStruct || n.Type() == snode.TypeBitArray:
		return styleBitLevel
	case n.NeedActivation():
		return styleSparse
	case n.IsPlace():
		return styleLeaf
	default:
		return StyleValue
	}
}

// styledDump renders the tree like [snode.Tree.Dump] with colors and the
// field name of every leaf.
func styledDump(t *snode.Tree) string {
	var b strings.Builder
	t.Walk(func(n *snode.Node) bool {
		b.WriteString(strings.Repeat("  ", n.Depth()))
		b.WriteString(styleFor(n).Render(n.HintedName()))
		if n.IsPlace() {
			b.WriteString(" " + StyleDim.Render(n.Name()))
		}
		if exp := n.ExponentNode(); exp != nil {
			b.WriteString(StyleDim.Render(" exp=" + exp.NodeTypeName()))
		}
		b.WriteString("\n")
		return true
	})
	return b.String()
}
