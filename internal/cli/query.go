package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sparsetree/pkg/manifest"
)

var queryHeaders = []string{"Field", "Type", "Leaf", "Sparse ancestor", "Shape", "Bits", "Exponent", "Grad"}

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "query <manifest> [field...]",
		Short: "Show the layout properties of placed fields",
		Long: `Build a manifest and print, for each placed field, its leaf, the nearest
ancestor that needs activation, its padded shape, the bits reserved along
each active axis, its exponent leaf and its gradient leaf.

Without field arguments every declared field is shown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.loadLayout(args[0])
			if err != nil {
				return err
			}
			rows, err := fieldRows(l, args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if plain {
				for _, r := range rows {
					fmt.Fprintln(out, strings.Join(r, "\t"))
				}
				return nil
			}
			fmt.Fprintln(out, renderFieldTable(rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print tab-separated rows without a table")

	return cmd
}

// fieldRows returns one row per requested field, in declaration order when
// names is empty.
func fieldRows(l *manifest.Layout, names []string) ([][]string, error) {
	var infos []manifest.FieldInfo
	if len(names) == 0 {
		all, err := l.DescribeAll()
		if err != nil {
			return nil, err
		}
		infos = all
	}
	for _, name := range names {
		info, err := l.Describe(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = fieldRow(info)
	}
	return rows, nil
}

// fieldRow formats a field for the table; absent values show as "-".
func fieldRow(info manifest.FieldInfo) []string {
	shape, bits := "-", "-"
	switch {
	case info.Scalar:
		shape = "scalar"
	case len(info.Shape) > 0:
		dims := make([]string, len(info.Shape))
		widths := make([]string, len(info.Bits))
		for i, s := range info.Shape {
			dims[i] = strconv.Itoa(s)
		}
		for i, b := range info.Bits {
			widths[i] = fmt.Sprintf("%d:%d", b.Axis, b.Bits)
		}
		shape, bits = strings.Join(dims, "x"), strings.Join(widths, " ")
	}

	exp := info.Exponent
	if info.SharedExponent {
		exp += " (shared)"
	}
	return []string{
		info.Name, info.DType, orDash(info.Leaf), orDash(info.SparseAncestor),
		shape, bits, orDash(exp), orDash(info.Grad),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func renderFieldTable(rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(queryHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan).Padding(0, 1)
			case rows[row][col] == "-":
				return lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
			default:
				return lipgloss.NewStyle().Padding(0, 1)
			}
		}).
		Render()
}
