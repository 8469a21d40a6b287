package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds per-axis extents and cell counts to node labels.
	// When false, only the hinted name and field name are shown.
	Detailed bool
}

// ToDOT converts a layout tree to Graphviz DOT format.
func ToDOT(t *snode.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=20, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	var edges, exps []string
	t.Walk(func(n *snode.Node) bool {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.NodeTypeName(), strings.Join(fmtAttrs(n, opts.Detailed), ", "))
		for _, c := range n.Children() {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", n.NodeTypeName(), c.NodeTypeName()))
		}
		if exp := n.ExponentNode(); exp != nil {
			exps = append(exps, fmt.Sprintf("  %q -> %q [style=dotted, arrowhead=none, constraint=false];\n",
				n.NodeTypeName(), exp.NodeTypeName()))
		}
		return true
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	for _, e := range exps {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *snode.Node, detailed bool) string {
	lines := []string{n.HintedName()}
	if n.IsPlace() {
		lines = append(lines, n.Name())
	}
	if !detailed {
		return strings.Join(lines, "\n")
	}

	var axes []string
	for ax := range snode.MaxNumIndices {
		e := n.Extractor(snode.Axis(ax))
		if e.Active {
			axes = append(axes, fmt.Sprintf("%d:%d/%d", ax, e.NumElements, 1<<e.NumBits))
		}
	}
	if len(axes) > 0 {
		lines = append(lines, "axes "+strings.Join(axes, " "))
	}
	if !n.IsPlace() && n.Type() != snode.TypeRoot {
		lines = append(lines, fmt.Sprintf("cells: %d", n.NumCells()))
	}
	if n.Type() == snode.TypeDynamic {
		lines = append(lines, fmt.Sprintf("chunk: %d", n.ChunkSize()))
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(n *snode.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	switch {
	case n.NeedActivation():
		attrs = append(attrs, "fillcolor=lightgoldenrod1")
	case n.IsPlace():
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if n.IsBitLevel() || n.Type() == snode.TypeBitStruct || n.Type() == snode.TypeBitArray {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales from a zero
// origin with explicit width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
