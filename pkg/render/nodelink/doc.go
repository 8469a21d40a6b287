// Package nodelink renders layout trees as node-link diagrams.
//
// Containers and leaves appear as boxes connected top to bottom in child
// order. Containers whose cells need activation are shaded, bit-level nodes
// are drawn with a dashed outline, and dotted edges link every custom-float
// leaf to the exponent leaf it uses.
//
// # Usage
//
//	dot := nodelink.ToDOT(tree, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no Graphviz installation is needed.
package nodelink
