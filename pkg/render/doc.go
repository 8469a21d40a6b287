// Package render turns layout trees into pictures.
//
// The [nodelink] subpackage draws a tree as a Graphviz node-link diagram.
// This package holds the format conversion shared by renderers: [ToPDF] and
// [ToPNG] convert SVG output with the external rsvg-convert tool (from
// librsvg).
//
//	dot := nodelink.ToDOT(tree, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
package render
