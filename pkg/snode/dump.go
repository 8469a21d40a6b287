package snode

import (
	"fmt"
	"io"
	"strings"
)

// HintedName returns the node's generated name followed by its type, the
// element or physical type where there is one, and "<bit>" inside bit-level
// containers: "S3dense", "S4place<f32>", "S7place<cu5><bit>".
func (n *Node) HintedName() string {
	var b strings.Builder
	b.WriteString(n.NodeTypeName())
	b.WriteString(n.typ.String())
	switch n.typ {
	case TypePlace:
		fmt.Fprintf(&b, "<%s>", n.dt)
	case TypeBitStruct, TypeBitArray:
		fmt.Fprintf(&b, "<%s>", n.physicalType)
	}
	if n.isBitLevel {
		b.WriteString("<bit>")
	}
	return b.String()
}

// Dump writes the subtree rooted at n, one line per node, indented two
// spaces per depth. Leaves with an exponent show it as " exp=S<serial>".
// The format is for humans and may change.
func (n *Node) Dump(w io.Writer) error {
	line := strings.Repeat("  ", n.depth) + n.HintedName()
	if exp := n.ExponentNode(); exp != nil {
		line += " exp=" + exp.NodeTypeName()
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := c.Dump(w); err != nil {
			return err
		}
	}
	return nil
}
