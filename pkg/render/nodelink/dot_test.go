package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/field"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

func sampleTree(t *testing.T) *snode.Tree {
	t.Helper()
	f := dtype.NewFactory()
	tree := snode.New(snode.WithTypeFactory(f))
	ptr, err := tree.Root().Pointer([]snode.Axis{0}, []int{5})
	if err != nil {
		t.Fatal(err)
	}
	bs, err := ptr.BitStruct(32)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := f.CustomIntType(10, false)
	e, _ := f.CustomIntType(5, false)
	cf, _ := f.CustomFloatType(d, e, dtype.F32, 1)
	if _, err := bs.Place(field.New("q", cf), nil); err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleTree(t), Options{})

	for _, want := range []string{
		"digraph G {",
		`"S0" -> "S1";`,
		`"S1" -> "S2";`,
		`"S2" -> "S4";`,
		`"S4" -> "S3" [style=dotted`,
		`label="S1pointer"`,
		"fillcolor=lightgoldenrod1",
		`style="rounded,filled,dashed"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "cells:") {
		t.Error("non-detailed DOT contains cell counts")
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sampleTree(t), Options{Detailed: true})
	for _, want := range []string{`axes 0:5/8`, `cells: 8`, `\nq"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("detailed DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.00" width="100" height="200"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("normalizeViewBox() changed an SVG without viewBox")
	}
}
