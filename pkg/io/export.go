package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

// WriteJSON encodes a snapshot of the finalized tree t and writes it to w.
func WriteJSON(t *snode.Tree, name string, w io.Writer) error {
	s, err := FromTree(t, name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode")
	}
	return nil
}

// ExportJSON writes a snapshot of t to a JSON file at path.
func ExportJSON(t *snode.Tree, name, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer f.Close()
	return WriteJSON(t, name, f)
}
