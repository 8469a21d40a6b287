package io

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// snapshotNamespace scopes snapshot ids so they never collide with v5 ids
// minted by other tools from the same bytes.
var snapshotNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matzehuels/sparsetree/snapshot"))

// contentID returns a name-based (version 5) UUID of the snapshot's name
// and nodes. Equal layouts get equal ids across runs and machines.
func contentID(s *Snapshot) (string, error) {
	data, err := json.Marshal(struct {
		Name  string `json:"name"`
		Nodes []Node `json:"nodes"`
	}{s.Name, s.Nodes})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot id")
	}
	return uuid.NewSHA1(snapshotNamespace, data).String(), nil
}
