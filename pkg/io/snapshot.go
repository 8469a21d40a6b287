package io

import (
	"github.com/google/uuid"

	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

// Snapshot is the serialized form of a finalized tree.
type Snapshot struct {
	// ID is a content-derived UUID: equal layouts share it.
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Nodes []Node `json:"nodes"`
}

// Node is one node of a Snapshot. References are node ids; -1 means none.
type Node struct {
	ID       int    `json:"id"`
	Serial   int64  `json:"serial"`
	Name     string `json:"name"`
	Hinted   string `json:"hinted"`
	Type     string `json:"type"`
	Depth    int    `json:"depth"`
	Parent   int    `json:"parent"`
	Children []int  `json:"children,omitempty"`

	Axes                  []Axis `json:"axes,omitempty"`
	PhysicalIndexPosition []int  `json:"physical_index_position,omitempty"`
	Cells                 int    `json:"cells"`
	TotalNumBits          int    `json:"total_num_bits"`
	ChunkSize             int    `json:"chunk_size,omitempty"`

	DType        string `json:"dtype,omitempty"`
	PhysicalType string `json:"physical_type,omitempty"`
	BitOffset    int    `json:"bit_offset,omitempty"`
	BitsUsed     int    `json:"bits_used,omitempty"`

	PathAllDense       bool   `json:"path_all_dense"`
	BitLevel           bool   `json:"bit_level,omitempty"`
	Ambient            string `json:"ambient,omitempty"`
	OwnsSharedExponent bool   `json:"owns_shared_exponent,omitempty"`
	Exponent           int    `json:"exponent"`
	ExponentUsers      []int  `json:"exponent_users,omitempty"`
	Grad               int    `json:"grad"`
	IndexOffsets       []int  `json:"index_offsets,omitempty"`
}

// Axis is the layout record of one active axis.
type Axis struct {
	Axis                int `json:"axis"`
	NumBits             int `json:"num_bits"`
	NumElements         int `json:"num_elements"`
	NumElementsFromRoot int `json:"num_elements_from_root"`
	TrailingBits        int `json:"trailing_bits"`
	AccOffset           int `json:"acc_offset"`
}

// FromTree captures a finalized tree.
func FromTree(t *snode.Tree, name string) (*Snapshot, error) {
	if !t.Finalized() {
		return nil, errors.New(errors.ErrCodeNotFinalized, "snapshot requires a finalized tree")
	}

	s := &Snapshot{Name: name, Nodes: make([]Node, 0, t.Len())}
	var err error
	t.Walk(func(n *snode.Node) bool {
		var nd Node
		nd, err = fromNode(n)
		s.Nodes = append(s.Nodes, nd)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	// Walk order is pre-order; ids index the arena.
	sorted := make([]Node, len(s.Nodes))
	for _, nd := range s.Nodes {
		sorted[nd.ID] = nd
	}
	s.Nodes = sorted
	if s.ID, err = contentID(s); err != nil {
		return nil, err
	}
	return s, nil
}

func fromNode(n *snode.Node) (Node, error) {
	parent, err := n.Parent()
	if err != nil {
		return Node{}, err
	}
	nd := Node{
		ID:                 int(n.ID()),
		Serial:             n.Serial(),
		Name:               n.Name(),
		Hinted:             n.HintedName(),
		Type:               n.Type().String(),
		Depth:              n.Depth(),
		Parent:             ref(parent),
		Cells:              n.NumCells(),
		TotalNumBits:       n.TotalNumBits(),
		ChunkSize:          n.ChunkSize(),
		BitOffset:          n.BitOffset(),
		BitsUsed:           n.BitsUsed(),
		PathAllDense:       n.IsPathAllDense(),
		BitLevel:           n.IsBitLevel(),
		OwnsSharedExponent: n.OwnsSharedExponent(),
		Exponent:           ref(n.ExponentNode()),
		Grad:               -1,
		IndexOffsets:       n.IndexOffsets(),
	}
	for _, c := range n.Children() {
		nd.Children = append(nd.Children, int(c.ID()))
	}
	for _, u := range n.ExponentUsers() {
		nd.ExponentUsers = append(nd.ExponentUsers, int(u.ID()))
	}
	for _, ax := range n.PhysicalIndexPosition() {
		nd.PhysicalIndexPosition = append(nd.PhysicalIndexPosition, int(ax))
	}
	for ax := range snode.MaxNumIndices {
		e := n.Extractor(snode.Axis(ax))
		if !e.Active {
			continue
		}
		nd.Axes = append(nd.Axes, Axis{
			Axis:                ax,
			NumBits:             e.NumBits,
			NumElements:         e.NumElements,
			NumElementsFromRoot: e.NumElementsFromRoot,
			TrailingBits:        e.TrailingBits,
			AccOffset:           e.AccOffset,
		})
	}
	if n.IsPlace() {
		nd.DType = n.DType().String()
	}
	if pt := n.PhysicalType(); pt != nil {
		nd.PhysicalType = pt.String()
	}
	if v, ok := n.Ambient(); ok {
		nd.Ambient = v.String()
	}
	if n.HasGrad() {
		g, err := n.Grad()
		if err != nil {
			return Node{}, err
		}
		nd.Grad = int(g.ID())
	}
	return nd, nil
}

func ref(n *snode.Node) int {
	if n == nil {
		return -1
	}
	return int(n.ID())
}

// Validate checks the internal consistency of a decoded snapshot.
func (s *Snapshot) Validate() error {
	if len(s.Nodes) == 0 {
		return errors.New(errors.ErrCodeInvalidFormat, "snapshot has no nodes")
	}
	if s.ID != "" {
		if _, err := uuid.Parse(s.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "snapshot id")
		}
	}
	valid := func(id int) bool { return id >= -1 && id < len(s.Nodes) }
	for i, n := range s.Nodes {
		if n.ID != i {
			return errors.New(errors.ErrCodeInvalidFormat, "node %d has id %d", i, n.ID)
		}
		if (i == 0) != (n.Parent == -1) {
			return errors.New(errors.ErrCodeInvalidFormat, "node %d: only the root has no parent", i)
		}
		if !valid(n.Parent) || !valid(n.Exponent) || !valid(n.Grad) {
			return errors.New(errors.ErrCodeInvalidFormat, "node %d: reference out of range", i)
		}
		for _, c := range n.Children {
			if c <= 0 || c >= len(s.Nodes) || s.Nodes[c].Parent != i {
				return errors.New(errors.ErrCodeInvalidFormat, "node %d: child %d does not link back", i, c)
			}
		}
		for _, u := range n.ExponentUsers {
			if u < 0 || u >= len(s.Nodes) || s.Nodes[u].Exponent != i {
				return errors.New(errors.ErrCodeInvalidFormat, "node %d: exponent user %d does not link back", i, u)
			}
		}
	}
	return nil
}
