package manifest

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// Manifest is the decoded form of a layout description.
type Manifest struct {
	Name     string      `toml:"name"`
	LazyGrad bool        `toml:"lazy_grad"`
	Fields   []FieldSpec `toml:"field"`
	Root     NodeSpec    `toml:"root"`
}

// FieldSpec declares one field. A custom float is declared with Digits
// (and optionally Exponent) instead of Type.
type FieldSpec struct {
	Name     string   `toml:"name"`
	Type     string   `toml:"type"`
	Grad     bool     `toml:"grad"`
	Ambient  *float64 `toml:"ambient"`
	Digits   string   `toml:"digits"`
	Exponent string   `toml:"exponent"`
	Compute  string   `toml:"compute"`
	Scale    float64  `toml:"scale"`
}

// IsCustomFloat reports whether the entry declares a custom float.
func (f FieldSpec) IsCustomFloat() bool { return f.Digits != "" }

// NodeSpec describes one container and its subtree. The root spec only uses
// Place and Children.
type NodeSpec struct {
	Type           string           `toml:"type"`
	Axes           []int            `toml:"axes"`
	Sizes          []int            `toml:"sizes"`
	ChunkSize      int              `toml:"chunk_size"`
	Bits           int              `toml:"bits"`
	Place          []string         `toml:"place"`
	SharedExponent bool             `toml:"shared_exponent"`
	Offsets        map[string][]int `toml:"offsets"`
	Children       []NodeSpec       `toml:"child"`
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read manifest %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest %s", path)
	}
	return m, nil
}

// Parse decodes a manifest. Unknown keys are rejected so that typos do not
// silently change the layout.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidManifest, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return errors.New(errors.ErrCodeInvalidManifest, "field without a name")
		}
		if seen[f.Name] {
			return errors.New(errors.ErrCodeInvalidManifest, "field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if f.Type == "" && !f.IsCustomFloat() {
			return errors.New(errors.ErrCodeInvalidManifest, "field %q needs a type or digits", f.Name)
		}
		if f.Type != "" && f.IsCustomFloat() {
			return errors.New(errors.ErrCodeInvalidManifest, "field %q sets both type and digits", f.Name)
		}
	}
	if m.Root.Type != "" && m.Root.Type != "root" {
		return errors.New(errors.ErrCodeInvalidManifest, "root has type %q", m.Root.Type)
	}
	if len(m.Root.Axes) > 0 || len(m.Root.Sizes) > 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "root cannot partition axes")
	}
	return nil
}
