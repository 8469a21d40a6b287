package manifest

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/errors"
	"github.com/matzehuels/sparsetree/pkg/field"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

// Layout is a built and finalized tree together with its fields.
type Layout struct {
	Name   string
	Tree   *snode.Tree
	fields map[string]*field.Field
	order  []string
}

// Field returns the declared field called name.
func (l *Layout) Field(name string) (*field.Field, bool) {
	f, ok := l.fields[name]
	return f, ok
}

// Fields returns the declared fields in manifest order.
func (l *Layout) Fields() []*field.Field {
	out := make([]*field.Field, len(l.order))
	for i, name := range l.order {
		out[i] = l.fields[name]
	}
	return out
}

// Option configures Build.
type Option func(*builder)

// WithLogger sets the logger passed to the tree.
func WithLogger(l *log.Logger) Option {
	return func(b *builder) { b.logger = l }
}

// WithTypeFactory sets the factory used for field and physical types.
func WithTypeFactory(f *dtype.Factory) Option {
	return func(b *builder) { b.factory = f }
}

type builder struct {
	logger  *log.Logger
	factory *dtype.Factory
	fields  map[string]*field.Field
}

// Build grows the tree described by m, places every field, runs lazy
// gradient placement when requested and finalizes the tree.
func Build(m *Manifest, opts ...Option) (*Layout, error) {
	b := &builder{
		logger:  log.Default(),
		factory: dtype.Default(),
		fields:  make(map[string]*field.Field, len(m.Fields)),
	}
	for _, opt := range opts {
		opt(b)
	}

	l := &Layout{Name: m.Name, fields: b.fields}
	for _, spec := range m.Fields {
		f, err := b.declare(spec)
		if err != nil {
			return nil, err
		}
		b.fields[spec.Name] = f
		l.order = append(l.order, spec.Name)
	}

	l.Tree = snode.New(snode.WithLogger(b.logger), snode.WithTypeFactory(b.factory))
	if err := b.grow(l.Tree.Root(), m.Root, "root"); err != nil {
		return nil, err
	}

	for _, name := range l.order {
		if !b.fields[name].Placed() {
			b.logger.Warn("field declared but never placed", "field", name)
		}
	}

	if m.LazyGrad {
		if err := l.Tree.Root().LazyGrad(); err != nil {
			return nil, err
		}
	}
	if err := l.Tree.Finalize(); err != nil {
		return nil, err
	}
	b.logger.Debug("layout built", "name", m.Name, "nodes", l.Tree.Len(), "fields", len(l.order))
	return l, nil
}

func (b *builder) declare(spec FieldSpec) (*field.Field, error) {
	dt, err := b.resolveType(spec)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "field %q", spec.Name)
	}
	var opts []field.Option
	if spec.Ambient != nil {
		opts = append(opts, field.WithAmbient(*spec.Ambient))
	}
	if spec.Grad {
		return field.NewDifferentiable(spec.Name, dt, opts...), nil
	}
	return field.New(spec.Name, dt, opts...), nil
}

func (b *builder) resolveType(spec FieldSpec) (dtype.Type, error) {
	if !spec.IsCustomFloat() {
		return b.factory.Parse(spec.Type)
	}
	digits, err := b.customInt(spec.Digits)
	if err != nil {
		return nil, err
	}
	var exp *dtype.CustomInt
	if spec.Exponent != "" {
		if exp, err = b.customInt(spec.Exponent); err != nil {
			return nil, err
		}
	}
	compute := dtype.F32
	if spec.Compute != "" {
		if compute, err = dtype.ParsePrimitive(spec.Compute); err != nil {
			return nil, err
		}
	}
	scale := spec.Scale
	if scale == 0 {
		scale = 1
	}
	return b.factory.CustomFloatType(digits, exp, compute, scale)
}

func (b *builder) customInt(name string) (*dtype.CustomInt, error) {
	t, err := b.factory.Parse(name)
	if err != nil {
		return nil, err
	}
	ci, ok := t.(*dtype.CustomInt)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidType, "%s is not a custom integer", name)
	}
	return ci, nil
}

// grow places the entry's fields into n, then creates and grows its
// children. path names the entry's position in errors ("root.child[1]").
func (b *builder) grow(n *snode.Node, spec NodeSpec, path string) error {
	if err := b.placeAll(n, spec, path); err != nil {
		return err
	}
	for i, cs := range spec.Children {
		childPath := fmt.Sprintf("%s.child[%d]", path, i)
		child, err := b.create(n, cs)
		if err != nil {
			return errors.Wrap(errors.GetCode(err), err, "%s", childPath)
		}
		if err := b.grow(child, cs, childPath); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) create(parent *snode.Node, spec NodeSpec) (*snode.Node, error) {
	typ, err := snode.ParseNodeType(spec.Type)
	if err != nil {
		return nil, err
	}
	axes := make([]snode.Axis, len(spec.Axes))
	for i, a := range spec.Axes {
		axes[i] = snode.Axis(a)
	}

	switch typ {
	case snode.TypeDynamic:
		if len(axes) != 1 || len(spec.Sizes) != 1 {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "dynamic needs exactly one axis and one size")
		}
		return parent.Dynamic(axes[0], spec.Sizes[0], spec.ChunkSize)
	case snode.TypeBitStruct:
		if len(axes) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidManifest, "bit_struct takes no axes")
		}
		return parent.BitStruct(spec.Bits)
	case snode.TypeBitArray:
		return parent.BitArray(axes, spec.Sizes, spec.Bits)
	case snode.TypeDense, snode.TypePointer, snode.TypeHash, snode.TypeBitmasked:
		return parent.CreateNode(axes, spec.Sizes, typ)
	default:
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s cannot be declared as a container", typ)
	}
}

func (b *builder) placeAll(n *snode.Node, spec NodeSpec, path string) error {
	for name := range spec.Offsets {
		if !slices.Contains(spec.Place, name) {
			return errors.New(errors.ErrCodeInvalidManifest, "%s: offsets for %q, which is not placed here", path, name)
		}
	}
	if len(spec.Place) == 0 {
		if spec.SharedExponent {
			return errors.New(errors.ErrCodeInvalidManifest, "%s: shared_exponent without placements", path)
		}
		return nil
	}

	if spec.SharedExponent {
		if err := n.BeginSharedExpPlacement(); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "%s", path)
		}
	}
	for _, name := range spec.Place {
		f, ok := b.fields[name]
		if !ok {
			return errors.New(errors.ErrCodeInvalidManifest, "%s: placing undeclared field %q", path, name)
		}
		if _, err := n.Place(f, spec.Offsets[name]); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "%s", path)
		}
	}
	if spec.SharedExponent {
		if err := n.EndSharedExpPlacement(); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "%s", path)
		}
	}
	return nil
}
