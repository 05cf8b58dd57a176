// Package measure walks resolved scene geometry through a solid kernel to
// compute world-space bounds. It is read-only and never mutates the scene.
package measure

import (
	"errors"
	"fmt"

	"github.com/chazu/boxel/pkg/csg"
	"github.com/chazu/boxel/pkg/kernel"
	"github.com/chazu/boxel/pkg/scene"
)

// ErrEmpty is returned when there is nothing to measure.
var ErrEmpty = errors.New("measure: no solid geometry")

// Box is an axis-aligned bounding box.
type Box struct {
	Min scene.Vec3 `json:"min"`
	Max scene.Vec3 `json:"max"`
}

// Size returns the extent along each axis.
func (b Box) Size() scene.Vec3 {
	return scene.Vec3{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Center returns the box centre.
func (b Box) Center() scene.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b Box) union(o Box) Box {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] {
			b.Min[i] = o.Min[i]
		}
		if o.Max[i] > b.Max[i] {
			b.Max[i] = o.Max[i]
		}
	}
	return b
}

// Solid builds the kernel solid for a resolved mesh spec, with the spec's
// scale, rotation and translation applied in that order.
func Solid(k kernel.Kernel, m *csg.MeshSpec) (s kernel.Solid, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("measure: object %s: %v", m.ObjectID, r)
		}
	}()
	return build(k, m)
}

func build(k kernel.Kernel, m *csg.MeshSpec) (kernel.Solid, error) {
	var (
		s   kernel.Solid
		err error
	)
	if m.IsBoolean() {
		s, err = combine(k, m)
	} else {
		s, err = shape(k, m.Geometry, m.Args)
	}
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", m.ObjectID, err)
	}

	if sc := m.Scale; sc != (scene.Vec3{1, 1, 1}) && !sc.IsZero() {
		s = k.Scale(s, sc[0], sc[1], sc[2])
	}
	if r := m.Rotation; !r.IsZero() {
		s = k.Rotate(s, r[0], r[1], r[2])
	}
	if p := m.Position; !p.IsZero() {
		s = k.Translate(s, p[0], p[1], p[2])
	}
	return s, nil
}

// combine applies the boolean operation pairwise: base first, then each
// further child in order.
func combine(k kernel.Kernel, m *csg.MeshSpec) (kernel.Solid, error) {
	if len(m.Children) < 2 {
		return nil, ErrEmpty
	}
	acc, err := build(k, m.Children[0])
	if err != nil {
		return nil, err
	}
	for _, child := range m.Children[1:] {
		next, err := build(k, child)
		if err != nil {
			return nil, err
		}
		switch m.Operation {
		case scene.OpUnion:
			acc = k.Union(acc, next)
		case scene.OpSubtract:
			acc = k.Difference(acc, next)
		case scene.OpIntersect:
			acc = k.Intersection(acc, next)
		default:
			return nil, fmt.Errorf("unknown operation %q", m.Operation)
		}
	}
	return acc, nil
}

func positive(g scene.GeometryType, vals ...float64) error {
	for _, v := range vals {
		if v <= 0 {
			return fmt.Errorf("%s: dimensions must be positive, got %v", g, vals)
		}
	}
	return nil
}

// shape maps a geometry type and its args onto a kernel primitive.
func shape(k kernel.Kernel, g scene.GeometryType, args []float64) (kernel.Solid, error) {
	if len(args) < g.MinArgs() || g.MinArgs() == 0 {
		return nil, fmt.Errorf("%s: need %d args, have %d", g, g.MinArgs(), len(args))
	}
	switch g {
	case scene.GeometryBox:
		if err := positive(g, args[0], args[1], args[2]); err != nil {
			return nil, err
		}
		return k.Box(args[0], args[1], args[2]), nil
	case scene.GeometrySphere:
		if err := positive(g, args[0]); err != nil {
			return nil, err
		}
		return k.Sphere(args[0]), nil
	case scene.GeometryCylinder:
		if args[0] < 0 || args[1] < 0 || args[0]+args[1] == 0 {
			return nil, fmt.Errorf("%s: invalid radii %g, %g", g, args[0], args[1])
		}
		if err := positive(g, args[2]); err != nil {
			return nil, err
		}
		return k.Cylinder(args[0], args[1], args[2]), nil
	case scene.GeometryCone:
		if err := positive(g, args[0], args[1]); err != nil {
			return nil, err
		}
		return k.Cylinder(0, args[0], args[1]), nil
	case scene.GeometryPlane:
		if err := positive(g, args[0], args[1]); err != nil {
			return nil, err
		}
		return k.Box(args[0], args[1], 0), nil
	case scene.GeometryTorus:
		if err := positive(g, args[0], args[1]); err != nil {
			return nil, err
		}
		return k.Torus(args[0], args[1]), nil
	}
	return nil, fmt.Errorf("unsupported geometry %q", g)
}

// Bounds returns the combined world bounds of specs. Specs that fail to build
// are reported in errs and skipped.
func Bounds(k kernel.Kernel, specs []*csg.MeshSpec) (box Box, errs []error, err error) {
	found := false
	for _, m := range specs {
		s, e := Solid(k, m)
		if e != nil {
			errs = append(errs, e)
			continue
		}
		min, max := s.BoundingBox()
		b := Box{Min: min, Max: max}
		if !found {
			box, found = b, true
			continue
		}
		box = box.union(b)
	}
	if !found {
		return Box{}, errs, ErrEmpty
	}
	return box, errs, nil
}

// SceneBounds measures every effectively visible object of st.
func SceneBounds(k kernel.Kernel, st scene.State) (Box, []error, error) {
	return Bounds(k, csg.ResolveAll(st))
}

// ObjectBounds measures a single object in the context of st.
func ObjectBounds(k kernel.Kernel, st scene.State, id scene.ObjectID) (Box, error) {
	o := st.Object(id)
	if o == nil {
		return Box{}, fmt.Errorf("measure: unknown object %s", id)
	}
	m := csg.Resolve(*o, st.Objects)
	if m == nil {
		return Box{}, ErrEmpty
	}
	s, err := Solid(k, m)
	if err != nil {
		return Box{}, err
	}
	min, max := s.BoundingBox()
	return Box{Min: min, Max: max}, nil
}
