// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/boxel/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// must panics on constructor errors. Callers validate dimensions first.
func must(name string, s sdf.SDF3, err error) kernel.Solid {
	if err != nil {
		panic(fmt.Sprintf("sdfx.%s: %v", name, err))
	}
	return wrap(s)
}

// zToY turns sdfx's Z-axis solids of revolution onto the Y axis.
var zToY = sdf.RotateX(-math.Pi / 2)

// Box creates a box centred on the origin.
func (k *SdfxKernel) Box(width, height, depth float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: width, Y: height, Z: depth}, 0)
	return must("Box3D", s, err)
}

// Sphere creates a sphere centred on the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	return must("Sphere3D", s, err)
}

// Cylinder creates a (possibly tapered) cylinder along Y. A zero top radius
// gives a cone.
func (k *SdfxKernel) Cylinder(radiusTop, radiusBottom, height float64) kernel.Solid {
	var (
		s   sdf.SDF3
		err error
	)
	if radiusTop == radiusBottom {
		s, err = sdf.Cylinder3D(height, radiusTop, 0)
	} else {
		s, err = sdf.Cone3D(height, radiusBottom, radiusTop, 0)
	}
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder: %v", err))
	}
	return wrap(sdf.Transform3D(s, zToY))
}

// Torus creates a ring of the given centre radius and tube radius lying in
// the XY plane.
func (k *SdfxKernel) Torus(radius, tube float64) kernel.Solid {
	c, err := sdf.Circle2D(tube)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Circle2D: %v", err))
	}
	profile := sdf.Transform2D(c, sdf.Translate2d(v2.Vec{X: radius, Y: 0}))
	s, err := sdf.Revolve3D(profile)
	return must("Revolve3D", s, err)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by XYZ Euler angles in radians, matching the
// renderer's default rotation order.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateX(x).Mul(sdf.RotateY(y)).Mul(sdf.RotateZ(z))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Scale scales a solid per axis. Non-uniform scales distort the distance
// field but keep the bounding box exact.
func (k *SdfxKernel) Scale(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Scale3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}
