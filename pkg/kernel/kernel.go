// Package kernel defines the abstract solid kernel used to reason about
// resolved scene geometry (currently: world-space bounds). Shapes follow the
// renderer's conventions: every primitive is centred on the origin,
// cylinders and cones run along Y, tori lie in the XY plane.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and combines solids.
type Kernel interface {
	// Primitives
	Box(width, height, depth float64) Solid
	Sphere(radius float64) Solid
	Cylinder(radiusTop, radiusBottom, height float64) Solid
	Torus(radius, tube float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler XYZ, radians
	Scale(s Solid, x, y, z float64) Solid
}

// Size returns the extent of s along each axis.
func Size(s Solid) [3]float64 {
	min, max := s.BoundingBox()
	return [3]float64{max[0] - min[0], max[1] - min[1], max[2] - min[2]}
}
