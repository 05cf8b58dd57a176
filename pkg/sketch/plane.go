// Package sketch records 2D profiles on the six canonical work planes and
// turns them into solid scene objects by extrusion or revolution.
//
// Extrude and Revolve map a sketch onto the closest parametric primitive
// (box, cylinder, torus). They are proxies for swept solids, not real
// sweeps, but the interface stays the same if one is substituted.
package sketch

import (
	"fmt"
	"math"

	"github.com/chazu/boxel/pkg/scene"
)

// Plane is one of the six orthographic work planes.
type Plane string

const (
	PlaneFront  Plane = "front"
	PlaneBack   Plane = "back"
	PlaneLeft   Plane = "left"
	PlaneRight  Plane = "right"
	PlaneTop    Plane = "top"
	PlaneBottom Plane = "bottom"
)

// Planes lists the work planes in display order.
var Planes = []Plane{PlaneFront, PlaneBack, PlaneLeft, PlaneRight, PlaneTop, PlaneBottom}

// ParsePlane validates a plane name. The empty string means front.
func ParsePlane(s string) (Plane, error) {
	if s == "" {
		return PlaneFront, nil
	}
	for _, p := range Planes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown work plane %q", s)
}

// Project maps plane coordinates (u, v) to world space.
//
//	front  (u, v, 0)     back   (-u, v, 0)
//	left   (0, v, u)     right  (0, v, -u)
//	top    (u, 0, -v)    bottom (u, 0, v)
func (p Plane) Project(u, v float64) scene.Vec3 {
	switch p {
	case PlaneBack:
		return scene.Vec3{0 - u, v, 0}
	case PlaneLeft:
		return scene.Vec3{0, v, u}
	case PlaneRight:
		return scene.Vec3{0, v, 0 - u}
	case PlaneTop:
		return scene.Vec3{u, 0, 0 - v}
	case PlaneBottom:
		return scene.Vec3{u, 0, v}
	default:
		return scene.Vec3{u, v, 0}
	}
}

// Unproject is the inverse of Project for points on the plane.
func (p Plane) Unproject(w scene.Vec3) (u, v float64) {
	switch p {
	case PlaneBack:
		return 0 - w[0], w[1]
	case PlaneLeft:
		return w[2], w[1]
	case PlaneRight:
		return 0 - w[2], w[1]
	case PlaneTop:
		return w[0], 0 - w[2]
	case PlaneBottom:
		return w[0], w[2]
	default:
		return w[0], w[1]
	}
}

// Normal returns the unit world axis the plane faces along.
func (p Plane) Normal() scene.Vec3 {
	switch p {
	case PlaneBack:
		return scene.Vec3{0, 0, -1}
	case PlaneLeft:
		return scene.Vec3{-1, 0, 0}
	case PlaneRight:
		return scene.Vec3{1, 0, 0}
	case PlaneTop:
		return scene.Vec3{0, 1, 0}
	case PlaneBottom:
		return scene.Vec3{0, -1, 0}
	default:
		return scene.Vec3{0, 0, 1}
	}
}

// orientation returns the Euler rotation (radians) that turns a primitive's
// local Y axis onto the plane normal, and the two in-plane extents of b that
// become the primitive's local X and Z sizes.
func (p Plane) orientation(b scene.Bounds) (rot scene.Vec3, a, c float64) {
	switch p {
	case PlaneFront, PlaneBack:
		return scene.Vec3{math.Pi / 2, 0, 0}, b.Width, b.Height
	case PlaneLeft, PlaneRight:
		return scene.Vec3{0, 0, math.Pi / 2}, b.Height, b.Depth
	default:
		return scene.Vec3{}, b.Width, b.Depth
	}
}

// ComputeBounds returns the axis-aligned extent of pts. Empty input yields
// zero bounds.
func ComputeBounds(pts []scene.Vec3) scene.Bounds {
	if len(pts) == 0 {
		return scene.Bounds{}
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return scene.Bounds{
		Width:   hi[0] - lo[0],
		Height:  hi[1] - lo[1],
		Depth:   hi[2] - lo[2],
		CenterX: (lo[0] + hi[0]) / 2,
		CenterY: (lo[1] + hi[1]) / 2,
		CenterZ: (lo[2] + hi[2]) / 2,
	}
}
