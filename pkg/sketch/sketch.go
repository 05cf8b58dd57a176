package sketch

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/boxel/pkg/scene"
)

// DefaultSegments is the radial segment count used for generated cylinders.
const DefaultSegments = 32

var (
	// ErrEmptySketch is returned when a sketch has no points.
	ErrEmptySketch = errors.New("sketch has no points")
	// ErrNotSketch is returned when Extrude or Revolve is given another kind.
	ErrNotSketch = errors.New("object is not a sketch")
)

// Point is a 2D point in plane coordinates.
type Point struct {
	U, V float64
}

// Record builds a sketch object from plane-space points. shape is the sketch
// geometry type (plane, circle or polyline); args are kept as-is.
func Record(plane Plane, shape scene.GeometryType, pts []Point, args ...float64) (scene.SceneObject, error) {
	if len(pts) == 0 {
		return scene.SceneObject{}, ErrEmptySketch
	}
	world := make([]scene.Vec3, len(pts))
	for i, p := range pts {
		world[i] = plane.Project(p.U, p.V)
	}
	b := ComputeBounds(world)
	return scene.SceneObject{
		ID:           scene.NewObjectID(scene.KindSketch),
		Name:         fmt.Sprintf("Sketch (%s)", shape),
		Kind:         scene.KindSketch,
		GeometryType: shape,
		GeometryArgs: args,
		Position:     scene.Vec3{},
		Scale:        scene.Vec3{1, 1, 1},
		Material:     scene.DefaultMaterial(),
		Visible:      true,
		LayerID:      scene.DefaultLayerID,
		SketchData: &scene.SketchData{
			Plane:  string(plane),
			Points: world,
			Bounds: b,
		},
	}, nil
}

// Rectangle records an axis-aligned rectangle spanning two corners.
func Rectangle(plane Plane, a, b Point) (scene.SceneObject, error) {
	pts := []Point{
		{a.U, a.V},
		{b.U, a.V},
		{b.U, b.V},
		{a.U, b.V},
	}
	return Record(plane, scene.GeometryPlane, pts)
}

// Circle records a circle as a closed polygon of DefaultSegments points. The
// radius is kept in geometryArgs.
func Circle(plane Plane, center Point, radius float64) (scene.SceneObject, error) {
	if radius <= 0 {
		return scene.SceneObject{}, fmt.Errorf("circle radius must be positive, got %g", radius)
	}
	pts := make([]Point, DefaultSegments)
	for i := range pts {
		t := 2 * math.Pi * float64(i) / DefaultSegments
		pts[i] = Point{center.U + radius*math.Cos(t), center.V + radius*math.Sin(t)}
	}
	return Record(plane, scene.GeometryCircle, pts, radius, DefaultSegments)
}

// Polyline records an open or closed point list.
func Polyline(plane Plane, pts []Point) (scene.SceneObject, error) {
	return Record(plane, scene.GeometryPolyline, pts)
}

func sketchData(sk scene.SceneObject) (*scene.SketchData, Plane, error) {
	if sk.Kind != scene.KindSketch || sk.SketchData == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNotSketch, sk.ID)
	}
	if len(sk.SketchData.Points) == 0 {
		return nil, "", ErrEmptySketch
	}
	plane, err := ParsePlane(sk.SketchData.Plane)
	if err != nil {
		return nil, "", err
	}
	return sk.SketchData, plane, nil
}

func circleRadius(sk scene.SceneObject, a, c float64) float64 {
	if len(sk.GeometryArgs) > 0 && sk.GeometryArgs[0] > 0 {
		return sk.GeometryArgs[0]
	}
	return math.Max(a, c) / 2
}

func generated(sk scene.SceneObject, name string, g scene.GeometryType, args []float64, rot scene.Vec3) scene.SceneObject {
	layer := sk.LayerID
	if layer == "" {
		layer = scene.DefaultLayerID
	}
	return scene.SceneObject{
		ID:           scene.NewObjectID(scene.KindGenerated3D),
		Name:         name,
		Kind:         scene.KindGenerated3D,
		GeometryType: g,
		GeometryArgs: args,
		Position:     sk.SketchData.Bounds.Center(),
		Rotation:     rot,
		Scale:        scene.Vec3{1, 1, 1},
		Material:     scene.DefaultMaterial(),
		Visible:      true,
		LayerID:      layer,
	}
}

// Extrude turns a sketch into a solid of the given depth along the plane
// normal:
//
//	circle                   -> cylinder[r, r, depth, 32]
//	plane sketch or 4 points -> box[a, depth, c]
//	more than 4 points       -> cylinder with r = max(a, c)/2
//	otherwise                -> box[2, depth, 2]
//
// a and c are the in-plane extents of the sketch bounds.
func Extrude(sk scene.SceneObject, depth float64) (scene.SceneObject, error) {
	sd, plane, err := sketchData(sk)
	if err != nil {
		return scene.SceneObject{}, err
	}
	if depth <= 0 {
		return scene.SceneObject{}, fmt.Errorf("extrude depth must be positive, got %g", depth)
	}
	rot, a, c := plane.orientation(sd.Bounds)

	var (
		g    scene.GeometryType
		args []float64
	)
	switch {
	case sk.GeometryType == scene.GeometryCircle:
		r := circleRadius(sk, a, c)
		g, args = scene.GeometryCylinder, []float64{r, r, depth, DefaultSegments}
	case sk.GeometryType == scene.GeometryPlane || len(sd.Points) == 4:
		g, args = scene.GeometryBox, []float64{a, depth, c}
	case len(sd.Points) > 4:
		r := math.Max(a, c) / 2
		g, args = scene.GeometryCylinder, []float64{r, r, depth, DefaultSegments}
	default:
		g, args = scene.GeometryBox, []float64{2, depth, 2}
	}
	return generated(sk, "Extrude", g, args, rot), nil
}

// Revolve sweeps a sketch around the plane normal by angleDeg degrees
// (clamped to (0, 360]). A circle becomes a torus[r*1.5, r, 16, segments,
// arc]; anything else a cylinder of radius a/2 and height c, open-ended with
// thetaLength = angle when the sweep is partial.
func Revolve(sk scene.SceneObject, angleDeg float64, segments int) (scene.SceneObject, error) {
	sd, plane, err := sketchData(sk)
	if err != nil {
		return scene.SceneObject{}, err
	}
	if angleDeg <= 0 {
		return scene.SceneObject{}, fmt.Errorf("revolve angle must be positive, got %g", angleDeg)
	}
	if angleDeg > 360 {
		angleDeg = 360
	}
	if segments < 3 {
		segments = DefaultSegments
	}
	arc := angleDeg * math.Pi / 180
	rot, a, c := plane.orientation(sd.Bounds)
	seg := float64(segments)

	if sk.GeometryType == scene.GeometryCircle {
		r := circleRadius(sk, a, c)
		return generated(sk, "Revolve", scene.GeometryTorus,
			[]float64{r * 1.5, r, 16, seg, arc}, rot), nil
	}

	r := a / 2
	args := []float64{r, r, c, seg}
	if angleDeg < 360 {
		// heightSegments, openEnded, thetaStart, thetaLength
		args = append(args, 1, 1, 0, arc)
	}
	return generated(sk, "Revolve", scene.GeometryCylinder, args, rot), nil
}
