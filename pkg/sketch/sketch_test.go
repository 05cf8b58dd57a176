package sketch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/boxel/pkg/scene"
)

func TestProjectRoundTrip(t *testing.T) {
	for _, p := range Planes {
		t.Run(string(p), func(t *testing.T) {
			w := p.Project(1.5, -2)
			u, v := p.Unproject(w)
			assert.Equal(t, 1.5, u)
			assert.Equal(t, -2.0, v)

			n := p.Normal()
			dot := w[0]*n[0] + w[1]*n[1] + w[2]*n[2]
			assert.Zero(t, dot, "projected points lie on the plane")
		})
	}
}

func TestProjectMapping(t *testing.T) {
	tests := []struct {
		plane Plane
		want  scene.Vec3
	}{
		{PlaneFront, scene.Vec3{1, 2, 0}},
		{PlaneBack, scene.Vec3{-1, 2, 0}},
		{PlaneLeft, scene.Vec3{0, 2, 1}},
		{PlaneRight, scene.Vec3{0, 2, -1}},
		{PlaneTop, scene.Vec3{1, 0, -2}},
		{PlaneBottom, scene.Vec3{1, 0, 2}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.plane.Project(1, 2), tt.plane)
	}
}

func TestParsePlane(t *testing.T) {
	p, err := ParsePlane("")
	require.NoError(t, err)
	assert.Equal(t, PlaneFront, p)

	p, err = ParsePlane("top")
	require.NoError(t, err)
	assert.Equal(t, PlaneTop, p)

	_, err = ParsePlane("diagonal")
	assert.Error(t, err)
}

func TestComputeBounds(t *testing.T) {
	b := ComputeBounds([]scene.Vec3{{-1, 0, 2}, {3, 4, 2}, {1, -2, 2}})
	assert.Equal(t, scene.Bounds{Width: 4, Height: 6, Depth: 0, CenterX: 1, CenterY: 1, CenterZ: 2}, b)
	assert.Equal(t, scene.Bounds{}, ComputeBounds(nil))
}

func TestRecordRejectsEmpty(t *testing.T) {
	_, err := Polyline(PlaneFront, nil)
	assert.ErrorIs(t, err, ErrEmptySketch)
}

func TestExtrudeRectangle(t *testing.T) {
	sk, err := Rectangle(PlaneFront, Point{0, 0}, Point{4, 2})
	require.NoError(t, err)
	assert.Equal(t, scene.KindSketch, sk.Kind)
	assert.Len(t, sk.SketchData.Points, 4)

	out, err := Extrude(sk, 3)
	require.NoError(t, err)
	assert.Equal(t, scene.KindGenerated3D, out.Kind)
	assert.Equal(t, scene.GeometryBox, out.GeometryType)
	assert.Equal(t, []float64{4, 3, 2}, out.GeometryArgs)
	assert.Equal(t, scene.Vec3{2, 1, 0}, out.Position)
	assert.Equal(t, scene.Vec3{math.Pi / 2, 0, 0}, out.Rotation)
}

func TestExtrudeTopRectangleUsesDepthExtent(t *testing.T) {
	sk, err := Rectangle(PlaneTop, Point{0, 0}, Point{4, 6})
	require.NoError(t, err)
	out, err := Extrude(sk, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1, 6}, out.GeometryArgs)
	assert.Equal(t, scene.Vec3{}, out.Rotation)
}

func TestExtrudeShapes(t *testing.T) {
	circle, err := Circle(PlaneFront, Point{0, 0}, 1.5)
	require.NoError(t, err)

	pentagon, err := Polyline(PlaneFront, []Point{{0, 0}, {4, 0}, {5, 2}, {2, 3}, {-1, 2}})
	require.NoError(t, err)

	four, err := Polyline(PlaneFront, []Point{{0, 0}, {2, 0}, {2, 1}, {0, 1}})
	require.NoError(t, err)

	triangle, err := Polyline(PlaneFront, []Point{{0, 0}, {2, 0}, {1, 1}})
	require.NoError(t, err)

	tests := []struct {
		name     string
		sketch   scene.SceneObject
		wantGeom scene.GeometryType
		wantArgs []float64
	}{
		{"circle", circle, scene.GeometryCylinder, []float64{1.5, 1.5, 2, 32}},
		{"more than four points", pentagon, scene.GeometryCylinder, []float64{3, 3, 2, 32}},
		{"four points", four, scene.GeometryBox, []float64{2, 2, 1}},
		{"fallback", triangle, scene.GeometryBox, []float64{2, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Extrude(tt.sketch, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantGeom, out.GeometryType)
			assert.InDeltaSlice(t, tt.wantArgs, out.GeometryArgs, 1e-9)
		})
	}
}

func TestExtrudeFourPointCircleIsCylinder(t *testing.T) {
	sk, err := Circle(PlaneFront, Point{0, 0}, 1)
	require.NoError(t, err)
	sk.SketchData.Points = sk.SketchData.Points[:4]
	require.Len(t, sk.SketchData.Points, 4)

	out, err := Extrude(sk, 2)
	require.NoError(t, err)
	assert.Equal(t, scene.GeometryCylinder, out.GeometryType)
	assert.InDeltaSlice(t, []float64{1, 1, 2, 32}, out.GeometryArgs, 1e-9)
}

func TestExtrudeErrors(t *testing.T) {
	_, err := Extrude(scene.NewPrimitive(scene.GeometryBox), 1)
	assert.ErrorIs(t, err, ErrNotSketch)

	sk, err := Rectangle(PlaneFront, Point{0, 0}, Point{1, 1})
	require.NoError(t, err)
	_, err = Extrude(sk, 0)
	assert.Error(t, err)

	sk.SketchData.Plane = "diagonal"
	_, err = Extrude(sk, 1)
	assert.Error(t, err)
}

func TestRevolve(t *testing.T) {
	rect, err := Rectangle(PlaneFront, Point{0, 0}, Point{2, 5})
	require.NoError(t, err)

	full, err := Revolve(rect, 360, 24)
	require.NoError(t, err)
	assert.Equal(t, scene.GeometryCylinder, full.GeometryType)
	assert.Equal(t, []float64{1, 1, 5, 24}, full.GeometryArgs)

	half, err := Revolve(rect, 180, 0)
	require.NoError(t, err)
	require.Len(t, half.GeometryArgs, 8)
	assert.Equal(t, float64(DefaultSegments), half.GeometryArgs[3])
	assert.Equal(t, 1.0, half.GeometryArgs[5], "open ended")
	assert.InDelta(t, math.Pi, half.GeometryArgs[7], 1e-12)

	over, err := Revolve(rect, 720, 24)
	require.NoError(t, err)
	assert.Len(t, over.GeometryArgs, 4, "angles above 360 are a full revolution")

	circle, err := Circle(PlaneTop, Point{0, 0}, 2)
	require.NoError(t, err)
	torus, err := Revolve(circle, 90, 12)
	require.NoError(t, err)
	assert.Equal(t, scene.GeometryTorus, torus.GeometryType)
	assert.InDeltaSlice(t, []float64{3, 2, 16, 12, math.Pi / 2}, torus.GeometryArgs, 1e-12)

	_, err = Revolve(rect, 0, 12)
	assert.Error(t, err)
}
