package measure_test

import (
	"math"
	"testing"

	"github.com/chazu/boxel/pkg/csg"
	"github.com/chazu/boxel/pkg/kernel"
	"github.com/chazu/boxel/pkg/kernel/sdfx"
	"github.com/chazu/boxel/pkg/measure"
	"github.com/chazu/boxel/pkg/scene"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New()
}

func box(id scene.ObjectID, w, h, d float64, pos scene.Vec3) scene.SceneObject {
	o := scene.NewPrimitive(scene.GeometryBox)
	o.ID = id
	o.GeometryArgs = []float64{w, h, d}
	o.Position = pos
	return o
}

func near(a, b scene.Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestSceneBoundsSinglePrimitive(t *testing.T) {
	st := scene.NewState()
	st.Objects = []scene.SceneObject{box("a", 2, 4, 6, scene.Vec3{10, 0, 0})}

	b, errs, err := measure.SceneBounds(newKernel(), st)
	if err != nil {
		t.Fatalf("SceneBounds: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !near(b.Min, scene.Vec3{9, -2, -3}, 0.01) || !near(b.Max, scene.Vec3{11, 2, 3}, 0.01) {
		t.Errorf("bounds = %+v", b)
	}
	if !near(b.Center(), scene.Vec3{10, 0, 0}, 0.01) {
		t.Errorf("center = %v", b.Center())
	}
}

func TestSceneBoundsSkipsHidden(t *testing.T) {
	st := scene.NewState()
	far := box("far", 1, 1, 1, scene.Vec3{100, 0, 0})
	far.Visible = false
	st.Objects = []scene.SceneObject{box("a", 2, 2, 2, scene.Vec3{}), far}

	b, _, err := measure.SceneBounds(newKernel(), st)
	if err != nil {
		t.Fatalf("SceneBounds: %v", err)
	}
	if b.Max[0] > 1.01 {
		t.Errorf("hidden object contributed to bounds: %+v", b)
	}
}

func TestSceneBoundsBooleanUnion(t *testing.T) {
	s := scene.NewStore()
	s.AddObjects(
		box("a", 2, 2, 2, scene.Vec3{0, 0, 0}),
		box("b", 2, 2, 2, scene.Vec3{4, 0, 0}),
	)
	if _, err := csg.CreateBoolean(s, scene.OpUnion, []scene.ObjectID{"a", "b"}, nil); err != nil {
		t.Fatalf("CreateBoolean: %v", err)
	}

	b, _, err := measure.SceneBounds(newKernel(), s.State())
	if err != nil {
		t.Fatalf("SceneBounds: %v", err)
	}
	if !near(b.Min, scene.Vec3{-1, -1, -1}, 0.01) || !near(b.Max, scene.Vec3{5, 1, 1}, 0.01) {
		t.Errorf("union bounds = %+v", b)
	}
}

func TestObjectBoundsMovedBoolean(t *testing.T) {
	s := scene.NewStore()
	s.AddObjects(
		box("a", 2, 2, 2, scene.Vec3{0, 0, 0}),
		box("b", 1, 1, 1, scene.Vec3{0, 0, 0}),
	)
	u, err := csg.CreateBoolean(s, scene.OpSubtract, []scene.ObjectID{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("CreateBoolean: %v", err)
	}
	pos := scene.Vec3{0, 5, 0}
	s.UpdateObject(u.ID, scene.ObjectPatch{Position: &pos})

	b, err := measure.ObjectBounds(newKernel(), s.State(), u.ID)
	if err != nil {
		t.Fatalf("ObjectBounds: %v", err)
	}
	if !near(b.Center(), pos, 0.01) {
		t.Errorf("moving the boolean should move its result, center = %v", b.Center())
	}
	if !near(b.Size(), scene.Vec3{2, 2, 2}, 0.01) {
		t.Errorf("subtract keeps the base extent, size = %v", b.Size())
	}
}

func TestSolidRejectsBadDimensions(t *testing.T) {
	tests := []struct {
		name string
		spec *csg.MeshSpec
	}{
		{"zero box", &csg.MeshSpec{Geometry: scene.GeometryBox, Args: []float64{0, 1, 1}}},
		{"negative sphere", &csg.MeshSpec{Geometry: scene.GeometrySphere, Args: []float64{-1}}},
		{"short args", &csg.MeshSpec{Geometry: scene.GeometryTorus, Args: []float64{1}}},
		{"sketch geometry", &csg.MeshSpec{Geometry: scene.GeometryPolyline, Args: []float64{1}}},
		{"cylinder without radius", &csg.MeshSpec{Geometry: scene.GeometryCylinder, Args: []float64{0, 0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := measure.Solid(newKernel(), tt.spec); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBoundsEmpty(t *testing.T) {
	_, _, err := measure.Bounds(newKernel(), nil)
	if err != measure.ErrEmpty {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestShapesMatchRendererConventions(t *testing.T) {
	tests := []struct {
		name string
		g    scene.GeometryType
		args []float64
		size scene.Vec3
	}{
		{"sphere", scene.GeometrySphere, []float64{1.5}, scene.Vec3{3, 3, 3}},
		{"cylinder", scene.GeometryCylinder, []float64{1, 1, 4}, scene.Vec3{2, 4, 2}},
		{"cone", scene.GeometryCone, []float64{1, 3}, scene.Vec3{2, 3, 2}},
		{"torus", scene.GeometryTorus, []float64{2, 0.5}, scene.Vec3{5, 5, 1}},
		{"plane", scene.GeometryPlane, []float64{3, 2}, scene.Vec3{3, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := measure.Solid(newKernel(), &csg.MeshSpec{Geometry: tt.g, Args: tt.args, Scale: scene.Vec3{1, 1, 1}})
			if err != nil {
				t.Fatalf("Solid: %v", err)
			}
			if got := scene.Vec3(kernel.Size(s)); !near(got, tt.size, 0.01) {
				t.Errorf("size = %v, want %v", got, tt.size)
			}
		})
	}
}
