package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/boxel/pkg/kernel"
)

// expectBounds checks s's bounding box against want within tol.
func expectBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64, tol float64) {
	t.Helper()
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], wantMax[i])
		}
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	box := k.Box(100, 50, 25)
	expectBounds(t, box, [3]float64{-50, -25, -12.5}, [3]float64{50, 25, 12.5}, 0.01)
}

func TestSphere(t *testing.T) {
	k := New()
	expectBounds(t, k.Sphere(3), [3]float64{-3, -3, -3}, [3]float64{3, 3, 3}, 0.01)
}

func TestCylinderRunsAlongY(t *testing.T) {
	k := New()
	cyl := k.Cylinder(1, 1, 10)
	expectBounds(t, cyl, [3]float64{-1, -5, -1}, [3]float64{1, 5, 1}, 0.01)
}

func TestCone(t *testing.T) {
	k := New()
	cone := k.Cylinder(0, 2, 4)
	size := kernel.Size(cone)
	if math.Abs(size[0]-4) > 0.01 || math.Abs(size[1]-4) > 0.01 || math.Abs(size[2]-4) > 0.01 {
		t.Errorf("cone size = %v, expected ~[4 4 4]", size)
	}
}

func TestTorus(t *testing.T) {
	k := New()
	torus := k.Torus(2, 0.5)
	expectBounds(t, torus, [3]float64{-2.5, -2.5, -0.5}, [3]float64{2.5, 2.5, 0.5}, 0.01)
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)

	// Translated box(10,10,10) by (100,200,300) should be centered at (100,200,300).
	expectBounds(t, translated, [3]float64{95, 195, 295}, [3]float64{105, 205, 305}, 0.5)
}

func TestScale(t *testing.T) {
	k := New()
	scaled := k.Scale(k.Box(2, 2, 2), 1, 3, 0.5)
	expectBounds(t, scaled, [3]float64{-1, -3, -0.5}, [3]float64{1, 3, 0.5}, 0.01)
}

func TestRotate(t *testing.T) {
	k := New()
	box := k.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Rotate(box, 0, 0, math.Pi/2)
	size := kernel.Size(rotated)

	const tol = 1.0
	if math.Abs(size[0]-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", size[0])
	}
	if math.Abs(size[1]-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", size[1])
	}
}

func TestUnion(t *testing.T) {
	k := New()
	box1 := k.Box(50, 50, 50)
	box2 := k.Translate(k.Box(50, 50, 50), 30, 0, 0)
	u := k.Union(box1, box2)
	expectBounds(t, u, [3]float64{-25, -25, -25}, [3]float64{55, 25, 25}, 0.01)
}

func TestDifferenceKeepsBaseBounds(t *testing.T) {
	k := New()
	box := k.Box(100, 100, 100)
	cyl := k.Cylinder(20, 20, 120)
	diff := k.Difference(box, cyl)
	expectBounds(t, diff, [3]float64{-50, -50, -50}, [3]float64{50, 50, 50}, 0.01)
}

func TestIntersection(t *testing.T) {
	k := New()
	box1 := k.Box(100, 100, 100)
	box2 := k.Translate(k.Box(100, 100, 100), 50, 0, 0)
	inter := k.Intersection(box1, box2)
	size := kernel.Size(inter)
	if size[0] > 100.01 {
		t.Errorf("intersection X extent = %f, expected at most 100", size[0])
	}
}
