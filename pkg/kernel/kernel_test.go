package kernel

import "testing"

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

func centred(x, y, z float64) *stubSolid {
	return &stubSolid{
		minBB: [3]float64{-x / 2, -y / 2, -z / 2},
		maxBB: [3]float64{x / 2, y / 2, z / 2},
	}
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. Booleans and transforms return their first operand.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid     { return centred(x, y, z) }
func (k *stubKernel) Sphere(r float64) Solid        { return centred(2*r, 2*r, 2*r) }
func (k *stubKernel) Torus(r, tube float64) Solid   { return centred(2*(r+tube), 2*(r+tube), 2*tube) }
func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Cylinder(top, bottom, h float64) Solid {
	r := top
	if bottom > r {
		r = bottom
	}
	return centred(2*r, h, 2*r)
}

func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }
func (k *stubKernel) Scale(s Solid, _, _, _ float64) Solid     { return s }

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestSize(t *testing.T) {
	var k Kernel = &stubKernel{}
	tests := []struct {
		name  string
		solid Solid
		want  [3]float64
	}{
		{"box", k.Box(10, 20, 30), [3]float64{10, 20, 30}},
		{"sphere", k.Sphere(2), [3]float64{4, 4, 4}},
		{"cone", k.Cylinder(0, 3, 5), [3]float64{6, 5, 6}},
		{"torus", k.Torus(2, 0.5), [3]float64{5, 5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Size(tt.solid); got != tt.want {
				t.Errorf("Size() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(10, 20, 30)
	min, max := s.BoundingBox()
	if min != [3]float64{-5, -10, -15} {
		t.Errorf("Box min = %v, want [-5 -10 -15]", min)
	}
	if max != [3]float64{5, 10, 15} {
		t.Errorf("Box max = %v, want [5 10 15]", max)
	}
}
