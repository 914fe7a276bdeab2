package spatial

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
)

// unitBox builds an axis-aligned box [0,1]³ with outward winding.
func unitBox() *geom.Mesh {
	m := geom.NewMesh(8, 12)
	var idx [8]uint32
	for i := 0; i < 8; i++ {
		idx[i] = m.AddVertex(v3.Vec{
			X: float64(i & 1),
			Y: float64((i >> 1) & 1),
			Z: float64((i >> 2) & 1),
		})
	}
	quads := [6][4]int{
		{0, 2, 3, 1}, // z=0, normal -Z
		{4, 5, 7, 6}, // z=1, normal +Z
		{0, 1, 5, 4}, // y=0, normal -Y
		{2, 6, 7, 3}, // y=1, normal +Y
		{0, 4, 6, 2}, // x=0, normal -X
		{1, 3, 7, 5}, // x=1, normal +X
	}
	for _, q := range quads {
		m.AddFace(idx[q[0]], idx[q[1]], idx[q[2]])
		m.AddFace(idx[q[0]], idx[q[2]], idx[q[3]])
	}
	return m
}

func TestUnitBoxIsManifold(t *testing.T) {
	if _, err := geom.Seal(unitBox()); err != nil {
		t.Fatalf("unit box fixture is not manifold: %v", err)
	}
}

func TestGridDistance(t *testing.T) {
	g := NewGrid(unitBox())
	cases := []struct {
		p    v3.Vec
		want float64
	}{
		{v3.Vec{X: 0.5, Y: 0.5, Z: 2}, 1},      // above the top face
		{v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 0.5},  // center, nearest face
		{v3.Vec{X: -1, Y: 0.5, Z: 0.5}, 1},     // beside the x=0 face
		{v3.Vec{X: 1, Y: 1, Z: 1}, 0},          // on a corner
		{v3.Vec{X: 2, Y: 2, Z: 2}, math.Sqrt(3)}, // diagonal from corner
	}
	for _, c := range cases {
		got := g.Distance(c.p)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Distance(%v): expected %g, got %g", c.p, c.want, got)
		}
	}
}

func TestGridInside(t *testing.T) {
	g := NewGrid(unitBox())
	if !g.Inside(v3.Vec{X: 0.5, Y: 0.3, Z: 0.6}) {
		t.Error("interior point reported outside")
	}
	if g.Inside(v3.Vec{X: 1.5, Y: 0.3, Z: 0.6}) {
		t.Error("point beside box reported inside")
	}
	if g.Inside(v3.Vec{X: -0.3, Y: 0.2, Z: 0.8}) {
		t.Error("point left of box reported inside")
	}
}

// Querying from points that line up with the quad diagonals must not
// upset the crossing parity. An axis-aligned ray from the box center
// would exit exactly through the x=1 face diagonal, hitting both of its
// triangles and counting the single surface crossing twice.
func TestGridInsideOnDiagonalAlignment(t *testing.T) {
	g := NewGrid(unitBox())
	cases := []struct {
		p    v3.Vec
		want bool
	}{
		{v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, true},   // center, aligned with the x=1 diagonal
		{v3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, true}, // aligned with the same diagonal
		{v3.Vec{X: 0.1, Y: 0.75, Z: 0.75}, true},
		{v3.Vec{X: -0.5, Y: 0.5, Z: 0.5}, false}, // outside, same alignment
	}
	for _, c := range cases {
		if got := g.Inside(c.p); got != c.want {
			t.Errorf("Inside(%v): expected %v, got %v", c.p, c.want, got)
		}
	}
}

func TestPointTriangleDistanceRegions(t *testing.T) {
	a := v3.Vec{X: 0, Y: 0, Z: 0}
	b := v3.Vec{X: 2, Y: 0, Z: 0}
	c := v3.Vec{X: 0, Y: 2, Z: 0}

	// Above the face.
	if d := PointTriangleDistance(v3.Vec{X: 0.5, Y: 0.5, Z: 3}, a, b, c); math.Abs(d-3) > 1e-12 {
		t.Errorf("face region: expected 3, got %g", d)
	}
	// Closest to vertex B.
	if d := PointTriangleDistance(v3.Vec{X: 4, Y: -1, Z: 0}, a, b, c); math.Abs(d-math.Sqrt(5)) > 1e-12 {
		t.Errorf("vertex region: expected sqrt(5), got %g", d)
	}
	// Closest to edge AB.
	if d := PointTriangleDistance(v3.Vec{X: 1, Y: -2, Z: 0}, a, b, c); math.Abs(d-2) > 1e-12 {
		t.Errorf("edge region: expected 2, got %g", d)
	}
}

func TestTrianglesIntersect(t *testing.T) {
	// A vertical triangle stabbing through a horizontal one.
	a0 := v3.Vec{X: -1, Y: -1, Z: 0}
	a1 := v3.Vec{X: 1, Y: -1, Z: 0}
	a2 := v3.Vec{X: 0, Y: 1, Z: 0}
	b0 := v3.Vec{X: 0, Y: 0, Z: -1}
	b1 := v3.Vec{X: 0, Y: 0, Z: 1}
	b2 := v3.Vec{X: 0, Y: -2, Z: 1}
	if !TrianglesIntersect(a0, a1, a2, b0, b1, b2) {
		t.Error("stabbing triangles reported disjoint")
	}

	// Far apart.
	c0 := v3.Vec{X: 10, Y: 10, Z: 10}
	c1 := v3.Vec{X: 11, Y: 10, Z: 10}
	c2 := v3.Vec{X: 10, Y: 11, Z: 10}
	if TrianglesIntersect(a0, a1, a2, c0, c1, c2) {
		t.Error("distant triangles reported intersecting")
	}
}
