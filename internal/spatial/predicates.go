package spatial

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
)

// PointTriangleDistance returns the distance from p to the closest point
// on triangle abc (Ericson, Real-Time Collision Detection §5.1.5).
func PointTriangleDistance(p, a, b, c v3.Vec) float64 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return ap.Length() // vertex region A
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return bp.Length() // vertex region B
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return ap.Sub(ab.MulScalar(v)).Length() // edge AB
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return cp.Length() // vertex region C
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return ap.Sub(ac.MulScalar(w)).Length() // edge AC
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return bp.Sub(c.Sub(b).MulScalar(w)).Length() // edge BC
	}

	// Face region.
	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	closest := a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
	return p.Sub(closest).Length()
}

// rayTriangle is Möller–Trumbore. Returns whether the ray from origin
// along dir hits triangle abc, and the hit distance.
func rayTriangle(origin, dir, a, b, c v3.Vec) (bool, float64) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	h := dir.Cross(e2)
	det := e1.Dot(h)
	if det > -geom.Eps && det < geom.Eps {
		return false, 0
	}
	inv := 1.0 / det
	s := origin.Sub(a)
	u := s.Dot(h) * inv
	if u < 0 || u > 1 {
		return false, 0
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return false, 0
	}
	t := e2.Dot(q) * inv
	if t <= geom.Eps {
		return false, 0
	}
	return true, t
}

// segmentTriangle reports whether segment pq crosses triangle abc.
func segmentTriangle(p, q, a, b, c v3.Vec) bool {
	dir := q.Sub(p)
	length := dir.Length()
	if length < geom.Eps {
		return false
	}
	hit, t := rayTriangle(p, dir.DivScalar(length), a, b, c)
	return hit && t < length-geom.Eps
}

// TrianglesIntersect reports whether two triangles cross each other.
// Triangles that merely share vertices or edges (mesh neighbors) are the
// caller's responsibility to skip. The test checks each edge of one
// triangle against the face of the other, which detects every crossing
// contact between non-coplanar triangles.
func TrianglesIntersect(a0, a1, a2, b0, b1, b2 v3.Vec) bool {
	return segmentTriangle(a0, a1, b0, b1, b2) ||
		segmentTriangle(a1, a2, b0, b1, b2) ||
		segmentTriangle(a2, a0, b0, b1, b2) ||
		segmentTriangle(b0, b1, a0, a1, a2) ||
		segmentTriangle(b1, b2, a0, a1, a2) ||
		segmentTriangle(b2, b0, a0, a1, a2)
}
