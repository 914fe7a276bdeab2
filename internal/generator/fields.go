package generator

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// capsuleField is the signed distance to a segment thickened by a
// radius: the carving primitive for channels.
type capsuleField struct {
	a, b v3.Vec
	r    float64
}

func (f *capsuleField) Evaluate(p v3.Vec) float64 {
	ab := f.b.Sub(f.a)
	t := p.Sub(f.a).Dot(ab) / ab.Dot(ab)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return p.Sub(f.a.Add(ab.MulScalar(t))).Length() - f.r
}

func (f *capsuleField) BoundingBox() sdf.Box3 {
	r := v3.Vec{X: f.r, Y: f.r, Z: f.r}
	return sdf.Box3{Min: f.a.Min(f.b).Sub(r), Max: f.a.Max(f.b).Add(r)}
}

// sphereField is the signed distance to a sphere: the carving primitive
// for chambers and pores.
type sphereField struct {
	c v3.Vec
	r float64
}

func (f *sphereField) Evaluate(p v3.Vec) float64 {
	return p.Sub(f.c).Length() - f.r
}

func (f *sphereField) BoundingBox() sdf.Box3 {
	r := v3.Vec{X: f.r, Y: f.r, Z: f.r}
	return sdf.Box3{Min: f.c.Sub(r), Max: f.c.Add(r)}
}

// balancedUnion composes fields as a balanced binary tree, mirroring the
// merge strategy of the csg package.
func balancedUnion(fields []sdf.SDF3) sdf.SDF3 {
	for len(fields) > 1 {
		next := make([]sdf.SDF3, 0, (len(fields)+1)/2)
		for i := 0; i < len(fields); i += 2 {
			if i+1 < len(fields) {
				next = append(next, sdf.Union3D(fields[i], fields[i+1]))
			} else {
				next = append(next, fields[i])
			}
		}
		fields = next
	}
	return fields[0]
}
