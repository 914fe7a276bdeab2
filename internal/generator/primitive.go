package generator

import (
	"context"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// BoxMesh builds an axis-aligned box spanning [min, max] with outward
// winding.
func BoxMesh(min, max v3.Vec) *geom.Mesh {
	m := geom.NewMesh(8, 12)
	var idx [8]uint32
	for i := 0; i < 8; i++ {
		p := v3.Vec{X: min.X, Y: min.Y, Z: min.Z}
		if i&1 != 0 {
			p.X = max.X
		}
		if i&2 != 0 {
			p.Y = max.Y
		}
		if i&4 != 0 {
			p.Z = max.Z
		}
		idx[i] = m.AddVertex(p)
	}
	quads := [6][4]int{
		{0, 2, 3, 1}, {4, 5, 7, 6},
		{0, 1, 5, 4}, {2, 6, 7, 3},
		{0, 4, 6, 2}, {1, 3, 7, 5},
	}
	for _, q := range quads {
		m.AddFace(idx[q[0]], idx[q[1]], idx[q[2]])
		m.AddFace(idx[q[0]], idx[q[2]], idx[q[3]])
	}
	return m
}

// SphereMesh builds a UV sphere of the given radius centered at the
// origin. segments is the longitude count; latitude rings are half that.
func SphereMesh(radius float64, segments int) *geom.Mesh {
	return EllipsoidMesh(v3.Vec{X: radius, Y: radius, Z: radius}, segments)
}

// EllipsoidMesh builds a UV sphere scaled to the given semi-axes.
func EllipsoidMesh(semi v3.Vec, segments int) *geom.Mesh {
	stacks := segments / 2
	if stacks < 3 {
		stacks = 3
	}
	m := geom.NewMesh(segments*stacks, segments*stacks*2)

	south := m.AddVertex(v3.Vec{Z: -semi.Z})
	north := m.AddVertex(v3.Vec{Z: semi.Z})

	// Interior latitude rings, pole to pole.
	rings := make([][]uint32, 0, stacks-1)
	for s := 1; s < stacks; s++ {
		phi := math.Pi*float64(s)/float64(stacks) - math.Pi/2
		ring := make([]uint32, segments)
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			ring[j] = m.AddVertex(v3.Vec{
				X: semi.X * math.Cos(phi) * math.Cos(theta),
				Y: semi.Y * math.Cos(phi) * math.Sin(theta),
				Z: semi.Z * math.Sin(phi),
			})
		}
		rings = append(rings, ring)
	}

	// South cap fan.
	first := rings[0]
	for j := 0; j < segments; j++ {
		m.AddFace(south, first[(j+1)%segments], first[j])
	}
	// Quad strips between rings.
	for r := 0; r+1 < len(rings); r++ {
		lo, hi := rings[r], rings[r+1]
		for j := 0; j < segments; j++ {
			k := (j + 1) % segments
			m.AddFace(lo[j], lo[k], hi[k])
			m.AddFace(lo[j], hi[k], hi[j])
		}
	}
	// North cap fan.
	last := rings[len(rings)-1]
	for j := 0; j < segments; j++ {
		m.AddFace(north, last[j], last[(j+1)%segments])
	}
	return m
}

// TorusMesh builds a ring torus around the Z axis: major is the center
// circle radius, minor the tube radius.
func TorusMesh(major, minor float64, segments int) *geom.Mesh {
	segTube := segments / 2
	if segTube < 6 {
		segTube = 6
	}
	m := geom.NewMesh(segments*segTube, segments*segTube*2)
	grid := make([][]uint32, segments)
	for i := 0; i < segments; i++ {
		u := 2 * math.Pi * float64(i) / float64(segments)
		grid[i] = make([]uint32, segTube)
		for j := 0; j < segTube; j++ {
			w := 2 * math.Pi * float64(j) / float64(segTube)
			r := major + minor*math.Cos(w)
			grid[i][j] = m.AddVertex(v3.Vec{
				X: r * math.Cos(u),
				Y: r * math.Sin(u),
				Z: minor * math.Sin(w),
			})
		}
	}
	for i := 0; i < segments; i++ {
		in := (i + 1) % segments
		for j := 0; j < segTube; j++ {
			jn := (j + 1) % segTube
			m.AddFace(grid[i][j], grid[in][j], grid[in][jn])
			m.AddFace(grid[i][j], grid[in][jn], grid[i][jn])
		}
	}
	return m
}

// CylinderMesh builds a closed cylinder of the given radius and height,
// centered at the origin with its axis along Z.
func CylinderMesh(radius, height float64, segments int) *geom.Mesh {
	half := height / 2
	return TubeMesh(v3.Vec{Z: -half}, v3.Vec{Z: half}, radius, radius, segments)
}

// CapsuleMesh builds a cylinder with hemispherical end caps; height is
// the cylinder section length, axis along Z.
func CapsuleMesh(radius, height float64, segments int) *geom.Mesh {
	stacks := segments / 4
	if stacks < 2 {
		stacks = 2
	}
	m := geom.NewMesh(segments*stacks*2, segments*stacks*4)
	half := height / 2

	south := m.AddVertex(v3.Vec{Z: -half - radius})
	north := m.AddVertex(v3.Vec{Z: half + radius})

	var rings [][]uint32
	addRing := func(r, z float64) {
		ring := make([]uint32, segments)
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			ring[j] = m.AddVertex(v3.Vec{X: r * math.Cos(theta), Y: r * math.Sin(theta), Z: z})
		}
		rings = append(rings, ring)
	}
	// Lower hemisphere rings.
	for s := 1; s <= stacks; s++ {
		phi := math.Pi / 2 * float64(s) / float64(stacks+1)
		addRing(radius*math.Sin(phi), -half-radius*math.Cos(phi))
	}
	addRing(radius, -half)
	addRing(radius, half)
	// Upper hemisphere rings.
	for s := stacks; s >= 1; s-- {
		phi := math.Pi / 2 * float64(s) / float64(stacks+1)
		addRing(radius*math.Sin(phi), half+radius*math.Cos(phi))
	}

	first := rings[0]
	for j := 0; j < segments; j++ {
		m.AddFace(south, first[(j+1)%segments], first[j])
	}
	for r := 0; r+1 < len(rings); r++ {
		lo, hi := rings[r], rings[r+1]
		for j := 0; j < segments; j++ {
			k := (j + 1) % segments
			m.AddFace(lo[j], lo[k], hi[k])
			m.AddFace(lo[j], hi[k], hi[j])
		}
	}
	last := rings[len(rings)-1]
	for j := 0; j < segments; j++ {
		m.AddFace(north, last[j], last[(j+1)%segments])
	}
	return m
}

// TubeMesh builds a closed, optionally tapered tube from p0 (radius r0)
// to p1 (radius r1), with flat end caps.
func TubeMesh(p0, p1 v3.Vec, r0, r1 float64, segments int) *geom.Mesh {
	return SweepTube([]v3.Vec{p0, p1}, []float64{r0, r1}, segments)
}

// SweepTube sweeps a circular cross section along a polyline, linearly
// interpolating radii, and caps both ends. The frame at each point uses
// the adjacent segment direction, so sharp polyline kinks should be
// pre-smoothed by the caller (the vascular generator samples its splines
// densely enough for this).
func SweepTube(points []v3.Vec, radii []float64, segments int) *geom.Mesh {
	n := len(points)
	m := geom.NewMesh(n*segments+2, n*segments*2)

	rings := make([][]uint32, n)
	for i := 0; i < n; i++ {
		dir := frameDirection(points, i)
		u, v := perpendicular(dir)
		rings[i] = make([]uint32, segments)
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			offset := u.MulScalar(radii[i] * math.Cos(theta)).Add(v.MulScalar(radii[i] * math.Sin(theta)))
			rings[i][j] = m.AddVertex(points[i].Add(offset))
		}
	}

	startCap := m.AddVertex(points[0])
	endCap := m.AddVertex(points[n-1])

	// Start cap faces inward along -dir.
	first := rings[0]
	for j := 0; j < segments; j++ {
		m.AddFace(startCap, first[(j+1)%segments], first[j])
	}
	for i := 0; i+1 < n; i++ {
		lo, hi := rings[i], rings[i+1]
		for j := 0; j < segments; j++ {
			k := (j + 1) % segments
			m.AddFace(lo[j], lo[k], hi[k])
			m.AddFace(lo[j], hi[k], hi[j])
		}
	}
	last := rings[n-1]
	for j := 0; j < segments; j++ {
		m.AddFace(endCap, last[j], last[(j+1)%segments])
	}
	return m
}

// frameDirection returns the sweep direction at polyline point i.
func frameDirection(points []v3.Vec, i int) v3.Vec {
	switch {
	case i == 0:
		return points[1].Sub(points[0]).Normalize()
	case i == len(points)-1:
		return points[i].Sub(points[i-1]).Normalize()
	default:
		return points[i+1].Sub(points[i-1]).Normalize()
	}
}

// perpendicular returns two unit vectors orthogonal to dir and each
// other. The reference axis flips when dir is nearly parallel to Z so
// the cross product never degenerates.
func perpendicular(dir v3.Vec) (v3.Vec, v3.Vec) {
	ref := v3.Vec{Z: 1}
	if math.Abs(dir.Z) > 0.9 {
		ref = v3.Vec{X: 1}
	}
	u := dir.Cross(ref).Normalize()
	v := dir.Cross(u)
	return u, v
}

// generatePrimitive dispatches on the primitive shape.
func generatePrimitive(ctx context.Context, p *scaffold.PrimitiveParams) (*geom.Manifold, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
	}
	var mesh *geom.Mesh
	switch p.Shape {
	case scaffold.ShapeBox:
		half := v3.Vec{X: p.SizeMM[0] / 2, Y: p.SizeMM[1] / 2, Z: p.SizeMM[2] / 2}
		mesh = BoxMesh(half.MulScalar(-1), half)
	case scaffold.ShapeCylinder:
		mesh = CylinderMesh(p.SizeMM[0], p.SizeMM[1], p.Segments)
	case scaffold.ShapeSphere:
		mesh = SphereMesh(p.SizeMM[0], p.Segments)
	case scaffold.ShapeTorus:
		mesh = TorusMesh(p.SizeMM[0], p.SizeMM[1], p.Segments)
	case scaffold.ShapeCapsule:
		mesh = CapsuleMesh(p.SizeMM[0], p.SizeMM[1], p.Segments)
	case scaffold.ShapeEllipsoid:
		mesh = EllipsoidMesh(v3.Vec{X: p.SizeMM[0], Y: p.SizeMM[1], Z: p.SizeMM[2]}, p.Segments)
	default:
		return nil, fmt.Errorf("%w: unknown primitive shape %q", scaffold.ErrInvalidParameter, p.Shape)
	}
	man, err := geom.Seal(mesh)
	if err != nil {
		return nil, fmt.Errorf("%w: primitive %s: %v", scaffold.ErrDegenerateGeometry, p.Shape, err)
	}
	return man, nil
}
