// Package spatial provides a uniform grid index over mesh triangles,
// shared by the boolean-composition distance fields and the
// self-intersection validator.
package spatial

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
)

// Grid buckets triangle ids by the cells their bounding boxes overlap.
type Grid struct {
	mesh  *geom.Mesh
	min   v3.Vec
	cell  float64
	nx    int
	ny    int
	nz    int
	cells map[int][]int32
}

// NewGrid indexes every triangle of m. The cell size targets a few
// triangles per cell for typical scaffold meshes: it is derived from the
// bounding box volume divided by the triangle count.
func NewGrid(m *geom.Mesh) *Grid {
	min, max := m.Bounds()
	size := max.Sub(min)
	n := m.TriangleCount()
	if n == 0 {
		n = 1
	}
	vol := math.Max(size.X, geom.Eps) * math.Max(size.Y, geom.Eps) * math.Max(size.Z, geom.Eps)
	cell := math.Cbrt(vol / float64(n) * 4)
	if cell < geom.Eps {
		cell = geom.Eps
	}

	g := &Grid{
		mesh:  m,
		min:   min,
		cell:  cell,
		nx:    gridDim(size.X, cell),
		ny:    gridDim(size.Y, cell),
		nz:    gridDim(size.Z, cell),
		cells: make(map[int][]int32),
	}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		tmin := a.Min(b).Min(c)
		tmax := a.Max(b).Max(c)
		g.eachCell(tmin, tmax, func(idx int) {
			g.cells[idx] = append(g.cells[idx], int32(t))
		})
	}
	return g
}

func gridDim(extent, cell float64) int {
	n := int(extent/cell) + 1
	if n < 1 {
		n = 1
	}
	return n
}

// CellSize returns the edge length of one grid cell.
func (g *Grid) CellSize() float64 {
	return g.cell
}

func (g *Grid) clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (g *Grid) coord(p v3.Vec) (int, int, int) {
	return g.clampIdx(int((p.X-g.min.X)/g.cell), g.nx),
		g.clampIdx(int((p.Y-g.min.Y)/g.cell), g.ny),
		g.clampIdx(int((p.Z-g.min.Z)/g.cell), g.nz)
}

func (g *Grid) flat(x, y, z int) int {
	return (z*g.ny+y)*g.nx + x
}

func (g *Grid) eachCell(min, max v3.Vec, f func(idx int)) {
	x0, y0, z0 := g.coord(min)
	x1, y1, z1 := g.coord(max)
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				f(g.flat(x, y, z))
			}
		}
	}
}

// Overlapping returns the ids of triangles whose cells overlap the box
// [min, max]. Ids may repeat across cells; callers dedupe as needed.
func (g *Grid) Overlapping(min, max v3.Vec) []int32 {
	var out []int32
	g.eachCell(min, max, func(idx int) {
		out = append(out, g.cells[idx]...)
	})
	return out
}

// Distance returns the unsigned distance from p to the mesh surface,
// searching cells in expanding Chebyshev shells until no closer triangle
// can exist.
func (g *Grid) Distance(p v3.Vec) float64 {
	px, py, pz := g.coord(p)
	best := math.Inf(1)
	maxShell := g.nx
	if g.ny > maxShell {
		maxShell = g.ny
	}
	if g.nz > maxShell {
		maxShell = g.nz
	}

	for r := 0; r <= maxShell; r++ {
		// Once a hit exists, any triangle in a farther shell is at least
		// (r-1) cells away and cannot beat it.
		if best < float64(r-1)*g.cell {
			break
		}
		g.eachShellCell(px, py, pz, r, func(idx int) {
			for _, t := range g.cells[idx] {
				a, b, c := g.mesh.Triangle(int(t))
				d := PointTriangleDistance(p, a, b, c)
				if d < best {
					best = d
				}
			}
		})
	}
	return best
}

// eachShellCell visits the cells at Chebyshev radius r around (px,py,pz).
func (g *Grid) eachShellCell(px, py, pz, r int, f func(idx int)) {
	if r == 0 {
		f(g.flat(px, py, pz))
		return
	}
	for z := pz - r; z <= pz+r; z++ {
		if z < 0 || z >= g.nz {
			continue
		}
		for y := py - r; y <= py+r; y++ {
			if y < 0 || y >= g.ny {
				continue
			}
			for x := px - r; x <= px+r; x++ {
				if x < 0 || x >= g.nx {
					continue
				}
				// Interior cells were visited by smaller shells.
				if x != px-r && x != px+r && y != py-r && y != py+r && z != pz-r && z != pz+r {
					continue
				}
				f(g.flat(x, y, z))
			}
		}
	}
}

// insideDir is the parity ray direction: mostly +X with a slight tilt
// whose components are mutually incommensurate. An exactly axis-aligned
// ray through lattice geometry can pass through the shared edge of two
// triangles, counting one crossing per incident triangle and flipping
// the parity; the tilt keeps the ray off such edges.
var insideDir = v3.Vec{X: 1, Y: 1e-4 * math.Sqrt2, Z: 1e-4 * math.SqrtPi}

// Inside reports whether p is inside the closed surface, by parity of
// ray crossings along insideDir. Candidate triangles come from the grid
// cells the ray's bounding box sweeps.
func (g *Grid) Inside(p v3.Vec) bool {
	span := g.min.X + (float64(g.nx)+1)*g.cell - p.X
	if span <= 0 {
		return false
	}
	end := p.Add(insideDir.MulScalar(span))
	seen := make(map[int32]struct{})
	crossings := 0
	// All direction components are positive, so the swept box runs from
	// p to end.
	for _, t := range g.Overlapping(p, end) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		a, b, c := g.mesh.Triangle(int(t))
		if hit, dist := rayTriangle(p, insideDir, a, b, c); hit && dist > 0 {
			crossings++
		}
	}
	return crossings%2 == 1
}
