// Package geom provides triangle mesh and manifold types for scaffold geometry.
package geom

import (
	"fmt"
	gomath "math"

	"github.com/chewxy/math32"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Eps is the geometric tolerance in millimeters. Vertex welding, seam
// snapping and plane classification all use this constant.
const Eps = 1e-6

// Mesh is an indexed triangle mesh. Vertices are in millimeters.
// Normals are per-vertex and optional; ComputeNormals fills them in.
type Mesh struct {
	Vertices []v3.Vec
	Indices  []uint32
	Normals  []v3.Vec
}

// NewMesh returns an empty mesh with capacity hints.
func NewMesh(vertHint, triHint int) *Mesh {
	return &Mesh{
		Vertices: make([]v3.Vec, 0, vertHint),
		Indices:  make([]uint32, 0, triHint*3),
	}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty reports whether the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// Triangle returns the three corner positions of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c v3.Vec) {
	a = m.Vertices[m.Indices[i*3]]
	b = m.Vertices[m.Indices[i*3+1]]
	c = m.Vertices[m.Indices[i*3+2]]
	return a, b, c
}

// AddTriangle appends one triangle as three new vertices.
// Shared vertices are recovered later by Weld.
func (m *Mesh) AddTriangle(a, b, c v3.Vec) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, a, b, c)
	m.Indices = append(m.Indices, base, base+1, base+2)
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(p v3.Vec) uint32 {
	m.Vertices = append(m.Vertices, p)
	return uint32(len(m.Vertices) - 1)
}

// AddFace appends a triangle referencing existing vertices.
func (m *Mesh) AddFace(i0, i1, i2 uint32) {
	m.Indices = append(m.Indices, i0, i1, i2)
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices: append([]v3.Vec(nil), m.Vertices...),
		Indices:  append([]uint32(nil), m.Indices...),
	}
	if m.Normals != nil {
		out.Normals = append([]v3.Vec(nil), m.Normals...)
	}
	return out
}

// CheckIndices verifies that every index references a vertex.
func (m *Mesh) CheckIndices() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(m.Indices))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("index %d at position %d exceeds vertex count %d", idx, i, n)
		}
	}
	return nil
}

// Transform returns a new mesh with f applied to every vertex.
// Normals are dropped; recompute them after transforming.
func (m *Mesh) Transform(f func(v3.Vec) v3.Vec) *Mesh {
	out := &Mesh{
		Vertices: make([]v3.Vec, len(m.Vertices)),
		Indices:  append([]uint32(nil), m.Indices...),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = f(v)
	}
	return out
}

// Translate returns a new mesh moved by d.
func (m *Mesh) Translate(d v3.Vec) *Mesh {
	return m.Transform(func(p v3.Vec) v3.Vec { return p.Add(d) })
}

// Bounds returns the axis-aligned bounding box.
func (m *Mesh) Bounds() (min, max v3.Vec) {
	if len(m.Vertices) == 0 {
		return v3.Vec{}, v3.Vec{}
	}
	min = m.Vertices[0]
	max = m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max
}

// FaceNormal returns the unit normal of triangle i, or the zero vector
// for a degenerate triangle.
func (m *Mesh) FaceNormal(i int) v3.Vec {
	a, b, c := m.Triangle(i)
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l < Eps*Eps {
		return v3.Vec{}
	}
	return n.DivScalar(l)
}

// ComputeNormals fills Normals with area-weighted vertex normals.
// The cross product of the edge vectors is proportional to triangle
// area, so accumulating unnormalized face normals weights by area.
func (m *Mesh) ComputeNormals() {
	normals := make([]v3.Vec, len(m.Vertices))
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		fn := b.Sub(a).Cross(c.Sub(a))
		for j := 0; j < 3; j++ {
			idx := m.Indices[t*3+j]
			normals[idx] = normals[idx].Add(fn)
		}
	}
	for i, n := range normals {
		l := n.Length()
		if l > Eps {
			normals[i] = n.DivScalar(l)
		}
	}
	m.Normals = normals
}

// SignedVolume returns the enclosed volume computed as the sum of signed
// tetrahedra against the origin. Positive for outward CCW winding on a
// closed mesh; meaningless for open meshes.
func (m *Mesh) SignedVolume() float64 {
	vol := 0.0
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		vol += a.Dot(b.Cross(c))
	}
	return vol / 6.0
}

// SurfaceArea returns the total triangle area.
func (m *Mesh) SurfaceArea() float64 {
	area := 0.0
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		area += 0.5 * b.Sub(a).Cross(c.Sub(a)).Length()
	}
	return area
}

// Buffers converts the mesh to flat float32 arrays for transport:
// vertices [3n], indices [3m], normals [3n]. Normals are computed if
// absent and re-normalized in float32 so consumers never see
// denormalized values introduced by the precision drop.
func (m *Mesh) Buffers() (vertices []float32, indices []uint32, normals []float32) {
	if m.Normals == nil {
		m.ComputeNormals()
	}
	vertices = make([]float32, 0, len(m.Vertices)*3)
	normals = make([]float32, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	for _, n := range m.Normals {
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		l := math32.Sqrt(nx*nx + ny*ny + nz*nz)
		if l > 0 {
			nx, ny, nz = nx/l, ny/l, nz/l
		}
		normals = append(normals, nx, ny, nz)
	}
	indices = append([]uint32(nil), m.Indices...)
	return vertices, indices, normals
}

// MaxEdgeLength returns the length of the longest triangle edge.
func (m *Mesh) MaxEdgeLength() float64 {
	longest := 0.0
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		longest = gomath.Max(longest, a.Sub(b).Length())
		longest = gomath.Max(longest, b.Sub(c).Length())
		longest = gomath.Max(longest, c.Sub(a).Length())
	}
	return longest
}

// ComponentCount returns the number of connected shells, treating two
// triangles as connected only when they share an undirected edge.
// Vertex contact alone does not join shells: welded meshes can leave
// separate closed shells touching at single vertices.
func (m *Mesh) ComponentCount() int {
	n := m.TriangleCount()
	if n == 0 {
		return 0
	}
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
	}
	var find func(int32) int32
	find = func(i int32) int32 {
		for parent[i] != i {
			parent[i] = parent[parent[i]] // path halving
			i = parent[i]
		}
		return i
	}
	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	type edge struct{ a, b uint32 }
	owner := make(map[edge]int32, n*3/2)
	for t := 0; t < n; t++ {
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		for _, e := range [3]edge{{i0, i1}, {i1, i2}, {i2, i0}} {
			if e.a > e.b {
				e.a, e.b = e.b, e.a
			}
			if o, ok := owner[e]; ok {
				union(int32(t), o)
			} else {
				owner[e] = int32(t)
			}
		}
	}

	count := 0
	for i := range parent {
		if find(int32(i)) == int32(i) {
			count++
		}
	}
	return count
}
