package geom

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Manifold wraps a Mesh that passed the watertightness audit: every edge
// is shared by exactly two triangles with opposite direction (consistent
// winding) and the enclosed volume is nonzero. A Manifold is immutable;
// transformations return a new one.
type Manifold struct {
	mesh *Mesh
}

// Seal audits a mesh and wraps it as a Manifold. The mesh is welded
// first so coincident-but-duplicated vertices do not break the edge
// count. Seal does not repair anything; a mesh that fails the audit is
// rejected with a descriptive error.
func Seal(m *Mesh) (*Manifold, error) {
	if m.IsEmpty() {
		return nil, fmt.Errorf("empty mesh")
	}
	if err := m.CheckIndices(); err != nil {
		return nil, err
	}
	welded := Weld(m, Eps)
	if err := auditEdges(welded); err != nil {
		return nil, err
	}
	vol := welded.SignedVolume()
	if vol < Eps {
		return nil, fmt.Errorf("enclosed volume %g is not positive", vol)
	}
	return &Manifold{mesh: welded}, nil
}

// auditEdges checks that every directed edge appears exactly once, which
// for an undirected edge means two incident triangles with opposite
// winding.
func auditEdges(m *Mesh) error {
	type edge struct{ a, b uint32 }
	directed := make(map[edge]int, len(m.Indices))
	for t := 0; t < m.TriangleCount(); t++ {
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		if i0 == i1 || i1 == i2 || i2 == i0 {
			return fmt.Errorf("triangle %d is degenerate", t)
		}
		directed[edge{i0, i1}]++
		directed[edge{i1, i2}]++
		directed[edge{i2, i0}]++
	}
	for e, n := range directed {
		if n != 1 {
			return fmt.Errorf("edge (%d,%d) has %d same-direction triangles, want 1", e.a, e.b, n)
		}
		if directed[edge{e.b, e.a}] != 1 {
			return fmt.Errorf("edge (%d,%d) is a boundary or inconsistently wound edge", e.a, e.b)
		}
	}
	return nil
}

// Mesh returns the underlying mesh. Callers must not mutate it; use
// Clone for a private copy.
func (m *Manifold) Mesh() *Mesh {
	return m.mesh
}

// Clone returns a deep copy of the underlying mesh.
func (m *Manifold) Clone() *Mesh {
	return m.mesh.Clone()
}

// TriangleCount returns the number of triangles.
func (m *Manifold) TriangleCount() int {
	return m.mesh.TriangleCount()
}

// Volume returns the enclosed volume in mm³.
func (m *Manifold) Volume() float64 {
	return m.mesh.SignedVolume()
}

// SurfaceArea returns the surface area in mm².
func (m *Manifold) SurfaceArea() float64 {
	return m.mesh.SurfaceArea()
}

// Bounds returns the axis-aligned bounding box.
func (m *Manifold) Bounds() (min, max v3.Vec) {
	return m.mesh.Bounds()
}

// Transform applies f to every vertex and re-seals the result. The
// transform must be orientation-preserving or the winding audit fails.
func (m *Manifold) Transform(f func(v3.Vec) v3.Vec) (*Manifold, error) {
	return Seal(m.mesh.Transform(f))
}

// Translate returns the manifold moved by d. Translation cannot break
// manifoldness, so the audit is skipped.
func (m *Manifold) Translate(d v3.Vec) *Manifold {
	return &Manifold{mesh: m.mesh.Translate(d)}
}
