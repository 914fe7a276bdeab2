package csg

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/spatial"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
)

// meshField adapts a sealed manifold to the sdf.SDF3 interface: the
// unsigned distance comes from the spatial grid's closest-triangle
// search and the sign from ray-crossing parity.
type meshField struct {
	grid *spatial.Grid
	bb   sdf.Box3
}

// Field wraps a manifold as a signed distance field. The bounding box is
// padded by one grid cell so marching cubes always samples an outside
// shell around the solid.
func Field(m *geom.Manifold) sdf.SDF3 {
	grid := spatial.NewGrid(m.Mesh())
	min, max := m.Bounds()
	pad := grid.CellSize()
	padVec := v3.Vec{X: pad, Y: pad, Z: pad}
	return &meshField{
		grid: grid,
		bb:   sdf.Box3{Min: min.Sub(padVec), Max: max.Add(padVec)},
	}
}

func (f *meshField) Evaluate(p v3.Vec) float64 {
	d := f.grid.Distance(p)
	if f.grid.Inside(p) {
		return -d
	}
	return d
}

func (f *meshField) BoundingBox() sdf.Box3 {
	return f.bb
}
