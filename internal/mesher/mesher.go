// Package mesher converts signed distance fields to welded triangle
// meshes using marching cubes, with cooperative cancellation.
package mesher

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// pollInterval is how many field evaluations pass between deadline
// checks. One marching cubes z-slab at typical resolutions is a few
// thousand samples, so cancellation lands on slab boundaries.
const pollInterval = 4096

// cancelField wraps an SDF and polls the context every pollInterval
// evaluations. Once the deadline passes it records the fact and returns
// a constant positive distance, which empties the remaining surface and
// lets the renderer finish quickly; the partial result is discarded by
// the caller.
type cancelField struct {
	s        sdf.SDF3
	ctx      context.Context
	count    atomic.Int64
	canceled atomic.Bool
}

func (f *cancelField) Evaluate(p v3.Vec) float64 {
	if f.canceled.Load() {
		return 1.0
	}
	if f.count.Add(1)%pollInterval == 0 && f.ctx.Err() != nil {
		f.canceled.Store(true)
		return 1.0
	}
	return f.s.Evaluate(p)
}

func (f *cancelField) BoundingBox() sdf.Box3 {
	return f.s.BoundingBox()
}

// March extracts the isosurface of s as a welded triangle mesh. cells is
// the marching cubes cell count along the longest bounding box axis. A
// context deadline aborts between sample batches with ErrTimeout and no
// partial mesh.
func March(ctx context.Context, s sdf.SDF3, cells int) (*geom.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
	}
	field := &cancelField{s: s, ctx: ctx}
	triangles := render.ToTriangles(field, render.NewMarchingCubesUniform(cells))
	if field.canceled.Load() {
		return nil, fmt.Errorf("%w: marching cubes aborted at %d samples",
			scaffold.ErrTimeout, field.count.Load())
	}

	mesh := geom.NewMesh(len(triangles)*3, len(triangles))
	for _, t := range triangles {
		mesh.AddTriangle(t[0], t[1], t[2])
	}
	return geom.Weld(mesh, geom.Eps), nil
}

// Solid marches s and seals the result as a manifold. An empty or
// non-watertight extraction is reported as degenerate geometry.
func Solid(ctx context.Context, s sdf.SDF3, cells int) (*geom.Manifold, error) {
	mesh, err := March(ctx, s, cells)
	if err != nil {
		return nil, err
	}
	man, err := geom.Seal(mesh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scaffold.ErrDegenerateGeometry, err)
	}
	return man, nil
}
