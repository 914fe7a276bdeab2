// Package csg composes manifold solids with boolean operations. Inputs
// are converted to signed distance fields, combined with the sdfx CSG
// operators, and re-extracted with marching cubes, so results are
// watertight by construction. Commutativity and associativity hold up to
// the sampling tolerance; re-ordered inputs produce topologically
// equivalent, not bit-identical, meshes.
package csg

import (
	"context"
	"fmt"

	"github.com/deadsy/sdfx/sdf"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/mesher"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// DefaultCells is the marching cubes resolution used when Options.Cells
// is zero.
const DefaultCells = 96

// Options tune the boolean evaluation.
type Options struct {
	// Cells is the marching cubes cell count along the longest result
	// axis.
	Cells int
}

func (o Options) cells() int {
	if o.Cells <= 0 {
		return DefaultCells
	}
	return o.Cells
}

func checkInputs(solids ...*geom.Manifold) error {
	for i, s := range solids {
		if s == nil {
			return fmt.Errorf("%w: operand %d is not a sealed manifold", scaffold.ErrDegenerateGeometry, i)
		}
	}
	return nil
}

// Union returns a ∪ b.
func Union(ctx context.Context, a, b *geom.Manifold, opt Options) (*geom.Manifold, error) {
	if err := checkInputs(a, b); err != nil {
		return nil, err
	}
	return mesher.Solid(ctx, sdf.Union3D(Field(a), Field(b)), opt.cells())
}

// Difference returns a − b.
func Difference(ctx context.Context, a, b *geom.Manifold, opt Options) (*geom.Manifold, error) {
	if err := checkInputs(a, b); err != nil {
		return nil, err
	}
	m, err := mesher.Solid(ctx, sdf.Difference3D(Field(a), Field(b)), opt.cells())
	if err != nil {
		return nil, fmt.Errorf("difference left no solid: %w", err)
	}
	return m, nil
}

// Intersect returns a ∩ b.
func Intersect(ctx context.Context, a, b *geom.Manifold, opt Options) (*geom.Manifold, error) {
	if err := checkInputs(a, b); err != nil {
		return nil, err
	}
	m, err := mesher.Solid(ctx, sdf.Intersect3D(Field(a), Field(b)), opt.cells())
	if err != nil {
		return nil, fmt.Errorf("intersection is empty: %w", err)
	}
	return m, nil
}

// UnionAll unions any number of solids. Fields are composed as a
// balanced binary merge tree, so evaluation depth is O(log n) rather
// than the O(n) chain a left fold would build, and the surface is
// extracted exactly once: no intermediate meshes accumulate triangles.
// The context is checked between merge-tree nodes and between marching
// sample batches.
func UnionAll(ctx context.Context, solids []*geom.Manifold, opt Options) (*geom.Manifold, error) {
	if len(solids) == 0 {
		return nil, fmt.Errorf("%w: union of zero solids", scaffold.ErrDegenerateGeometry)
	}
	if err := checkInputs(solids...); err != nil {
		return nil, err
	}
	if len(solids) == 1 {
		// union([a]) ≡ a.
		clone, err := geom.Seal(solids[0].Clone())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", scaffold.ErrDegenerateGeometry, err)
		}
		return clone, nil
	}

	fields := make([]sdf.SDF3, len(solids))
	for i, s := range solids {
		fields[i] = Field(s)
	}
	tree, err := mergeTree(ctx, fields)
	if err != nil {
		return nil, err
	}
	return mesher.Solid(ctx, tree, opt.cells())
}

// Fuse re-extracts a solid through its own distance field. Touching
// shells in a multi-component solid merge into one surface: the field
// is negative on both sides of a zero-thickness contact wall, so the
// wall disappears from the extracted isosurface.
func Fuse(ctx context.Context, m *geom.Manifold, opt Options) (*geom.Manifold, error) {
	if err := checkInputs(m); err != nil {
		return nil, err
	}
	return mesher.Solid(ctx, Field(m), opt.cells())
}

// mergeTree pairs fields bottom-up into a balanced binary tree.
func mergeTree(ctx context.Context, fields []sdf.SDF3) (sdf.SDF3, error) {
	for len(fields) > 1 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
		}
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
	return fields[0], nil
}
