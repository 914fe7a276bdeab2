package tiling

import (
	"context"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/csg"
	"github.com/rsiegemit/MorphoStruct-sub001/internal/generator"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// Tile maps a sealed base tile onto the target surface. Surface mode
// returns one conformal shell centered on the surface; volume mode
// nests layers inward and unions them, with radial connectors, into a
// single solid.
func Tile(ctx context.Context, base *geom.Manifold, req Request) (*geom.Manifold, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: base tile is not a sealed manifold", scaffold.ErrDegenerateGeometry)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	frame, err := newTileFrame(base)
	if err != nil {
		return nil, err
	}
	if frame.HalfThickness() >= req.Surface.MinOffsetRadius() {
		return nil, fmt.Errorf("%w: tile half-thickness %g mm exceeds the surface curvature radius %g mm",
			scaffold.ErrDegenerateGeometry, frame.HalfThickness(), req.Surface.MinOffsetRadius())
	}
	if req.Mode == ModeSurface {
		w, err := mapLayer(ctx, base, frame, &req, 0)
		if err != nil {
			return nil, err
		}
		shell, err := sealLayer(ctx, w, &req)
		if err != nil {
			return nil, err
		}
		return fuseShell(ctx, shell, frame)
	}
	return tileVolume(ctx, base, frame, &req)
}

// fuseShell merges a stitched shell into one connected solid. Flat-wall
// tiles open into a single shell during stitching, when the wall
// triangulations of neighboring cells cancel pairwise. Tiles whose wall
// triangulations are incongruent, such as marching-cubes output, keep
// every cell as its own closed component instead; those shells are
// re-extracted through their distance field, which dissolves the
// zero-thickness walls between touching components.
func fuseShell(ctx context.Context, shell *geom.Manifold, frame *tileFrame) (*geom.Manifold, error) {
	if shell.Mesh().ComponentCount() == 1 {
		return shell, nil
	}
	fused, err := csg.Fuse(ctx, shell, csg.Options{Cells: surfaceCells(shell, frame)})
	if err != nil {
		return nil, fmt.Errorf("fusing tiled shell: %w", err)
	}
	return fused, nil
}

// surfaceCells picks the re-extraction resolution for a fused shell:
// enough cells to resolve features a quarter of the base tile's
// smallest dimension across the shell's full extent.
func surfaceCells(shell *geom.Manifold, frame *tileFrame) int {
	bmin, bmax := shell.Bounds()
	size := bmax.Sub(bmin)
	span := math.Max(size.X, math.Max(size.Y, size.Z))
	feature := math.Min(frame.size.X, math.Min(frame.size.Y, frame.size.Z)) / 4
	cells := int(math.Ceil(span / feature))
	if cells < 64 {
		return 64
	}
	if cells > 256 {
		return 256
	}
	return cells
}

// tileVolume maps one shell per layer, nesting inward from the surface,
// adds radial connector struts and unions everything into one solid.
func tileVolume(ctx context.Context, base *geom.Manifold, frame *tileFrame, req *Request) (*geom.Manifold, error) {
	depth := float64(req.NumLayers-1)*req.LayerSpacingMM + frame.HalfThickness()
	if depth >= req.Surface.MinOffsetRadius() {
		return nil, fmt.Errorf("%w: %d layers at %g mm spacing reach %g mm below the surface, past its %g mm curvature radius",
			scaffold.ErrDegenerateGeometry, req.NumLayers, req.LayerSpacingMM, depth, req.Surface.MinOffsetRadius())
	}

	solids := make([]*geom.Manifold, 0, req.NumLayers+16)
	for l := 0; l < req.NumLayers; l++ {
		w, err := mapLayer(ctx, base, frame, req, -float64(l)*req.LayerSpacingMM)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		solid, err := sealLayer(ctx, w, req)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		solids = append(solids, solid)
	}

	connectors, err := layerConnectors(frame, req)
	if err != nil {
		return nil, err
	}
	solids = append(solids, connectors...)

	return csg.UnionAll(ctx, solids, csg.Options{Cells: volumeCells(req)})
}

// connectorLimit caps the number of radial struts joining the layers.
const connectorLimit = 16

// layerConnectors builds radial struts spanning from below the deepest
// layer to above the outermost so the union is a single connected
// solid. Struts sit at a strided subset of cell centers.
func layerConnectors(frame *tileFrame, req *Request) ([]*geom.Manifold, error) {
	stride := 1
	for (req.TilesU/stride)*(req.TilesV/stride) > connectorLimit {
		stride++
	}
	radius := math.Min(req.LayerSpacingMM/3, frame.HalfThickness())
	inner := -float64(req.NumLayers-1)*req.LayerSpacingMM - frame.HalfThickness()/2
	outer := frame.HalfThickness() / 2

	var out []*geom.Manifold
	for j := 0; j < req.TilesV; j += stride {
		for i := 0; i < req.TilesU; i += stride {
			u := (float64(i) + 0.5) / float64(req.TilesU)
			v := (float64(j) + 0.5) / float64(req.TilesV)
			p := req.Surface.At(u, v)
			n := req.Surface.Normal(u, v)
			path := []v3.Vec{p.Add(n.MulScalar(inner)), p.Add(n.MulScalar(outer))}
			tube := generator.SweepTube(path, []float64{radius, radius}, 12)
			solid, err := geom.Seal(tube)
			if err != nil {
				return nil, fmt.Errorf("%w: layer connector at (%g,%g): %v", scaffold.ErrDegenerateGeometry, u, v, err)
			}
			out = append(out, solid)
		}
	}
	return out, nil
}

// volumeCells sizes the union re-extraction grid so the layer spacing
// stays resolved.
func volumeCells(req *Request) int {
	span := 2 * (req.Surface.MinOffsetRadius() + 4*req.LayerSpacingMM)
	switch req.Surface.Shape {
	case ShapeTorus:
		span = 2 * (req.Surface.Major + req.Surface.Minor)
	case ShapeEllipsoid, ShapeSuperellipsoid:
		span = 2 * math.Max(req.Surface.RX, math.Max(req.Surface.RY, req.Surface.RZ))
	case ShapeSphere:
		span = 2 * req.Surface.Radius
	case ShapeCylinder:
		span = math.Max(2*req.Surface.Radius, req.Surface.Height)
	}
	cells := int(math.Ceil(span / (req.LayerSpacingMM / 2)))
	if cells < 64 {
		return 64
	}
	if cells > 256 {
		return 256
	}
	return cells
}
