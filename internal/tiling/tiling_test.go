package tiling

import (
	"context"
	"errors"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/generator"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// boxTile is a solid block base tile. Its footprint spans 2x2 mm and it
// is 1 mm thick, so the mapped shell is 1 mm thick along the surface
// normal.
func boxTile(t *testing.T) *geom.Manifold {
	t.Helper()
	m, err := geom.Seal(generator.BoxMesh(v3.Vec{X: -1, Y: -1, Z: -0.5}, v3.Vec{X: 1, Y: 1, Z: 0.5}))
	if err != nil {
		t.Fatalf("sealing box tile: %v", err)
	}
	return m
}

func TestRequestValidate(t *testing.T) {
	sphere := Surface{Shape: ShapeSphere, Radius: 10}
	cases := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"surface mode", Request{Surface: sphere, Mode: ModeSurface, TilesU: 8, TilesV: 4}, true},
		{"volume mode", Request{Surface: sphere, Mode: ModeVolume, TilesU: 4, TilesV: 2, NumLayers: 3, LayerSpacingMM: 1.5}, true},
		{"zero tiles", Request{Surface: sphere, Mode: ModeSurface, TilesU: 0, TilesV: 4}, false},
		{"excessive tiles", Request{Surface: sphere, Mode: ModeSurface, TilesU: 4, TilesV: 300}, false},
		{"bad mode", Request{Surface: sphere, Mode: "shrinkwrap", TilesU: 4, TilesV: 4}, false},
		{"volume without layers", Request{Surface: sphere, Mode: ModeVolume, TilesU: 4, TilesV: 4, NumLayers: 1, LayerSpacingMM: 1}, false},
		{"volume without spacing", Request{Surface: sphere, Mode: ModeVolume, TilesU: 4, TilesV: 4, NumLayers: 3}, false},
		{"negative refine bound", Request{Surface: sphere, Mode: ModeSurface, TilesU: 4, TilesV: 4, RefineEdgeLengthMM: -1}, false},
		{"bad surface", Request{Surface: Surface{Shape: ShapeSphere}, Mode: ModeSurface, TilesU: 4, TilesV: 4}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected an error")
				}
				if !errors.Is(err, scaffold.ErrInvalidParameter) {
					t.Fatalf("error %v is not an invalid-parameter error", err)
				}
			}
		})
	}
}

// mapCells runs the per-cell mapping the way mapLayer does, returning
// the raw cells before stitching.
func mapCells(t *testing.T, base *geom.Manifold, req *Request) []*workMesh {
	t.Helper()
	frame, err := newTileFrame(base)
	if err != nil {
		t.Fatalf("tile frame: %v", err)
	}
	cells := make([]*workMesh, req.TilesU*req.TilesV)
	for j := 0; j < req.TilesV; j++ {
		for i := 0; i < req.TilesU; i++ {
			cm := newCellMap(&req.Surface,
				float64(i)/float64(req.TilesU), float64(i+1)/float64(req.TilesU),
				vGrid(j, req), vGrid(j+1, req))
			w, err := mapCell(context.Background(), base.Mesh(), frame, cm, 0)
			if err != nil {
				t.Fatalf("cell (%d,%d): %v", i, j, err)
			}
			cells[j*req.TilesU+i] = w
		}
	}
	return cells
}

// Every vertex one cell places on a shared boundary must have a
// counterpart from the neighboring cell within tolerance.
func TestSeamCoincidence(t *testing.T) {
	base := boxTile(t)
	for _, surf := range []Surface{
		{Shape: ShapeTorus, Major: 10, Minor: 3},
		{Shape: ShapeSphere, Radius: 10},
		{Shape: ShapeCylinder, Radius: 5, Height: 20},
	} {
		req := &Request{Surface: surf, Mode: ModeSurface, TilesU: 4, TilesV: 4}
		cells := mapCells(t, base, req)
		if err := auditSeams(cells, req); err != nil {
			t.Fatalf("%s: seam audit: %v", surf.Shape, err)
		}

		// Direct pairwise check along the boundary between cells (0,0)
		// and (1,0).
		left := boundaryVerts(cells[0], 0, 0, req, 1)
		right := boundaryVerts(cells[1], 1, 0, req, 1)
		if len(left) == 0 || len(left) != len(right) {
			t.Fatalf("%s: boundary vertex counts %d vs %d", surf.Shape, len(left), len(right))
		}
		for _, p := range left {
			if !hasCounterpart(right, p) {
				t.Fatalf("%s: boundary vertex %v has no counterpart in the adjacent cell", surf.Shape, p)
			}
		}
	}
}

func boundaryVerts(w *workMesh, i, j int, req *Request, line int) []v3.Vec {
	var out []v3.Vec
	for vi, a := range w.attr {
		if uLineIndex(a.u, i, req) == line {
			out = append(out, w.pos[vi])
		}
	}
	return out
}

func hasCounterpart(list []v3.Vec, p v3.Vec) bool {
	for _, q := range list {
		if q.Sub(p).Length() <= geom.Eps {
			return true
		}
	}
	return false
}

// A deliberately displaced boundary vertex must fail the seam audit
// loudly instead of producing a cracked shell.
func TestSeamAuditDetectsCrack(t *testing.T) {
	base := boxTile(t)
	req := &Request{Surface: Surface{Shape: ShapeCylinder, Radius: 5, Height: 20}, Mode: ModeSurface, TilesU: 4, TilesV: 2}
	cells := mapCells(t, base, req)
	if err := auditSeams(cells, req); err != nil {
		t.Fatalf("clean cells: %v", err)
	}
	for vi, a := range cells[1].attr {
		if uLineIndex(a.u, 1, req) == 1 {
			cells[1].pos[vi] = cells[1].pos[vi].Add(v3.Vec{X: 0.001})
			break
		}
	}
	err := auditSeams(cells, req)
	if !errors.Is(err, scaffold.ErrTilingSeam) {
		t.Fatalf("got %v, want a tiling seam error", err)
	}
}

func TestTileSurfaceMode(t *testing.T) {
	base := boxTile(t)
	for _, surf := range []Surface{
		{Shape: ShapeSphere, Radius: 10},
		{Shape: ShapeTorus, Major: 10, Minor: 3},
		{Shape: ShapeCylinder, Radius: 6, Height: 25},
		{Shape: ShapeEllipsoid, RX: 8, RY: 10, RZ: 12},
	} {
		req := Request{Surface: surf, Mode: ModeSurface, TilesU: 8, TilesV: 4}
		got, err := Tile(context.Background(), base, req)
		if err != nil {
			t.Fatalf("%s: %v", surf.Shape, err)
		}
		if got.Volume() <= 0 {
			t.Fatalf("%s: volume %g, want positive", surf.Shape, got.Volume())
		}
		// The shell must stay within half a tile thickness of the
		// surface: bound the result by the circumscribing radius plus
		// slack for facet chords.
		min, max := got.Bounds()
		limit := surf.MinOffsetRadius() + 20 // generous outer bound
		for _, c := range []float64{min.X, min.Y, min.Z, max.X, max.Y, max.Z} {
			if c < -limit || c > limit {
				t.Fatalf("%s: bounds [%v %v] escape the target surface", surf.Shape, min, max)
			}
		}
	}
}

// A single periodic cell must wrap around the shape and close on
// itself.
func TestTileSingleCellClosure(t *testing.T) {
	base := gyroidTile(t, 16)
	req := Request{Surface: Surface{Shape: ShapeTorus, Major: 10, Minor: 4}, Mode: ModeSurface, TilesU: 1, TilesV: 1}
	got, err := Tile(context.Background(), base, req)
	if err != nil {
		t.Fatalf("tile: %v", err)
	}
	if got.Volume() <= 0 {
		t.Fatalf("volume %g, want positive", got.Volume())
	}
}

func TestTileVolumeMode(t *testing.T) {
	base := boxTile(t)
	surf := Surface{Shape: ShapeSphere, Radius: 10}
	surface, err := Tile(context.Background(), base, Request{Surface: surf, Mode: ModeSurface, TilesU: 4, TilesV: 2})
	if err != nil {
		t.Fatalf("surface mode: %v", err)
	}
	volume, err := Tile(context.Background(), base, Request{
		Surface: surf, Mode: ModeVolume, TilesU: 4, TilesV: 2,
		NumLayers: 2, LayerSpacingMM: 2,
	})
	if err != nil {
		t.Fatalf("volume mode: %v", err)
	}
	if volume.Volume() <= 0 {
		t.Fatalf("volume %g, want positive", volume.Volume())
	}
	if volume.Volume() <= surface.Volume() {
		t.Fatalf("two nested layers enclose %g mm^3, single shell %g mm^3; want more",
			volume.Volume(), surface.Volume())
	}
}

func TestTileErrors(t *testing.T) {
	base := boxTile(t)
	sphere := Surface{Shape: ShapeSphere, Radius: 10}

	t.Run("nil base", func(t *testing.T) {
		_, err := Tile(context.Background(), nil, Request{Surface: sphere, Mode: ModeSurface, TilesU: 4, TilesV: 4})
		if !errors.Is(err, scaffold.ErrDegenerateGeometry) {
			t.Fatalf("got %v, want degenerate geometry", err)
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := Tile(context.Background(), base, Request{Surface: sphere, Mode: ModeSurface, TilesU: 0, TilesV: 4})
		if !errors.Is(err, scaffold.ErrInvalidParameter) {
			t.Fatalf("got %v, want invalid parameter", err)
		}
	})

	t.Run("layers past the center", func(t *testing.T) {
		_, err := Tile(context.Background(), base, Request{
			Surface: Surface{Shape: ShapeSphere, Radius: 5}, Mode: ModeVolume,
			TilesU: 4, TilesV: 2, NumLayers: 3, LayerSpacingMM: 2.5,
		})
		if !errors.Is(err, scaffold.ErrDegenerateGeometry) {
			t.Fatalf("got %v, want degenerate geometry", err)
		}
	})

	t.Run("tile thicker than curvature radius", func(t *testing.T) {
		thick, err := geom.Seal(generator.BoxMesh(v3.Vec{X: -1, Y: -1, Z: -2}, v3.Vec{X: 1, Y: 1, Z: 2}))
		if err != nil {
			t.Fatalf("sealing tile: %v", err)
		}
		_, err = Tile(context.Background(), thick, Request{Surface: Surface{Shape: ShapeSphere, Radius: 1}, Mode: ModeSurface, TilesU: 4, TilesV: 4})
		if !errors.Is(err, scaffold.ErrDegenerateGeometry) {
			t.Fatalf("got %v, want degenerate geometry", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Tile(ctx, base, Request{Surface: sphere, Mode: ModeSurface, TilesU: 4, TilesV: 4})
		if !errors.Is(err, scaffold.ErrTimeout) {
			t.Fatalf("got %v, want timeout", err)
		}
	})
}

// gyroidTile generates a small periodic gyroid block to use as a base
// tile.
func gyroidTile(t *testing.T, resolution int) *geom.Manifold {
	t.Helper()
	res, err := generator.Generate(context.Background(), scaffold.Params{
		Kind: scaffold.KindGyroid,
		TPMS: &scaffold.TPMSParams{
			DimensionsMM: [3]float64{3, 3, 3},
			Porosity:     0.5,
			CellSizeMM:   3,
			Resolution:   resolution,
		},
	})
	if err != nil {
		t.Fatalf("generating gyroid tile: %v", err)
	}
	return res.Manifold
}

// Tiling a gyroid tile onto a sphere must produce one connected solid.
// Gyroid cell walls come out of marching cubes with incongruent
// triangulations, so stitching alone leaves one closed shell per cell
// and the result depends on the fuse step merging them.
func TestTileGyroidOnSphere(t *testing.T) {
	base := gyroidTile(t, 24)
	got, err := Tile(context.Background(), base, Request{
		Surface: Surface{Shape: ShapeSphere, Radius: 10}, Mode: ModeSurface,
		TilesU: 8, TilesV: 4,
	})
	if err != nil {
		t.Fatalf("tile: %v", err)
	}
	if got.Volume() <= 0 {
		t.Fatalf("volume %g, want positive", got.Volume())
	}
	if n := got.Mesh().ComponentCount(); n != 1 {
		t.Fatalf("tiled shell has %d disjoint components, want 1", n)
	}
}

// The fuse step only runs when stitching leaves multiple components;
// flat-wall tiles cancel during stitching and keep the refined
// tessellation, so their triangle count grows as the refinement bound
// tightens.
func TestTileRefinementTightensTessellation(t *testing.T) {
	base := boxTile(t)
	prev := 0
	for _, bound := range []float64{1.0, 0.5, 0.2} {
		got, err := Tile(context.Background(), base, Request{
			Surface: Surface{Shape: ShapeSphere, Radius: 10}, Mode: ModeSurface,
			TilesU: 8, TilesV: 4, RefineEdgeLengthMM: bound,
		})
		if err != nil {
			t.Fatalf("refine %g: %v", bound, err)
		}
		if n := got.Mesh().ComponentCount(); n != 1 {
			t.Fatalf("refine %g: %d components, want 1", bound, n)
		}
		if got.TriangleCount() < prev {
			t.Fatalf("refine %g: triangle count %d dropped below %d", bound, got.TriangleCount(), prev)
		}
		prev = got.TriangleCount()
	}
}

func TestDropOppositePairs(t *testing.T) {
	tris := [][3]uint32{
		{0, 1, 2}, // survives
		{3, 4, 5}, // cancels with its reverse below
		{3, 5, 4},
		{6, 7, 8}, // same winding twice: kept
		{7, 8, 6},
	}
	got := dropOppositePairs(tris)
	if len(got) != 3 {
		t.Fatalf("kept %d triangles, want 3", len(got))
	}
	for _, tri := range got {
		if tri == [3]uint32{3, 4, 5} || tri == [3]uint32{3, 5, 4} {
			t.Fatalf("opposite pair %v survived", tri)
		}
	}
}
