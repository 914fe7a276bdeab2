package generator

import (
	"context"
	"fmt"
	"math"
	"runtime"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/csg"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// strut is one lattice edge in cell-local coordinates (corners at 0/1,
// centers at 0.5).
type strut struct {
	a, b v3.Vec
}

// cellStruts returns the unit-cell edge set for a lattice topology.
// parity selects the tetrahedral orientation of gyroid-strut cells so
// neighboring cells connect.
func cellStruts(cell scaffold.LatticeCell, parity int) []strut {
	corners := make([]v3.Vec, 8)
	for i := 0; i < 8; i++ {
		corners[i] = v3.Vec{X: float64(i & 1), Y: float64((i >> 1) & 1), Z: float64((i >> 2) & 1)}
	}
	center := v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}

	// The 12 cube edges shared by all grid-aligned topologies.
	cube := []strut{
		{corners[0], corners[1]}, {corners[2], corners[3]}, {corners[4], corners[5]}, {corners[6], corners[7]},
		{corners[0], corners[2]}, {corners[1], corners[3]}, {corners[4], corners[6]}, {corners[5], corners[7]},
		{corners[0], corners[4]}, {corners[1], corners[5]}, {corners[2], corners[6]}, {corners[3], corners[7]},
	}

	switch cell {
	case scaffold.CellCubic:
		return cube
	case scaffold.CellBodyCentered:
		out := cube
		for i := 0; i < 8; i++ {
			out = append(out, strut{center, corners[i]})
		}
		return out
	case scaffold.CellFaceCentered:
		out := cube
		faces := []struct {
			c       v3.Vec
			corners [4]int
		}{
			{v3.Vec{X: 0.5, Y: 0.5, Z: 0}, [4]int{0, 1, 2, 3}},
			{v3.Vec{X: 0.5, Y: 0.5, Z: 1}, [4]int{4, 5, 6, 7}},
			{v3.Vec{X: 0.5, Y: 0, Z: 0.5}, [4]int{0, 1, 4, 5}},
			{v3.Vec{X: 0.5, Y: 1, Z: 0.5}, [4]int{2, 3, 6, 7}},
			{v3.Vec{X: 0, Y: 0.5, Z: 0.5}, [4]int{0, 2, 4, 6}},
			{v3.Vec{X: 1, Y: 0.5, Z: 0.5}, [4]int{1, 3, 5, 7}},
		}
		for _, f := range faces {
			for _, ci := range f.corners {
				out = append(out, strut{f.c, corners[ci]})
			}
		}
		return out
	case scaffold.CellGyroidStrut:
		// Skeletal gyroid approximation: the cell center connects to
		// four alternating corners, mirrored in odd cells.
		even := []int{0, 3, 5, 6}
		odd := []int{1, 2, 4, 7}
		pick := even
		if parity != 0 {
			pick = odd
		}
		out := make([]strut, 0, 4)
		for _, ci := range pick {
			out = append(out, strut{center, corners[ci]})
		}
		return out
	default:
		return nil
	}
}

// generateLattice replicates the unit cell across the bounding box,
// meshes every strut as a tapered tube, and unions the struts into one
// solid through the balanced merge tree.
func generateLattice(ctx context.Context, p *scaffold.LatticeParams) (*geom.Manifold, error) {
	nx := int(math.Ceil(p.DimensionsMM[0] / p.CellSizeMM))
	ny := int(math.Ceil(p.DimensionsMM[1] / p.CellSizeMM))
	nz := int(math.Ceil(p.DimensionsMM[2] / p.CellSizeMM))

	// Collect unique struts in world space. Neighboring cells share
	// edges, so a quantized endpoint key dedupes them.
	type strutKey struct{ ax, ay, az, bx, by, bz int64 }
	q := func(v float64) int64 { return int64(math.Round(v / geom.Eps)) }
	key := func(a, b v3.Vec) strutKey {
		k := strutKey{q(a.X), q(a.Y), q(a.Z), q(b.X), q(b.Y), q(b.Z)}
		flipped := strutKey{k.bx, k.by, k.bz, k.ax, k.ay, k.az}
		if flipped.ax < k.ax || (flipped.ax == k.ax && flipped.ay < k.ay) ||
			(flipped.ax == k.ax && flipped.ay == k.ay && flipped.az < k.az) {
			return flipped
		}
		return k
	}

	seen := make(map[strutKey]struct{})
	var world []strut
	for iz := 0; iz < nz; iz++ {
		for iy := 0; iy < ny; iy++ {
			for ix := 0; ix < nx; ix++ {
				origin := v3.Vec{
					X: float64(ix) * p.CellSizeMM,
					Y: float64(iy) * p.CellSizeMM,
					Z: float64(iz) * p.CellSizeMM,
				}
				for _, s := range cellStruts(p.Cell, (ix+iy+iz)%2) {
					a := origin.Add(s.a.MulScalar(p.CellSizeMM))
					b := origin.Add(s.b.MulScalar(p.CellSizeMM))
					k := key(a, b)
					if _, ok := seen[k]; ok {
						continue
					}
					seen[k] = struct{}{}
					world = append(world, strut{a, b})
				}
			}
		}
	}
	if len(world) == 0 {
		return nil, fmt.Errorf("%w: lattice produced no struts", scaffold.ErrDegenerateGeometry)
	}

	// Mesh struts in parallel; tube generation is independent per strut.
	solids := make([]*geom.Manifold, len(world))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	radius := p.StrutDiameterMM / 2
	for i, s := range world {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
			}
			man, err := geom.Seal(TubeMesh(s.a, s.b, radius, radius, p.Segments))
			if err != nil {
				return fmt.Errorf("%w: strut %d: %v", scaffold.ErrDegenerateGeometry, i, err)
			}
			solids[i] = man
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cells := latticeCells(p)
	return csg.UnionAll(ctx, solids, csg.Options{Cells: cells})
}

// latticeCells picks a marching cubes resolution that resolves the strut
// cross section: at least four cells across a strut diameter, capped to
// keep the sample grid tractable.
func latticeCells(p *scaffold.LatticeParams) int {
	maxDim := math.Max(p.DimensionsMM[0], math.Max(p.DimensionsMM[1], p.DimensionsMM[2]))
	cells := int(math.Ceil(maxDim / (p.StrutDiameterMM / 4)))
	if cells < 32 {
		cells = 32
	}
	if cells > 192 {
		cells = 192
	}
	return cells
}
