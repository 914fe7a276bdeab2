package generator

import (
	"context"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/mesher"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// generateMicrofluidic builds the channel network as a solid and
// subtracts it from the enclosing block, leaving negative-space
// cavities. The layout runs along X: inlet ports on the x=0 face feed a
// junction, chambers sit on the center line, and the last chamber fans
// out to outlet ports on the far face. Port channels start outside the
// block so the carve opens through the wall.
func generateMicrofluidic(ctx context.Context, p *scaffold.MicrofluidicParams) (*geom.Manifold, error) {
	bx, by, bz := p.BlockMM[0], p.BlockMM[1], p.BlockMM[2]
	cr := p.ChannelDiameterMM / 2
	midZ := bz / 2

	if p.ChamberDiameterMM >= by || p.ChamberDiameterMM >= bz {
		return nil, fmt.Errorf("%w: chamber diameter %g does not fit block %gx%gx%g",
			scaffold.ErrDegenerateGeometry, p.ChamberDiameterMM, bx, by, bz)
	}

	// Chamber centers spread along the middle of the block. With zero
	// chambers the junctions connect directly.
	nStops := p.Chambers
	if nStops == 0 {
		nStops = 1
	}
	stops := make([]v3.Vec, nStops)
	for i := range stops {
		x := bx * float64(i+1) / float64(nStops+1)
		stops[i] = v3.Vec{X: x, Y: by / 2, Z: midZ}
	}

	var negative []sdf.SDF3
	channel := func(a, b v3.Vec) {
		negative = append(negative, &capsuleField{a: a, b: b, r: cr})
	}

	// Inlet ports to the first stop.
	for i := 0; i < p.Inlets; i++ {
		y := by * float64(i+1) / float64(p.Inlets+1)
		channel(v3.Vec{X: -cr * 2, Y: y, Z: midZ}, stops[0])
	}
	// Chamber chain.
	for i := 0; i+1 < len(stops); i++ {
		channel(stops[i], stops[i+1])
	}
	if p.Chambers > 0 {
		for _, s := range stops {
			negative = append(negative, &sphereField{c: s, r: p.ChamberDiameterMM / 2})
		}
	}
	// Last stop to outlet ports.
	for i := 0; i < p.Outlets; i++ {
		y := by * float64(i+1) / float64(p.Outlets+1)
		channel(stops[len(stops)-1], v3.Vec{X: bx + cr*2, Y: y, Z: midZ})
	}

	block, err := sdf.Box3D(v3.Vec{X: bx, Y: by, Z: bz}, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: block: %v", scaffold.ErrDegenerateGeometry, err)
	}
	// Box3D centers at the origin; shift to a min-corner origin so the
	// channel coordinates above read naturally.
	block = sdf.Transform3D(block, sdf.Translate3d(v3.Vec{X: bx / 2, Y: by / 2, Z: bz / 2}))

	carved := sdf.Difference3D(block, balancedUnion(negative))
	man, err := mesher.Solid(ctx, carved, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("microfluidic block: %w", err)
	}
	return man, nil
}
