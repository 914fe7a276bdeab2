package generator

import (
	"context"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/mesher"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// gradientProfile interpolates porosity along the normalized gradient
// coordinate t ∈ [0,1]. The exponential profile uses a fixed shape
// constant; the sigmoid is centered at t=0.5 and rescaled to hit the
// endpoints exactly.
func gradientProfile(g scaffold.GradientType, start, end, t float64) float64 {
	var s float64
	switch g {
	case scaffold.GradientLinear:
		s = t
	case scaffold.GradientExponential:
		const k = 3.0
		s = (math.Exp(k*t) - 1) / (math.Exp(k) - 1)
	case scaffold.GradientSigmoid:
		sig := func(x float64) float64 { return 1 / (1 + math.Exp(-10*(x-0.5))) }
		s = (sig(t) - sig(0)) / (sig(1) - sig(0))
	}
	return start + s*(end-start)
}

// PoreDiameter maps local porosity to a pore diameter. The mapping is
// linear with the base size at porosity 0.5, so the diameter at the
// gradient midpoint equals the base size and endpoint diameters scale
// proportionally with the porosity endpoints.
func PoreDiameter(baseMM, porosity float64) float64 {
	return baseMM * 2 * porosity
}

// poreSites returns pore center coordinates along one axis: as many
// sites as fit at exactly the requested spacing, centered in the
// extent. Nil when not even one site fits.
func poreSites(extent, spacing float64) []float64 {
	n := int(extent / spacing)
	if n == 0 {
		return nil
	}
	start := (extent - float64(n-1)*spacing) / 2
	sites := make([]float64, n)
	for i := range sites {
		sites[i] = start + float64(i)*spacing
	}
	return sites
}

// generateGradient subtracts a graded pore grid from a solid block.
func generateGradient(ctx context.Context, p *scaffold.GradientParams) (*geom.Manifold, error) {
	dims := v3.Vec{X: p.DimensionsMM[0], Y: p.DimensionsMM[1], Z: p.DimensionsMM[2]}

	axisCoord := func(pos v3.Vec) (float64, float64) {
		switch p.Axis {
		case scaffold.AxisX:
			return pos.X, dims.X
		case scaffold.AxisY:
			return pos.Y, dims.Y
		default:
			return pos.Z, dims.Z
		}
	}

	sx := poreSites(dims.X, p.GridSpacingMM)
	sy := poreSites(dims.Y, p.GridSpacingMM)
	sz := poreSites(dims.Z, p.GridSpacingMM)
	if len(sx) == 0 || len(sy) == 0 || len(sz) == 0 {
		return nil, fmt.Errorf("%w: grid spacing %g leaves no pore sites in %gx%gx%g",
			scaffold.ErrDegenerateGeometry, p.GridSpacingMM, dims.X, dims.Y, dims.Z)
	}

	var pores []sdf.SDF3
	for _, z := range sz {
		for _, y := range sy {
			for _, x := range sx {
				c := v3.Vec{X: x, Y: y, Z: z}
				coord, extent := axisCoord(c)
				porosity := gradientProfile(p.Gradient, p.StartPorosity, p.EndPorosity, coord/extent)
				d := PoreDiameter(p.PoreBaseSizeMM, porosity)
				pores = append(pores, &sphereField{c: c, r: d / 2})
			}
		}
	}

	block, err := sdf.Box3D(dims, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: block: %v", scaffold.ErrDegenerateGeometry, err)
	}
	block = sdf.Transform3D(block, sdf.Translate3d(dims.MulScalar(0.5)))

	carved := sdf.Difference3D(block, balancedUnion(pores))
	man, err := mesher.Solid(ctx, carved, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("gradient block: %w", err)
	}
	return man, nil
}
