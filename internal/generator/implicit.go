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

// tpmsField is the implicit shell of a triply periodic minimal surface:
// the isosurface band |f(p)| <= thickness, clipped to the scaffold box.
// The clip is a hard max against the box distance, so the shell is
// closed at the boundary.
type tpmsField struct {
	kind      scaffold.Kind
	omega     float64 // 2π / cell size
	thickness float64 // band half-width in field units
	half      v3.Vec  // box half-extents
}

func (f *tpmsField) Evaluate(p v3.Vec) float64 {
	x, y, z := p.X*f.omega, p.Y*f.omega, p.Z*f.omega
	var v float64
	switch f.kind {
	case scaffold.KindGyroid:
		v = math.Sin(x)*math.Cos(y) + math.Sin(y)*math.Cos(z) + math.Sin(z)*math.Cos(x)
	case scaffold.KindSchwarzP:
		v = math.Cos(x) + math.Cos(y) + math.Cos(z)
	case scaffold.KindSchwarzD:
		v = math.Sin(x)*math.Sin(y)*math.Sin(z) +
			math.Sin(x)*math.Cos(y)*math.Cos(z) +
			math.Cos(x)*math.Sin(y)*math.Cos(z) +
			math.Cos(x)*math.Cos(y)*math.Sin(z)
	}
	shell := math.Abs(v) - f.thickness

	// Signed distance to the box, intersected with the shell.
	q := v3.Vec{
		X: math.Abs(p.X) - f.half.X,
		Y: math.Abs(p.Y) - f.half.Y,
		Z: math.Abs(p.Z) - f.half.Z,
	}
	box := math.Max(q.X, math.Max(q.Y, q.Z))
	return math.Max(shell, box)
}

func (f *tpmsField) BoundingBox() sdf.Box3 {
	pad := v3.Vec{X: 1, Y: 1, Z: 1}
	return sdf.Box3{Min: f.half.MulScalar(-1).Sub(pad), Max: f.half.Add(pad)}
}

// tpmsThickness maps target porosity to the field-space band half-width.
// The TPMS field values span roughly [-fieldMax, fieldMax] and the solid
// fraction of the band grows close to linearly with its width, so the
// wall thickness is (1 - porosity) of the half-range.
func tpmsThickness(kind scaffold.Kind, porosity float64) float64 {
	fieldMax := 1.5
	if kind == scaffold.KindSchwarzP {
		fieldMax = 3.0
	}
	return (1 - porosity) * fieldMax / 2
}

// generateTPMS samples the implicit field over the scaffold box and
// extracts the shell with marching cubes. Triangle count grows roughly
// cubically with Resolution; preview mode caps it upstream.
func generateTPMS(ctx context.Context, kind scaffold.Kind, p *scaffold.TPMSParams) (*geom.Manifold, error) {
	field := &tpmsField{
		kind:      kind,
		omega:     2 * math.Pi / p.CellSizeMM,
		thickness: tpmsThickness(kind, p.Porosity),
		half: v3.Vec{
			X: p.DimensionsMM[0] / 2,
			Y: p.DimensionsMM[1] / 2,
			Z: p.DimensionsMM[2] / 2,
		},
	}
	man, err := mesher.Solid(ctx, field, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("%s shell: %w", kind, err)
	}
	return man, nil
}
