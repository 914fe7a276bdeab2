package scaffold

import "fmt"

// rangef rejects v outside the closed interval [lo, hi].
func rangef(field string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrInvalidParameter, field, v, lo, hi)
	}
	return nil
}

// rangei rejects v outside the closed interval [lo, hi].
func rangei(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s=%d outside [%d, %d]", ErrInvalidParameter, field, v, lo, hi)
	}
	return nil
}

func dims(field string, d [3]float64) error {
	for i, v := range d {
		if err := rangef(fmt.Sprintf("%s[%d]", field, i), v, 1, 200); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every numeric field against its documented closed
// range. Out-of-range values are rejected, never clamped. The check runs
// before any geometry work starts.
func (p *Params) Validate() error {
	switch p.Kind {
	case KindGyroid, KindSchwarzP, KindSchwarzD:
		t := p.TPMS
		if t == nil {
			return fmt.Errorf("%w: missing tpms parameters for kind %s", ErrInvalidParameter, p.Kind)
		}
		if err := dims("dimensions_mm", t.DimensionsMM); err != nil {
			return err
		}
		if err := rangef("porosity", t.Porosity, 0.1, 0.95); err != nil {
			return err
		}
		if err := rangef("cell_size_mm", t.CellSizeMM, 0.5, 20); err != nil {
			return err
		}
		return rangei("resolution", t.Resolution, 16, 256)

	case KindLattice:
		l := p.Lattice
		if l == nil {
			return fmt.Errorf("%w: missing lattice parameters", ErrInvalidParameter)
		}
		switch l.Cell {
		case CellCubic, CellBodyCentered, CellFaceCentered, CellGyroidStrut:
		default:
			return fmt.Errorf("%w: unknown lattice cell %q", ErrInvalidParameter, l.Cell)
		}
		if err := dims("dimensions_mm", l.DimensionsMM); err != nil {
			return err
		}
		if err := rangef("cell_size_mm", l.CellSizeMM, 0.5, 20); err != nil {
			return err
		}
		if err := rangef("strut_diameter_mm", l.StrutDiameterMM, 0.1, 5); err != nil {
			return err
		}
		if l.StrutDiameterMM >= l.CellSizeMM {
			return fmt.Errorf("%w: strut_diameter_mm=%g must be below cell_size_mm=%g",
				ErrInvalidParameter, l.StrutDiameterMM, l.CellSizeMM)
		}
		return rangei("segments", l.Segments, 6, 64)

	case KindVascularTree:
		v := p.Vascular
		if v == nil {
			return fmt.Errorf("%w: missing vascular parameters", ErrInvalidParameter)
		}
		if err := rangei("inlets", v.Inlets, 1, 8); err != nil {
			return err
		}
		if err := rangei("levels", v.Levels, 1, 6); err != nil {
			return err
		}
		if err := rangei("splits", v.Splits, 2, 4); err != nil {
			return err
		}
		if err := rangef("ratio", v.Ratio, 0.5, 0.9); err != nil {
			return err
		}
		if err := rangef("spread_deg", v.SpreadDeg, 0, 90); err != nil {
			return err
		}
		if err := rangef("curvature", v.Curvature, 0, 1); err != nil {
			return err
		}
		if err := rangef("root_radius_mm", v.RootRadiusMM, 0.2, 5); err != nil {
			return err
		}
		return rangef("trunk_length_mm", v.TrunkLengthMM, 1, 50)

	case KindMicrofluidic:
		m := p.Microfluidic
		if m == nil {
			return fmt.Errorf("%w: missing microfluidic parameters", ErrInvalidParameter)
		}
		if err := dims("block_mm", m.BlockMM); err != nil {
			return err
		}
		if err := rangef("channel_diameter_mm", m.ChannelDiameterMM, 0.1, 5); err != nil {
			return err
		}
		if err := rangef("chamber_diameter_mm", m.ChamberDiameterMM, 0.5, 20); err != nil {
			return err
		}
		if err := rangei("inlets", m.Inlets, 1, 8); err != nil {
			return err
		}
		if err := rangei("outlets", m.Outlets, 1, 8); err != nil {
			return err
		}
		if err := rangei("chambers", m.Chambers, 0, 16); err != nil {
			return err
		}
		return rangei("resolution", m.Resolution, 16, 256)

	case KindGradientField:
		g := p.Gradient
		if g == nil {
			return fmt.Errorf("%w: missing gradient parameters", ErrInvalidParameter)
		}
		switch g.Axis {
		case AxisX, AxisY, AxisZ:
		default:
			return fmt.Errorf("%w: unknown gradient axis %q", ErrInvalidParameter, g.Axis)
		}
		switch g.Gradient {
		case GradientLinear, GradientExponential, GradientSigmoid:
		default:
			return fmt.Errorf("%w: unknown gradient type %q", ErrInvalidParameter, g.Gradient)
		}
		if err := dims("dimensions_mm", g.DimensionsMM); err != nil {
			return err
		}
		if err := rangef("start_porosity", g.StartPorosity, 0.05, 0.95); err != nil {
			return err
		}
		if err := rangef("end_porosity", g.EndPorosity, 0.05, 0.95); err != nil {
			return err
		}
		if err := rangef("pore_base_size_mm", g.PoreBaseSizeMM, 0.1, 5); err != nil {
			return err
		}
		if err := rangef("grid_spacing_mm", g.GridSpacingMM, 0.2, 10); err != nil {
			return err
		}
		if g.GridSpacingMM <= g.PoreBaseSizeMM {
			return fmt.Errorf("%w: grid_spacing_mm=%g must exceed pore_base_size_mm=%g",
				ErrInvalidParameter, g.GridSpacingMM, g.PoreBaseSizeMM)
		}
		return rangei("resolution", g.Resolution, 16, 256)

	case KindPrimitive:
		pr := p.Primitive
		if pr == nil {
			return fmt.Errorf("%w: missing primitive parameters", ErrInvalidParameter)
		}
		var used int
		switch pr.Shape {
		case ShapeBox, ShapeEllipsoid:
			used = 3
		case ShapeCylinder, ShapeTorus, ShapeCapsule:
			used = 2
		case ShapeSphere:
			used = 1
		default:
			return fmt.Errorf("%w: unknown primitive shape %q", ErrInvalidParameter, pr.Shape)
		}
		for i := 0; i < used; i++ {
			if err := rangef(fmt.Sprintf("size_mm[%d]", i), pr.SizeMM[i], 0.1, 200); err != nil {
				return err
			}
		}
		if pr.Shape == ShapeTorus && pr.SizeMM[1] >= pr.SizeMM[0] {
			return fmt.Errorf("%w: torus minor radius %g must be below major radius %g",
				ErrInvalidParameter, pr.SizeMM[1], pr.SizeMM[0])
		}
		return rangei("segments", pr.Segments, 8, 256)

	default:
		return fmt.Errorf("%w: unknown scaffold kind %d", ErrInvalidParameter, int(p.Kind))
	}
}
