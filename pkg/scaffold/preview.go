package scaffold

// PreviewCaps bound the expensive knobs for preview-mode generation.
// Preview is a parameter transformation applied before the pipeline
// runs, not a separate execution path.
type PreviewCaps struct {
	MaxResolution int `yaml:"max_resolution"`
	MaxLevels     int `yaml:"max_levels"`
	MaxSegments   int `yaml:"max_segments"`
}

// DefaultPreviewCaps returns the caps used when none are configured.
func DefaultPreviewCaps() PreviewCaps {
	return PreviewCaps{
		MaxResolution: 48,
		MaxLevels:     3,
		MaxSegments:   16,
	}
}

// Preview returns a copy of p with expensive knobs capped. Marching
// cubes cost grows roughly cubically with resolution, and vascular
// branch count grows exponentially with levels, so both are clamped
// here rather than trusted to callers.
func (p Params) Preview(caps PreviewCaps) Params {
	out := p
	capInt := func(v *int, max int) {
		if *v > max {
			*v = max
		}
	}
	switch {
	case out.TPMS != nil:
		t := *out.TPMS
		capInt(&t.Resolution, caps.MaxResolution)
		out.TPMS = &t
	case out.Lattice != nil:
		l := *out.Lattice
		capInt(&l.Segments, caps.MaxSegments)
		out.Lattice = &l
	case out.Vascular != nil:
		v := *out.Vascular
		capInt(&v.Levels, caps.MaxLevels)
		out.Vascular = &v
	case out.Microfluidic != nil:
		m := *out.Microfluidic
		capInt(&m.Resolution, caps.MaxResolution)
		out.Microfluidic = &m
	case out.Gradient != nil:
		g := *out.Gradient
		capInt(&g.Resolution, caps.MaxResolution)
		out.Gradient = &g
	case out.Primitive != nil:
		pr := *out.Primitive
		capInt(&pr.Segments, caps.MaxSegments)
		out.Primitive = &pr
	}
	return out
}
