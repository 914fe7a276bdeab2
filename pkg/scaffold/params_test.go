package scaffold

import (
	"errors"
	"testing"
)

func validGyroid() Params {
	return Params{
		Kind: KindGyroid,
		TPMS: &TPMSParams{
			DimensionsMM: [3]float64{10, 10, 10},
			Porosity:     0.6,
			CellSizeMM:   2.5,
			Resolution:   64,
		},
	}
}

func validVascular() Params {
	return Params{
		Kind: KindVascularTree,
		Vascular: &VascularParams{
			Inlets:        4,
			Levels:        3,
			Splits:        2,
			Ratio:         0.79,
			SpreadDeg:     30,
			Curvature:     0.5,
			RootRadiusMM:  1.5,
			TrunkLengthMM: 10,
			Deterministic: true,
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	cases := []Params{
		validGyroid(),
		validVascular(),
		{
			Kind: KindLattice,
			Lattice: &LatticeParams{
				DimensionsMM:    [3]float64{10, 10, 10},
				Cell:            CellBodyCentered,
				CellSizeMM:      3,
				StrutDiameterMM: 0.6,
				Segments:        12,
			},
		},
		{
			Kind: KindGradientField,
			Gradient: &GradientParams{
				DimensionsMM:   [3]float64{20, 10, 10},
				Axis:           AxisX,
				StartPorosity:  0.2,
				EndPorosity:    0.8,
				Gradient:       GradientSigmoid,
				PoreBaseSizeMM: 1,
				GridSpacingMM:  2.5,
				Resolution:     48,
			},
		},
		{
			Kind: KindPrimitive,
			Primitive: &PrimitiveParams{
				Shape:    ShapeTorus,
				SizeMM:   [3]float64{10, 3, 0},
				Segments: 32,
			},
		},
	}
	for _, p := range cases {
		if err := p.Validate(); err != nil {
			t.Errorf("%s: expected valid parameters, got %v", p.Kind, err)
		}
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	p := validGyroid()
	p.TPMS.Porosity = 0.99
	if err := p.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for porosity 0.99, got %v", err)
	}

	v := validVascular()
	v.Vascular.Splits = 5
	if err := v.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for splits=5, got %v", err)
	}
}

func TestValidateRejectsMissingCase(t *testing.T) {
	p := Params{Kind: KindGyroid}
	if err := p.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for missing case, got %v", err)
	}
}

func TestValidateRejectsPoreOverlap(t *testing.T) {
	p := Params{
		Kind: KindGradientField,
		Gradient: &GradientParams{
			DimensionsMM:   [3]float64{10, 10, 10},
			Axis:           AxisZ,
			StartPorosity:  0.2,
			EndPorosity:    0.8,
			Gradient:       GradientLinear,
			PoreBaseSizeMM: 2,
			GridSpacingMM:  1.5,
			Resolution:     32,
		},
	}
	if err := p.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected rejection when grid spacing is below pore size, got %v", err)
	}
}

func TestKindRoundTrip(t *testing.T) {
	for k := KindGyroid; k <= KindPrimitive; k++ {
		got, err := KindFromString(k.String())
		if err != nil {
			t.Fatalf("KindFromString(%q) failed: %v", k.String(), err)
		}
		if got != k {
			t.Errorf("expected kind %d, got %d", k, got)
		}
	}
	if _, err := KindFromString("voronoi"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected unknown kind rejection, got %v", err)
	}
}

func TestFingerprintStability(t *testing.T) {
	a := validGyroid()
	b := validGyroid()
	fa, err := a.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	fb, _ := b.Fingerprint()
	if fa != fb {
		t.Error("identical parameters produced different fingerprints")
	}
	b.TPMS.Resolution = 65
	fc, _ := b.Fingerprint()
	if fa == fc {
		t.Error("changed parameters produced the same fingerprint")
	}
}

func TestPreviewCapsResolution(t *testing.T) {
	p := validGyroid()
	p.TPMS.Resolution = 256
	capped := p.Preview(DefaultPreviewCaps())
	if capped.TPMS.Resolution != 48 {
		t.Errorf("expected resolution capped to 48, got %d", capped.TPMS.Resolution)
	}
	if p.TPMS.Resolution != 256 {
		t.Error("Preview mutated its receiver")
	}
}
