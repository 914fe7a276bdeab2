package scaffold

import "fmt"

// Kind identifies a scaffold category.
type Kind int

const (
	KindGyroid Kind = iota // gyroid TPMS shell
	KindSchwarzP
	KindSchwarzD
	KindLattice
	KindVascularTree
	KindMicrofluidic
	KindGradientField
	KindPrimitive
)

func (k Kind) String() string {
	switch k {
	case KindGyroid:
		return "gyroid"
	case KindSchwarzP:
		return "schwarz-p"
	case KindSchwarzD:
		return "schwarz-d"
	case KindLattice:
		return "lattice"
	case KindVascularTree:
		return "vascular-tree"
	case KindMicrofluidic:
		return "microfluidic"
	case KindGradientField:
		return "gradient-field"
	case KindPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

// KindFromString parses a kind name as used in request payloads and
// parameter files.
func KindFromString(s string) (Kind, error) {
	for k := KindGyroid; k <= KindPrimitive; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown scaffold kind %q", ErrInvalidParameter, s)
}

// TPMSParams configures the implicit-surface generators (gyroid,
// Schwarz-P, Schwarz-D). One triply periodic unit cell spans CellSizeMM;
// the shell thickness is derived from Porosity.
type TPMSParams struct {
	DimensionsMM [3]float64 `yaml:"dimensions_mm"` // each in [1, 200]
	Porosity     float64    `yaml:"porosity"`      // [0.1, 0.95]
	CellSizeMM   float64    `yaml:"cell_size_mm"`  // [0.5, 20]
	Resolution   int        `yaml:"resolution"`    // marching cubes cells per axis, [16, 256]
}

// LatticeCell enumerates lattice unit-cell topologies.
type LatticeCell string

const (
	CellCubic        LatticeCell = "cubic"
	CellBodyCentered LatticeCell = "body-centered"
	CellFaceCentered LatticeCell = "face-centered"
	CellGyroidStrut  LatticeCell = "gyroid-strut"
)

// LatticeParams configures the strut-lattice generator.
type LatticeParams struct {
	DimensionsMM    [3]float64  `yaml:"dimensions_mm"`     // each in [1, 200]
	Cell            LatticeCell `yaml:"cell"`              // unit cell topology
	CellSizeMM      float64     `yaml:"cell_size_mm"`      // [0.5, 20]
	StrutDiameterMM float64     `yaml:"strut_diameter_mm"` // [0.1, 5]
	Segments        int         `yaml:"segments"`          // strut cross-section sides, [6, 64]
}

// VascularParams configures the branching-tree generator. Radii follow
// Murray's law: the cubes of child radii sum to the parent radius cubed.
type VascularParams struct {
	Inlets        int     `yaml:"inlets"`          // [1, 8]
	Levels        int     `yaml:"levels"`          // [1, 6]
	Splits        int     `yaml:"splits"`          // children per branch, [2, 4]
	Ratio         float64 `yaml:"ratio"`           // binary child/parent radius ratio, [0.5, 0.9]
	SpreadDeg     float64 `yaml:"spread_deg"`      // angular dispersion, [0, 90]
	Curvature     float64 `yaml:"curvature"`       // spline tangent scale, [0, 1]
	RootRadiusMM  float64 `yaml:"root_radius_mm"`  // [0.2, 5]
	TrunkLengthMM float64 `yaml:"trunk_length_mm"` // [1, 50]
	Deterministic bool    `yaml:"deterministic"`
	Seed          int64   `yaml:"seed"` // drives perturbation when Deterministic is false
}

// MicrofluidicParams configures the channel-carving generator. Channels
// and chambers are subtracted from the enclosing block.
type MicrofluidicParams struct {
	BlockMM           [3]float64 `yaml:"block_mm"`            // each in [1, 200]
	ChannelDiameterMM float64    `yaml:"channel_diameter_mm"` // [0.1, 5]
	ChamberDiameterMM float64    `yaml:"chamber_diameter_mm"` // [0.5, 20]
	Inlets            int        `yaml:"inlets"`              // [1, 8]
	Outlets           int        `yaml:"outlets"`             // [1, 8]
	Chambers          int        `yaml:"chambers"`            // [0, 16]
	Resolution        int        `yaml:"resolution"`          // [16, 256]
}

// GradientAxis selects the axis along which porosity varies.
type GradientAxis string

const (
	AxisX GradientAxis = "x"
	AxisY GradientAxis = "y"
	AxisZ GradientAxis = "z"
)

// GradientType selects the porosity interpolation profile.
type GradientType string

const (
	GradientLinear      GradientType = "linear"
	GradientExponential GradientType = "exponential"
	GradientSigmoid     GradientType = "sigmoid"
)

// GradientParams configures the gradient-porosity generator. Pores sit
// on a regular grid; each pore's diameter follows the profile between
// the two porosity endpoints along Axis.
type GradientParams struct {
	DimensionsMM   [3]float64   `yaml:"dimensions_mm"`    // each in [1, 200]
	Axis           GradientAxis `yaml:"axis"`
	StartPorosity  float64      `yaml:"start_porosity"`   // [0.05, 0.95]
	EndPorosity    float64      `yaml:"end_porosity"`     // [0.05, 0.95]
	Gradient       GradientType `yaml:"gradient_type"`
	PoreBaseSizeMM float64      `yaml:"pore_base_size_mm"` // [0.1, 5]
	GridSpacingMM  float64      `yaml:"grid_spacing_mm"`   // [0.2, 10], must exceed PoreBaseSizeMM
	Resolution     int          `yaml:"resolution"`        // [16, 256]
}

// PrimitiveShape enumerates the direct parametric solids.
type PrimitiveShape string

const (
	ShapeBox       PrimitiveShape = "box"
	ShapeCylinder  PrimitiveShape = "cylinder"
	ShapeSphere    PrimitiveShape = "sphere"
	ShapeTorus     PrimitiveShape = "torus"
	ShapeCapsule   PrimitiveShape = "capsule"
	ShapeEllipsoid PrimitiveShape = "ellipsoid"
)

// PrimitiveParams configures the primitive generator. SizeMM is
// interpreted per shape: box edge lengths; cylinder/capsule radius and
// height (X, Y); sphere radius (X); torus major and minor radius (X, Y);
// ellipsoid semi-axes.
type PrimitiveParams struct {
	Shape    PrimitiveShape `yaml:"shape"`
	SizeMM   [3]float64     `yaml:"size_mm"`  // each used component in [0.1, 200]
	Segments int            `yaml:"segments"` // [8, 256]
}

// Params is the tagged scaffold parameter variant: Kind selects which
// case pointer is populated. Exactly one case must be non-nil.
type Params struct {
	Kind         Kind                `yaml:"-"`
	KindName     string              `yaml:"kind"`
	TPMS         *TPMSParams         `yaml:"tpms,omitempty"`
	Lattice      *LatticeParams      `yaml:"lattice,omitempty"`
	Vascular     *VascularParams     `yaml:"vascular,omitempty"`
	Microfluidic *MicrofluidicParams `yaml:"microfluidic,omitempty"`
	Gradient     *GradientParams     `yaml:"gradient,omitempty"`
	Primitive    *PrimitiveParams    `yaml:"primitive,omitempty"`

	// Invert carves the scaffold out of its bounding block, producing
	// the complementary solid.
	Invert bool `yaml:"invert,omitempty"`
}
