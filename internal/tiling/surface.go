// Package tiling maps a base scaffold tile onto a parametric target
// surface with seam-consistent stitching, optional volumetric layering,
// and adaptive refinement.
package tiling

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// Shape names a target surface family.
type Shape string

const (
	ShapeSphere         Shape = "sphere"
	ShapeEllipsoid      Shape = "ellipsoid"
	ShapeTorus          Shape = "torus"
	ShapeCylinder       Shape = "cylinder"
	ShapeSuperellipsoid Shape = "superellipsoid"
)

// Surface is a parametric target surface Φ:[0,1]²→ℝ³ with a unit
// normal field. u is the longitude-like coordinate; v runs pole to pole
// (or along the height for a cylinder).
type Surface struct {
	Shape Shape `yaml:"shape"`

	Radius float64 `yaml:"radius"` // sphere, cylinder
	RX     float64 `yaml:"rx"`     // ellipsoid, superellipsoid
	RY     float64 `yaml:"ry"`
	RZ     float64 `yaml:"rz"`
	Major  float64 `yaml:"major"`  // torus center-circle radius
	Minor  float64 `yaml:"minor"`  // torus tube radius
	Height float64 `yaml:"height"` // cylinder
	N      float64 `yaml:"n"`      // superellipsoid north-south exponent
	E      float64 `yaml:"e"`      // superellipsoid east-west exponent
}

// Validate checks the dimensions for the selected shape.
func (s *Surface) Validate() error {
	pos := func(name string, v float64) error {
		if v <= 0 {
			return fmt.Errorf("%w: %s=%g must be positive", scaffold.ErrInvalidParameter, name, v)
		}
		return nil
	}
	switch s.Shape {
	case ShapeSphere:
		return pos("radius", s.Radius)
	case ShapeEllipsoid:
		for _, d := range []struct {
			n string
			v float64
		}{{"rx", s.RX}, {"ry", s.RY}, {"rz", s.RZ}} {
			if err := pos(d.n, d.v); err != nil {
				return err
			}
		}
		return nil
	case ShapeTorus:
		if err := pos("major", s.Major); err != nil {
			return err
		}
		if err := pos("minor", s.Minor); err != nil {
			return err
		}
		if s.Minor >= s.Major {
			return fmt.Errorf("%w: torus minor radius %g must be below major radius %g",
				scaffold.ErrInvalidParameter, s.Minor, s.Major)
		}
		return nil
	case ShapeCylinder:
		if err := pos("radius", s.Radius); err != nil {
			return err
		}
		return pos("height", s.Height)
	case ShapeSuperellipsoid:
		for _, d := range []struct {
			n string
			v float64
		}{{"rx", s.RX}, {"ry", s.RY}, {"rz", s.RZ}, {"n", s.N}, {"e", s.E}} {
			if err := pos(d.n, d.v); err != nil {
				return err
			}
		}
		if s.N > 4 || s.E > 4 {
			return fmt.Errorf("%w: superellipsoid exponents above 4 are numerically unstable", scaffold.ErrInvalidParameter)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown target shape %q", scaffold.ErrInvalidParameter, s.Shape)
	}
}

// PeriodicU reports whether u wraps around (longitude-like coordinate).
func (s *Surface) PeriodicU() bool {
	return true // every supported shape is rotationally periodic in u
}

// PeriodicV reports whether v wraps around. Only the torus is periodic
// pole-to-pole; the others clamp v.
func (s *Surface) PeriodicV() bool {
	return s.Shape == ShapeTorus
}

// signed power: sign(x)·|x|^e, the superellipsoid shape function.
func spow(x, e float64) float64 {
	if x == 0 {
		return 0
	}
	return math.Copysign(math.Pow(math.Abs(x), e), x)
}

// At evaluates Φ(u,v).
func (s *Surface) At(u, v float64) v3.Vec {
	theta := 2 * math.Pi * u
	switch s.Shape {
	case ShapeSphere:
		phi := math.Pi * (v - 0.5)
		return v3.Vec{
			X: s.Radius * math.Cos(phi) * math.Cos(theta),
			Y: s.Radius * math.Cos(phi) * math.Sin(theta),
			Z: s.Radius * math.Sin(phi),
		}
	case ShapeEllipsoid:
		phi := math.Pi * (v - 0.5)
		return v3.Vec{
			X: s.RX * math.Cos(phi) * math.Cos(theta),
			Y: s.RY * math.Cos(phi) * math.Sin(theta),
			Z: s.RZ * math.Sin(phi),
		}
	case ShapeTorus:
		psi := 2 * math.Pi * v
		r := s.Major + s.Minor*math.Cos(psi)
		return v3.Vec{
			X: r * math.Cos(theta),
			Y: r * math.Sin(theta),
			Z: s.Minor * math.Sin(psi),
		}
	case ShapeCylinder:
		return v3.Vec{
			X: s.Radius * math.Cos(theta),
			Y: s.Radius * math.Sin(theta),
			Z: s.Height * (v - 0.5),
		}
	case ShapeSuperellipsoid:
		phi := math.Pi * (v - 0.5)
		cu, su := math.Cos(theta), math.Sin(theta)
		cv, sv := math.Cos(phi), math.Sin(phi)
		return v3.Vec{
			X: s.RX * spow(cv, s.N) * spow(cu, s.E),
			Y: s.RY * spow(cv, s.N) * spow(su, s.E),
			Z: s.RZ * spow(sv, s.N),
		}
	default:
		return v3.Vec{}
	}
}

// normalStep is the parameter-space step for the finite-difference
// normal evaluation.
const normalStep = 1e-5

// Normal evaluates the outward unit normal N(u,v) from the cross
// product of numeric partials. Near parametrization poles the partials
// degenerate, so the radial direction from the surface centroid is used
// as a fallback; for every supported shape the pole normal is radial.
func (s *Surface) Normal(u, v float64) v3.Vec {
	du := s.At(u+normalStep, v).Sub(s.At(u-normalStep, v))
	dv := s.At(u, v+normalStep).Sub(s.At(u, v-normalStep))
	n := du.Cross(dv)
	if n.Length() < geom.Eps {
		p := s.At(u, v)
		if s.Shape == ShapeTorus {
			// Radial from the tube center circle.
			axis := v3.Vec{X: p.X, Y: p.Y}
			if axis.Length() < geom.Eps {
				return v3.Vec{Z: 1}
			}
			center := axis.Normalize().MulScalar(s.Major)
			return p.Sub(center).Normalize()
		}
		if p.Length() < geom.Eps {
			return v3.Vec{Z: 1}
		}
		return p.Normalize()
	}
	n = n.Normalize()
	// Orient outward: the supported shapes are star-shaped around the
	// origin (torus around its tube center), so the normal must not
	// point toward the reference point.
	ref := v3.Vec{}
	if s.Shape == ShapeTorus {
		p := s.At(u, v)
		axis := v3.Vec{X: p.X, Y: p.Y}
		if axis.Length() >= geom.Eps {
			ref = axis.Normalize().MulScalar(s.Major)
		}
	}
	if n.Dot(s.At(u, v).Sub(ref)) < 0 {
		return n.MulScalar(-1)
	}
	return n
}

// vInset shrinks the v-domain for shapes whose parametrization pinches
// at v=0 and v=1. Mapping a tile across a pole collapses one of its
// faces to a line, so tiling stops just short of the polar caps.
func (s *Surface) vInset() float64 {
	switch s.Shape {
	case ShapeSphere, ShapeEllipsoid, ShapeSuperellipsoid:
		return 0.02
	default:
		return 0
	}
}

// MinOffsetRadius returns the largest inward offset the surface can
// absorb before a point reaches its local center of curvature: the
// bound for volume-mode layer nesting.
func (s *Surface) MinOffsetRadius() float64 {
	switch s.Shape {
	case ShapeSphere:
		return s.Radius
	case ShapeEllipsoid:
		return math.Min(s.RX, math.Min(s.RY, s.RZ))
	case ShapeTorus:
		return s.Minor
	case ShapeCylinder:
		return s.Radius
	case ShapeSuperellipsoid:
		return math.Min(s.RX, math.Min(s.RY, s.RZ))
	default:
		return 0
	}
}
