// Package validate audits meshes for watertightness, self-intersection
// and printability before export.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/spatial"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// Report is the outcome of a validation run. Errors make the mesh
// invalid and block export; warnings only clear the printable flag.
type Report struct {
	IsValid     bool     `json:"isValid"`
	IsPrintable bool     `json:"isPrintable"`
	Warnings    []string `json:"warnings"`
	Errors      []string `json:"errors"`
}

// Err combines the report's errors, or returns nil for a valid mesh.
func (r *Report) Err() error {
	var err error
	for _, e := range r.Errors {
		err = multierr.Append(err, errors.New(e))
	}
	if err != nil {
		return fmt.Errorf("%w: %v", scaffold.ErrDegenerateGeometry, err)
	}
	return nil
}

// Options tune the printability heuristics.
type Options struct {
	// MinWallMM is the thinnest printable wall. Zero uses the default.
	MinWallMM float64
	// OverhangDeg is the steepest printable overhang measured from the
	// vertical. Zero uses the default.
	OverhangDeg float64
	// SampleLimit caps the vertices probed by the wall-thickness
	// heuristic. Zero uses the default.
	SampleLimit int
}

const (
	defaultMinWallMM   = 0.2
	defaultOverhangDeg = 45
	defaultSampleLimit = 2000

	// overhangAreaFraction is the share of downward-facing unsupported
	// area tolerated before the overhang warning fires.
	overhangAreaFraction = 0.1
)

func (o Options) minWall() float64 {
	if o.MinWallMM <= 0 {
		return defaultMinWallMM
	}
	return o.MinWallMM
}

func (o Options) overhangDeg() float64 {
	if o.OverhangDeg <= 0 {
		return defaultOverhangDeg
	}
	return o.OverhangDeg
}

func (o Options) sampleLimit() int {
	if o.SampleLimit <= 0 {
		return defaultSampleLimit
	}
	return o.SampleLimit
}

// Check audits the mesh in order: watertightness, then
// self-intersection, then connectivity, then printability heuristics.
// The first three produce errors, the heuristics produce warnings only.
func Check(ctx context.Context, m *geom.Mesh, opt Options) *Report {
	r := &Report{}

	if err := watertight(m); err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
	if err := ctx.Err(); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("validation aborted: %v", err))
		return finish(r)
	}

	var grid *spatial.Grid
	if len(r.Errors) == 0 {
		grid = spatial.NewGrid(m)
		if err := selfIntersection(ctx, m, grid); err != nil {
			r.Errors = append(r.Errors, err.Error())
		}
	}

	if len(r.Errors) == 0 {
		if n := m.ComponentCount(); n > 1 {
			r.Errors = append(r.Errors, fmt.Sprintf("mesh has %d disconnected shells", n))
		}
	}

	if len(r.Errors) == 0 {
		if w := thinWalls(ctx, m, grid, opt); w != "" {
			r.Warnings = append(r.Warnings, w)
		}
		if w := overhangs(m, opt); w != "" {
			r.Warnings = append(r.Warnings, w)
		}
	}
	return finish(r)
}

func finish(r *Report) *Report {
	r.IsValid = len(r.Errors) == 0
	r.IsPrintable = r.IsValid && len(r.Warnings) == 0
	return r
}

// watertight requires every directed edge to appear exactly once with
// its reverse present, and a positive enclosed volume.
func watertight(m *geom.Mesh) error {
	if m.IsEmpty() {
		return errors.New("mesh is empty")
	}
	if err := m.CheckIndices(); err != nil {
		return err
	}
	type edge struct{ a, b uint32 }
	directed := make(map[edge]int, len(m.Indices))
	for t := 0; t < m.TriangleCount(); t++ {
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		if i0 == i1 || i1 == i2 || i2 == i0 {
			return fmt.Errorf("triangle %d is degenerate", t)
		}
		directed[edge{i0, i1}]++
		directed[edge{i1, i2}]++
		directed[edge{i2, i0}]++
	}
	for e, n := range directed {
		if n != 1 {
			return fmt.Errorf("edge (%d,%d) has %d same-direction triangles", e.a, e.b, n)
		}
		if directed[edge{e.b, e.a}] != 1 {
			return fmt.Errorf("edge (%d,%d) is open or inconsistently wound", e.a, e.b)
		}
	}
	if vol := m.SignedVolume(); vol < geom.Eps {
		return fmt.Errorf("enclosed volume %g is not positive", vol)
	}
	return nil
}

// selfIntersection tests each triangle against spatially nearby,
// non-adjacent triangles.
func selfIntersection(ctx context.Context, m *geom.Mesh, grid *spatial.Grid) error {
	const ctxStride = 1024
	for t := 0; t < m.TriangleCount(); t++ {
		if t%ctxStride == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("self-intersection check aborted: %v", err)
			}
		}
		a0, a1, a2 := m.Triangle(t)
		tmin := a0.Min(a1).Min(a2)
		tmax := a0.Max(a1).Max(a2)
		seen := map[int32]bool{int32(t): true}
		for _, o := range grid.Overlapping(tmin, tmax) {
			// Each unordered pair is tested once.
			if o <= int32(t) || seen[o] {
				continue
			}
			seen[o] = true
			if sharesVertex(m, t, int(o)) {
				continue
			}
			b0, b1, b2 := m.Triangle(int(o))
			if spatial.TrianglesIntersect(a0, a1, a2, b0, b1, b2) {
				return fmt.Errorf("triangles %d and %d intersect", t, o)
			}
		}
	}
	return nil
}

func sharesVertex(m *geom.Mesh, s, t int) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if m.Indices[s*3+i] == m.Indices[t*3+j] {
				return true
			}
		}
	}
	return false
}

// thinWalls probes vertex normals inward and reports walls thinner than
// the printable minimum. The probe is sampled; it is a heuristic, not a
// proof.
func thinWalls(ctx context.Context, m *geom.Mesh, grid *spatial.Grid, opt Options) string {
	normals := m.Normals
	if len(normals) != len(m.Vertices) {
		tmp := m.Clone()
		tmp.ComputeNormals()
		normals = tmp.Normals
	}
	limit := opt.minWall()
	stride := 1
	if n := len(m.Vertices); n > opt.sampleLimit() {
		stride = n / opt.sampleLimit()
	}
	thin := 0
	thinnest := math.Inf(1)
	for i := 0; i < len(m.Vertices); i += stride {
		if err := ctx.Err(); err != nil {
			break
		}
		n := normals[i]
		if n.Length() < geom.Eps {
			continue
		}
		inward := n.MulScalar(-1)
		// Start a hair inside the surface so the probe does not hit the
		// vertex's own fan.
		origin := m.Vertices[i].Add(inward.MulScalar(16 * geom.Eps))
		// Ignore hits within a micron of the origin: on curved regions
		// the probe can graze the vertex's own triangle fan.
		if d, hit := grid.RayNearest(origin, inward, limit, nil); hit && d > 1e-3 {
			thin++
			if d < thinnest {
				thinnest = d
			}
		}
	}
	if thin == 0 {
		return ""
	}
	return fmt.Sprintf("%d sampled points sit on walls thinner than %.2f mm (thinnest ~%.3f mm)", thin, limit, thinnest)
}

// overhangs reports when too much downward-facing area is unsupported.
// Faces resting on the build plate (the lowest z of the mesh) do not
// count.
func overhangs(m *geom.Mesh, opt Options) string {
	minB, _ := m.Bounds()
	cosLimit := math.Cos(opt.overhangDeg() * math.Pi / 180)
	var total, hanging float64
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		n := b.Sub(a).Cross(c.Sub(a))
		area2 := n.Length()
		if area2 < geom.Eps {
			continue
		}
		total += area2
		if n.Z/area2 >= -cosLimit {
			continue // facing up, sideways, or within the overhang limit
		}
		lowest := math.Min(a.Z, math.Min(b.Z, c.Z))
		if lowest <= minB.Z+geom.Eps {
			continue // supported by the build plate
		}
		hanging += area2
	}
	if total == 0 || hanging/total <= overhangAreaFraction {
		return ""
	}
	return fmt.Sprintf("%.0f%% of the surface overhangs more than %.0f° without support",
		100*hanging/total, opt.overhangDeg())
}
