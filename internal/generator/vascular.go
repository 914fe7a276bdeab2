package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/internal/csg"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// branchNode is one segment of the vascular tree. Nodes live in a flat
// arena indexed by position; Parent is -1 for first-level branches.
type branchNode struct {
	Parent int
	Start  v3.Vec
	End    v3.Vec
	R0     float64 // radius at Start
	R1     float64 // radius at End
	Level  int
}

// Tree is the arena form of a generated vascular network.
type Tree struct {
	Nodes []branchNode
}

// SegmentCount returns the number of branch segments, which for a full
// tree is inlets · Σ splits^level.
func (t *Tree) SegmentCount() int {
	return len(t.Nodes)
}

// childRadius applies Murray's law. For binary splits the explicit
// ratio parameter overrides the per-child fraction (canonical 0.79).
// For splits > 2 the generalized form is underdetermined, so children
// share radius equally: r_c = r_p · n^(-1/3), which conserves
// Σ r_c³ = r_p³ exactly.
func childRadius(parent float64, splits int, ratio float64) float64 {
	if splits == 2 {
		return parent * ratio
	}
	return parent * math.Pow(float64(splits), -1.0/3.0)
}

// BuildTree generates the branch arena. The mesh step is separate so
// tests can check Murray's law and segment counts without meshing.
// With Deterministic set, child directions use evenly spaced azimuths;
// otherwise the seeded generator perturbs azimuth and spread, and the
// same seed reproduces the identical tree.
func BuildTree(p *scaffold.VascularParams) *Tree {
	rng := rand.New(rand.NewSource(p.Seed))
	spread := p.SpreadDeg * math.Pi / 180

	t := &Tree{}
	type tip struct {
		node   int // arena index, -1 for a root point
		pos    v3.Vec
		dir    v3.Vec
		r      float64
		length float64
	}

	// Root points arranged on a circle in the z=0 plane, branching +Z.
	tips := make([]tip, 0, p.Inlets)
	rootSpacing := math.Max(p.TrunkLengthMM, 4*p.RootRadiusMM)
	for i := 0; i < p.Inlets; i++ {
		theta := 2 * math.Pi * float64(i) / float64(p.Inlets)
		pos := v3.Vec{X: rootSpacing * math.Cos(theta), Y: rootSpacing * math.Sin(theta)}
		if p.Inlets == 1 {
			pos = v3.Vec{}
		}
		tips = append(tips, tip{
			node:   -1,
			pos:    pos,
			dir:    v3.Vec{Z: 1},
			r:      p.RootRadiusMM,
			length: p.TrunkLengthMM,
		})
	}

	for level := 1; level <= p.Levels; level++ {
		next := make([]tip, 0, len(tips)*p.Splits)
		for _, parent := range tips {
			r := childRadius(parent.r, p.Splits, p.Ratio)
			length := parent.length * 0.75
			for c := 0; c < p.Splits; c++ {
				azimuth := 2 * math.Pi * float64(c) / float64(p.Splits)
				angle := spread
				if !p.Deterministic {
					azimuth += rng.Float64() * 2 * math.Pi / float64(p.Splits)
					angle *= 0.5 + rng.Float64()
					if angle > math.Pi/2 {
						angle = math.Pi / 2
					}
				}
				dir := cone(parent.dir, angle, azimuth)
				end := parent.pos.Add(dir.MulScalar(length))

				t.Nodes = append(t.Nodes, branchNode{
					Parent: parent.node,
					Start:  parent.pos,
					End:    end,
					R0:     parent.r,
					R1:     r,
					Level:  level,
				})
				next = append(next, tip{
					node:   len(t.Nodes) - 1,
					pos:    end,
					dir:    dir,
					r:      r,
					length: length,
				})
			}
		}
		tips = next
	}
	return t
}

// cone rotates axis by angle toward the azimuth direction in the plane
// perpendicular to it.
func cone(axis v3.Vec, angle, azimuth float64) v3.Vec {
	u, v := perpendicular(axis)
	lateral := u.MulScalar(math.Cos(azimuth)).Add(v.MulScalar(math.Sin(azimuth)))
	return axis.MulScalar(math.Cos(angle)).Add(lateral.MulScalar(math.Sin(angle))).Normalize()
}

// segmentPath samples the branch centerline. Curvature scales the
// Hermite tangents: zero gives a straight segment, one gives tangents as
// long as the segment itself, bending the branch smoothly away from the
// parent direction.
func segmentPath(n branchNode, parentDir v3.Vec, curvature float64, samples int) []v3.Vec {
	if curvature <= 0 || samples < 3 {
		return []v3.Vec{n.Start, n.End}
	}
	chord := n.End.Sub(n.Start)
	length := chord.Length()
	t0 := parentDir.MulScalar(curvature * length)
	t1 := chord.Normalize().MulScalar(curvature * length)

	points := make([]v3.Vec, samples)
	for i := 0; i < samples; i++ {
		s := float64(i) / float64(samples-1)
		h00 := 2*s*s*s - 3*s*s + 1
		h10 := s*s*s - 2*s*s + s
		h01 := -2*s*s*s + 3*s*s
		h11 := s*s*s - s*s
		points[i] = n.Start.MulScalar(h00).
			Add(t0.MulScalar(h10)).
			Add(n.End.MulScalar(h01)).
			Add(t1.MulScalar(h11))
	}
	return points
}

// generateVascular meshes every branch as a tapered, spline-swept tube
// and unions the tubes into one perfusable network.
func generateVascular(ctx context.Context, p *scaffold.VascularParams) (*geom.Manifold, error) {
	tree := BuildTree(p)
	if len(tree.Nodes) == 0 {
		return nil, fmt.Errorf("%w: vascular tree has no segments", scaffold.ErrDegenerateGeometry)
	}

	const splineSamples = 8
	segments := 16

	solids := make([]*geom.Manifold, 0, len(tree.Nodes))
	for i, n := range tree.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
		}
		parentDir := v3.Vec{Z: 1}
		if n.Parent >= 0 {
			pn := tree.Nodes[n.Parent]
			parentDir = pn.End.Sub(pn.Start).Normalize()
		}
		path := segmentPath(n, parentDir, p.Curvature, splineSamples)
		radii := make([]float64, len(path))
		for j := range radii {
			s := float64(j) / float64(len(path)-1)
			radii[j] = n.R0 + s*(n.R1-n.R0)
		}
		man, err := geom.Seal(SweepTube(path, radii, segments))
		if err != nil {
			return nil, fmt.Errorf("%w: branch %d: %v", scaffold.ErrDegenerateGeometry, i, err)
		}
		solids = append(solids, man)
	}

	cells := vascularCells(p, tree)
	return csg.UnionAll(ctx, solids, csg.Options{Cells: cells})
}

// vascularCells resolves the finest branch radius with at least three
// marching cells across its diameter.
func vascularCells(p *scaffold.VascularParams, tree *Tree) int {
	minR := p.RootRadiusMM
	var maxExtent float64
	for _, n := range tree.Nodes {
		if n.R1 < minR {
			minR = n.R1
		}
		for _, q := range []v3.Vec{n.Start, n.End} {
			e := math.Max(math.Abs(q.X), math.Max(math.Abs(q.Y), math.Abs(q.Z)))
			if e > maxExtent {
				maxExtent = e
			}
		}
	}
	cells := int(math.Ceil(2 * maxExtent / (minR * 2 / 3)))
	if cells < 48 {
		cells = 48
	}
	if cells > 224 {
		cells = 224
	}
	return cells
}
