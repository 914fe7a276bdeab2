package spatial

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// RayNearest returns the distance to the nearest triangle hit by the
// ray within maxDist, skipping triangles for which skip returns true.
// The second return is false when nothing is hit.
func (g *Grid) RayNearest(origin, dir v3.Vec, maxDist float64, skip func(tri int32) bool) (float64, bool) {
	end := origin.Add(dir.MulScalar(maxDist))
	min := origin.Min(end)
	max := origin.Max(end)
	best := math.Inf(1)
	for _, ti := range g.Overlapping(min, max) {
		if skip != nil && skip(ti) {
			continue
		}
		a, b, c := g.mesh.Triangle(int(ti))
		if hit, t := rayTriangle(origin, dir, a, b, c); hit && t >= 0 && t <= maxDist && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}
