package tiling

import (
	"context"
	"fmt"
	"math"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// maxRefinePasses bounds the bisection loop; each pass halves the
// longest edges so the cap is never reached on sane inputs.
const maxRefinePasses = 32

type edgeKey struct{ a, b uint32 }

func edgeOf(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// refine subdivides triangles until no edge exceeds maxEdge. Split
// edges propagate to every incident triangle so the result stays
// crack-free, and new vertices are re-evaluated on the surface rather
// than lerped in space.
func refine(ctx context.Context, w *workMesh, surf *Surface, maxEdge float64) error {
	for pass := 0; pass < maxRefinePasses; pass++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
		}
		splits := longEdges(w, maxEdge)
		if len(splits) == 0 {
			return nil
		}
		propagate(w, splits)
		midpoints := make(map[edgeKey]uint32, len(splits))
		for e := range splits {
			midpoints[e] = splitVertex(w, surf, e)
		}
		next := make([][3]uint32, 0, len(w.tris)+2*len(splits))
		for _, t := range w.tris {
			next = append(next, subdivide(t, midpoints)...)
		}
		w.tris = next
	}
	return nil
}

// longEdges collects every edge longer than the bound.
func longEdges(w *workMesh, maxEdge float64) map[edgeKey]bool {
	splits := make(map[edgeKey]bool)
	for _, t := range w.tris {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if w.pos[a].Sub(w.pos[b]).Length() > maxEdge {
				splits[edgeOf(a, b)] = true
			}
		}
	}
	return splits
}

// propagate closes the split set: a triangle losing conformity because
// a neighbor split one of its edges also splits its own longest edge.
// The coarser side subdivides first, so the closure terminates.
func propagate(w *workMesh, splits map[edgeKey]bool) {
	for {
		grew := false
		for _, t := range w.tris {
			hit := false
			var longest edgeKey
			longestLen := -1.0
			for k := 0; k < 3; k++ {
				e := edgeOf(t[k], t[(k+1)%3])
				if splits[e] {
					hit = true
				}
				if l := w.pos[e.a].Sub(w.pos[e.b]).Length(); l > longestLen {
					longestLen, longest = l, e
				}
			}
			if hit && !splits[longest] {
				splits[longest] = true
				grew = true
			}
		}
		if !grew {
			return
		}
	}
}

// midAttr averages two vertex attributes with periodic unwrapping so a
// seam-straddling edge interpolates across the wrap instead of across
// the whole domain.
func midAttr(a, b vertexAttr, surf *Surface) vertexAttr {
	u1, u2 := a.u, b.u
	if surf.PeriodicU() && math.Abs(u1-u2) > 0.5 {
		if u1 < u2 {
			u1++
		} else {
			u2++
		}
	}
	v1, v2 := a.v, b.v
	if surf.PeriodicV() && math.Abs(v1-v2) > 0.5 {
		if v1 < v2 {
			v1++
		} else {
			v2++
		}
	}
	mu, mv := (u1+u2)/2, (v1+v2)/2
	if surf.PeriodicU() && mu >= 1 {
		mu--
	}
	if surf.PeriodicV() && mv >= 1 {
		mv--
	}
	return vertexAttr{u: mu, v: mv, off: (a.off + b.off) / 2}
}

// splitVertex adds the on-surface midpoint of an edge.
func splitVertex(w *workMesh, surf *Surface, e edgeKey) uint32 {
	attr := midAttr(w.attr[e.a], w.attr[e.b], surf)
	p := surf.At(attr.u, attr.v)
	if attr.off != 0 {
		p = p.Add(surf.Normal(attr.u, attr.v).MulScalar(attr.off))
	}
	return w.addVertex(p, attr)
}

// subdivide splits one triangle along its marked edges, preserving
// winding. One marked edge yields two triangles, two yield three, three
// yield four.
func subdivide(t [3]uint32, midpoints map[edgeKey]uint32) [][3]uint32 {
	var marked [3]bool
	count := 0
	for k := 0; k < 3; k++ {
		if _, ok := midpoints[edgeOf(t[k], t[(k+1)%3])]; ok {
			marked[k] = true
			count++
		}
	}
	if count == 0 {
		return [][3]uint32{t}
	}
	mid := func(k int) uint32 { return midpoints[edgeOf(t[k], t[(k+1)%3])] }
	rotate := func() {
		t = [3]uint32{t[1], t[2], t[0]}
		marked = [3]bool{marked[1], marked[2], marked[0]}
	}
	switch count {
	case 1:
		for !marked[0] {
			rotate()
		}
		m := mid(0)
		return [][3]uint32{{t[0], m, t[2]}, {m, t[1], t[2]}}
	case 2:
		for !(marked[0] && marked[1]) {
			rotate()
		}
		m01, m12 := mid(0), mid(1)
		return [][3]uint32{
			{t[0], m01, m12},
			{t[0], m12, t[2]},
			{m01, t[1], m12},
		}
	default:
		m01, m12, m20 := mid(0), mid(1), mid(2)
		return [][3]uint32{
			{t[0], m01, m20},
			{m01, t[1], m12},
			{m20, m12, t[2]},
			{m01, m12, m20},
		}
	}
}

// surfaceDeviation measures how far a geometric edge midpoint sits from
// its re-evaluated surface point, the error refinement drives down.
func surfaceDeviation(w *workMesh, surf *Surface) float64 {
	worst := 0.0
	for _, t := range w.tris {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			chord := w.pos[a].Add(w.pos[b]).MulScalar(0.5)
			attr := midAttr(w.attr[a], w.attr[b], surf)
			true3 := surf.At(attr.u, attr.v)
			if attr.off != 0 {
				true3 = true3.Add(surf.Normal(attr.u, attr.v).MulScalar(attr.off))
			}
			if d := chord.Sub(true3).Length(); d > worst {
				worst = d
			}
		}
	}
	return worst
}
