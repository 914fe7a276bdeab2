package geom

import v3 "github.com/deadsy/sdfx/vec/v3"

// weldKey quantizes a position onto a grid of the given cell size so
// that positions within tolerance of each other collide.
type weldKey struct {
	x, y, z int64
}

func quantize(p v3.Vec, cell float64) weldKey {
	return weldKey{
		x: int64(p.X/cell + 0.5),
		y: int64(p.Y/cell + 0.5),
		z: int64(p.Z/cell + 0.5),
	}
}

// Weld merges vertices closer than tol and drops triangles that become
// degenerate (two or three corners merged). The first occurrence of a
// position wins; later near-duplicates snap onto it, which keeps welding
// deterministic for a given vertex order.
func Weld(m *Mesh, tol float64) *Mesh {
	if tol <= 0 {
		tol = Eps
	}
	remap := make([]uint32, len(m.Vertices))
	seen := make(map[weldKey]uint32, len(m.Vertices))
	out := NewMesh(len(m.Vertices), m.TriangleCount())

	for i, v := range m.Vertices {
		key := quantize(v, tol)
		if j, ok := seen[key]; ok {
			remap[i] = j
			continue
		}
		// Probe the 26 neighboring cells so near-duplicates straddling a
		// cell boundary still merge.
		merged := false
		for dx := int64(-1); dx <= 1 && !merged; dx++ {
			for dy := int64(-1); dy <= 1 && !merged; dy++ {
				for dz := int64(-1); dz <= 1 && !merged; dz++ {
					k := weldKey{key.x + dx, key.y + dy, key.z + dz}
					if j, ok := seen[k]; ok && out.Vertices[j].Sub(v).Length() <= tol {
						remap[i] = j
						merged = true
					}
				}
			}
		}
		if merged {
			continue
		}
		remap[i] = out.AddVertex(v)
		seen[key] = remap[i]
	}

	for t := 0; t < m.TriangleCount(); t++ {
		i0 := remap[m.Indices[t*3]]
		i1 := remap[m.Indices[t*3+1]]
		i2 := remap[m.Indices[t*3+2]]
		if i0 == i1 || i1 == i2 || i2 == i0 {
			continue
		}
		out.AddFace(i0, i1, i2)
	}
	return out
}
