package tiling

import (
	"context"
	"fmt"
	"math"
	"runtime"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// Mode selects between a single conformal shell and a nested volume.
type Mode string

const (
	// ModeSurface maps the base tile once, centered on the target
	// surface.
	ModeSurface Mode = "surface"
	// ModeVolume nests NumLayers copies inward and connects them into
	// one solid.
	ModeVolume Mode = "volume"
)

// Request describes a tiling job.
type Request struct {
	Surface Surface `yaml:"surface"`
	Mode    Mode    `yaml:"mode"`

	// TilesU and TilesV partition the parameter domain into a grid of
	// cells; the base tile is mapped into each cell.
	TilesU int `yaml:"tiles_u"`
	TilesV int `yaml:"tiles_v"`

	// Volume mode only.
	NumLayers      int     `yaml:"num_layers"`
	LayerSpacingMM float64 `yaml:"layer_spacing_mm"`

	// RefineEdgeLengthMM bounds triangle edge lengths after mapping;
	// zero disables adaptive refinement.
	RefineEdgeLengthMM float64 `yaml:"refine_edge_length_mm"`
}

// Validate checks the request independent of the base tile.
func (r *Request) Validate() error {
	if err := r.Surface.Validate(); err != nil {
		return err
	}
	if r.TilesU < 1 || r.TilesU > 256 {
		return fmt.Errorf("%w: tiles_u=%d outside [1, 256]", scaffold.ErrInvalidParameter, r.TilesU)
	}
	if r.TilesV < 1 || r.TilesV > 256 {
		return fmt.Errorf("%w: tiles_v=%d outside [1, 256]", scaffold.ErrInvalidParameter, r.TilesV)
	}
	if r.RefineEdgeLengthMM < 0 {
		return fmt.Errorf("%w: refine_edge_length_mm=%g must not be negative", scaffold.ErrInvalidParameter, r.RefineEdgeLengthMM)
	}
	switch r.Mode {
	case ModeSurface:
		return nil
	case ModeVolume:
		if r.NumLayers < 2 || r.NumLayers > 16 {
			return fmt.Errorf("%w: num_layers=%d outside [2, 16]", scaffold.ErrInvalidParameter, r.NumLayers)
		}
		if r.LayerSpacingMM <= 0 {
			return fmt.Errorf("%w: layer_spacing_mm=%g must be positive", scaffold.ErrInvalidParameter, r.LayerSpacingMM)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown tiling mode %q", scaffold.ErrInvalidParameter, r.Mode)
	}
}

// vertexAttr carries a vertex's surface parameters through stitching
// and refinement so new vertices can be re-evaluated on the surface.
type vertexAttr struct {
	u, v float64
	// off is the signed offset along the surface normal in mm.
	off float64
}

// workMesh is an indexed mesh with per-vertex surface attributes.
type workMesh struct {
	pos  []v3.Vec
	attr []vertexAttr
	tris [][3]uint32
}

func (w *workMesh) addVertex(p v3.Vec, a vertexAttr) uint32 {
	w.pos = append(w.pos, p)
	w.attr = append(w.attr, a)
	return uint32(len(w.pos) - 1)
}

func (w *workMesh) mesh() *geom.Mesh {
	m := geom.NewMesh(len(w.pos), len(w.tris))
	m.Vertices = append(m.Vertices, w.pos...)
	for _, t := range w.tris {
		m.Indices = append(m.Indices, t[0], t[1], t[2])
	}
	return m
}

// boundaryTol classifies a tile-local coordinate as lying on the cell
// boundary. The base tile footprint is normalized to [0,1] so an
// absolute tolerance suffices.
const boundaryTol = 1e-9

// cellMap maps the normalized tile footprint [0,1]² into one parameter
// cell. Interior vertices use a first-order map around the cell center
// corrected so the four corners are exact; boundary vertices are always
// evaluated directly on the surface so adjacent cells agree.
type cellMap struct {
	surf           *Surface
	u0, u1, v0, v1 float64

	center  v3.Vec    // Φ at cell center
	ju, jv  v3.Vec    // ∂Φ/∂s, ∂Φ/∂t at center, scaled to cell units
	corner  [4]v3.Vec // Φ at (0,0) (1,0) (0,1) (1,1)
	residue [4]v3.Vec // corner minus first-order prediction
}

func newCellMap(surf *Surface, u0, u1, v0, v1 float64) *cellMap {
	c := &cellMap{surf: surf, u0: u0, u1: u1, v0: v0, v1: v1}
	uc, vc := (u0+u1)/2, (v0+v1)/2
	c.center = surf.At(uc, vc)
	h := normalStep
	c.ju = surf.At(uc+h, vc).Sub(surf.At(uc-h, vc)).MulScalar((u1 - u0) / (2 * h))
	c.jv = surf.At(uc, vc+h).Sub(surf.At(uc, vc-h)).MulScalar((v1 - v0) / (2 * h))
	for k := 0; k < 4; k++ {
		s, t := float64(k&1), float64(k>>1)
		c.corner[k] = surf.At(u0+s*(u1-u0), v0+t*(v1-v0))
		pred := c.center.Add(c.ju.MulScalar(s - 0.5)).Add(c.jv.MulScalar(t - 0.5))
		c.residue[k] = c.corner[k].Sub(pred)
	}
	return c
}

func onBoundary(x float64) bool {
	return x < boundaryTol || x > 1-boundaryTol
}

// params returns the cell parameters for tile-local (s,t).
func (c *cellMap) params(s, t float64) (u, v float64) {
	return c.u0 + s*(c.u1-c.u0), c.v0 + t*(c.v1-c.v0)
}

// point maps tile-local (s,t,off) onto the surface shell.
func (c *cellMap) point(s, t, off float64) v3.Vec {
	u, v := c.params(s, t)
	var base v3.Vec
	if onBoundary(s) || onBoundary(t) {
		base = c.surf.At(u, v)
	} else {
		base = c.center.Add(c.ju.MulScalar(s - 0.5)).Add(c.jv.MulScalar(t - 0.5))
		w := [4]float64{(1 - s) * (1 - t), s * (1 - t), (1 - s) * t, s * t}
		for k := 0; k < 4; k++ {
			base = base.Add(c.residue[k].MulScalar(w[k]))
		}
	}
	if off == 0 {
		return base
	}
	return base.Add(c.surf.Normal(u, v).MulScalar(off))
}

// tileFrame normalizes base tile coordinates: x,y become the footprint
// coordinates s,t in [0,1] and z becomes a signed offset around the
// tile midplane.
type tileFrame struct {
	min  v3.Vec
	size v3.Vec
	zmid float64
}

func newTileFrame(base *geom.Manifold) (*tileFrame, error) {
	bmin, bmax := base.Bounds()
	size := bmax.Sub(bmin)
	if size.X < geom.Eps || size.Y < geom.Eps || size.Z < geom.Eps {
		return nil, fmt.Errorf("%w: base tile footprint %gx%gx%g mm is flat",
			scaffold.ErrDegenerateGeometry, size.X, size.Y, size.Z)
	}
	return &tileFrame{min: bmin, size: size, zmid: (bmin.Z + bmax.Z) / 2}, nil
}

func (f *tileFrame) local(p v3.Vec) (s, t, off float64) {
	return (p.X - f.min.X) / f.size.X, (p.Y - f.min.Y) / f.size.Y, p.Z - f.zmid
}

// HalfThickness is half the base tile's extent along z, the shell
// half-thickness after mapping.
func (f *tileFrame) HalfThickness() float64 { return f.size.Z / 2 }

// mapCell maps the base tile into one parameter cell at the given layer
// offset.
func mapCell(ctx context.Context, base *geom.Mesh, frame *tileFrame, cm *cellMap, layerOff float64) (*workMesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", scaffold.ErrTimeout, err)
	}
	w := &workMesh{
		pos:  make([]v3.Vec, 0, len(base.Vertices)),
		attr: make([]vertexAttr, 0, len(base.Vertices)),
		tris: make([][3]uint32, 0, base.TriangleCount()),
	}
	for _, p := range base.Vertices {
		s, t, off := frame.local(p)
		off += layerOff
		u, v := cm.params(s, t)
		w.addVertex(cm.point(s, t, off), vertexAttr{u: u, v: v, off: off})
	}
	for i := 0; i+2 < len(base.Indices); i += 3 {
		w.tris = append(w.tris, [3]uint32{base.Indices[i], base.Indices[i+1], base.Indices[i+2]})
	}
	return w, nil
}

// seamKey identifies a position on a shared cell boundary. axis is 'u'
// for a constant-u line and 'v' for a constant-v line; line is the grid
// index, along and off quantize the free coordinates.
type seamKey struct {
	axis       byte
	line       int
	along, off int64
}

func quantize(x float64) int64 {
	return int64(math.Round(x / geom.Eps))
}

// auditSeams verifies that every vertex a cell places on a shared grid
// line coincides, within tolerance, with the vertex the neighboring
// cell places there. Mapping bugs fail loudly here instead of producing
// a cracked shell.
func auditSeams(cells []*workMesh, req *Request) error {
	type sample struct {
		pos   v3.Vec
		along float64
	}
	seen := make(map[seamKey]sample)
	check := func(k seamKey, along float64, p v3.Vec) error {
		prev, ok := seen[k]
		if !ok {
			seen[k] = sample{pos: p, along: along}
			return nil
		}
		// Same quantization bucket but a different parameter value is
		// two distinct vertices, not a crack.
		if math.Abs(prev.along-along) > boundaryTol {
			return nil
		}
		if prev.pos.Sub(p).Length() > geom.Eps {
			return fmt.Errorf("%w: cell boundary vertex at %s-line %d diverges by %g mm",
				scaffold.ErrTilingSeam, string(k.axis), k.line, prev.pos.Sub(p).Length())
		}
		return nil
	}
	for ci, w := range cells {
		i, j := ci%req.TilesU, ci/req.TilesU
		for vi, a := range w.attr {
			p := w.pos[vi]
			if line := uLineIndex(a.u, i, req); line >= 0 {
				k := seamKey{axis: 'u', line: line, along: quantize(a.v), off: quantize(a.off)}
				if err := check(k, a.v, p); err != nil {
					return err
				}
			}
			if line := vLineIndex(a.v, j, req); line >= 0 {
				k := seamKey{axis: 'v', line: line, along: quantize(a.u), off: quantize(a.off)}
				if err := check(k, a.u, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// uLineIndex returns the grid line index if u lies on the boundary of
// cell column i, or -1 for interior vertices. Periodic surfaces fold
// the last line onto line zero.
func uLineIndex(u float64, i int, req *Request) int {
	du := 1.0 / float64(req.TilesU)
	lo, hi := float64(i)*du, float64(i+1)*du
	var line int
	switch {
	case math.Abs(u-lo) < boundaryTol:
		line = i
	case math.Abs(u-hi) < boundaryTol:
		line = i + 1
	default:
		return -1
	}
	if req.Surface.PeriodicU() && line == req.TilesU {
		return 0
	}
	return line
}

// vGrid returns the v coordinate of grid line j, shrunk away from the
// parametrization poles when the shape pinches there.
func vGrid(j int, req *Request) float64 {
	inset := req.Surface.vInset()
	return inset + float64(j)/float64(req.TilesV)*(1-2*inset)
}

func vLineIndex(v float64, j int, req *Request) int {
	lo, hi := vGrid(j, req), vGrid(j+1, req)
	var line int
	switch {
	case math.Abs(v-lo) < boundaryTol:
		line = j
	case math.Abs(v-hi) < boundaryTol:
		line = j + 1
	default:
		return -1
	}
	if req.Surface.PeriodicV() && line == req.TilesV {
		return 0
	}
	return line
}

// stitch joins the cell meshes into one shell. Seam vertices are first
// snapped to canonical positions, then coincident vertices are welded
// and the opposite-winding wall pairs left where neighboring tiles
// touch face to face are dropped, opening the tiles into one connected
// surface. Cells whose wall triangulations do not cancel stay closed
// components; the seal audit accepts both forms and rejects anything in
// between, and fuseShell merges the components afterwards.
func stitch(cells []*workMesh) *workMesh {
	total := &workMesh{}
	for _, w := range cells {
		off := uint32(len(total.pos))
		total.pos = append(total.pos, w.pos...)
		total.attr = append(total.attr, w.attr...)
		for _, t := range w.tris {
			total.tris = append(total.tris, [3]uint32{t[0] + off, t[1] + off, t[2] + off})
		}
	}
	snapPositions(total, geom.Eps)
	welded := weldWork(total, geom.Eps)
	welded.tris = dropOppositePairs(welded.tris)
	return welded
}

// snapPositions replaces each vertex position with the first position
// seen in its tolerance neighborhood, removing the floating-point drift
// between copies of a seam vertex computed by different cells.
func snapPositions(w *workMesh, tol float64) {
	type cellKey struct{ x, y, z int64 }
	keyOf := func(p v3.Vec) cellKey {
		return cellKey{int64(math.Round(p.X / tol)), int64(math.Round(p.Y / tol)), int64(math.Round(p.Z / tol))}
	}
	canon := make(map[cellKey]v3.Vec, len(w.pos))
	for i, p := range w.pos {
		k := keyOf(p)
		snapped := false
		for dx := int64(-1); dx <= 1 && !snapped; dx++ {
			for dy := int64(-1); dy <= 1 && !snapped; dy++ {
				for dz := int64(-1); dz <= 1 && !snapped; dz++ {
					if c, ok := canon[cellKey{k.x + dx, k.y + dy, k.z + dz}]; ok && c.Sub(p).Length() <= tol {
						w.pos[i] = c
						snapped = true
					}
				}
			}
		}
		if !snapped {
			canon[k] = p
		}
	}
}

// weldWork merges vertices closer than tol, keeping the first
// occurrence's attributes, and drops triangles that collapse.
func weldWork(w *workMesh, tol float64) *workMesh {
	type cellKey struct{ x, y, z int64 }
	keyOf := func(p v3.Vec) cellKey {
		return cellKey{int64(math.Round(p.X / tol)), int64(math.Round(p.Y / tol)), int64(math.Round(p.Z / tol))}
	}
	out := &workMesh{
		pos:  make([]v3.Vec, 0, len(w.pos)),
		attr: make([]vertexAttr, 0, len(w.attr)),
		tris: make([][3]uint32, 0, len(w.tris)),
	}
	occupants := make(map[cellKey][]uint32, len(w.pos))
	remap := make([]uint32, len(w.pos))
	for i, p := range w.pos {
		k := keyOf(p)
		found := false
		// Probe the neighborhood so near-coincident vertices straddling
		// a grid plane still merge.
		for dx := int64(-1); dx <= 1 && !found; dx++ {
			for dy := int64(-1); dy <= 1 && !found; dy++ {
				for dz := int64(-1); dz <= 1 && !found; dz++ {
					for _, idx := range occupants[cellKey{k.x + dx, k.y + dy, k.z + dz}] {
						if out.pos[idx].Sub(p).Length() <= tol {
							remap[i] = idx
							found = true
							break
						}
					}
				}
			}
		}
		if !found {
			idx := out.addVertex(p, w.attr[i])
			occupants[k] = append(occupants[k], idx)
			remap[i] = idx
		}
	}
	for _, t := range w.tris {
		a, b, c := remap[t[0]], remap[t[1]], remap[t[2]]
		if a == b || b == c || a == c {
			continue
		}
		out.tris = append(out.tris, [3]uint32{a, b, c})
	}
	return out
}

// dropOppositePairs removes triangle pairs that cover the same three
// vertices with opposite winding. After welding, the flat walls two
// neighboring tiles press against each other reduce to such pairs, and
// removing both opens the cells into one connected shell.
func dropOppositePairs(tris [][3]uint32) [][3]uint32 {
	type setKey [3]uint32
	canon := func(t [3]uint32) setKey {
		a, b, c := t[0], t[1], t[2]
		if a > b {
			a, b = b, a
		}
		if b > c {
			b, c = c, b
		}
		if a > b {
			a, b = b, a
		}
		return setKey{a, b, c}
	}
	groups := make(map[setKey][]int, len(tris))
	for i, t := range tris {
		groups[canon(t)] = append(groups[canon(t)], i)
	}
	sameWinding := func(a, b [3]uint32) bool {
		for r := 0; r < 3; r++ {
			if a[0] == b[r] && a[1] == b[(r+1)%3] && a[2] == b[(r+2)%3] {
				return true
			}
		}
		return false
	}
	drop := make(map[int]bool)
	for _, g := range groups {
		if len(g) == 2 && !sameWinding(tris[g[0]], tris[g[1]]) {
			drop[g[0]] = true
			drop[g[1]] = true
		}
	}
	if len(drop) == 0 {
		return tris
	}
	kept := make([][3]uint32, 0, len(tris)-len(drop))
	for i, t := range tris {
		if !drop[i] {
			kept = append(kept, t)
		}
	}
	return kept
}

// mapLayer maps the base tile into every cell at one layer offset,
// audits the seams and stitches the cells into a single shell.
func mapLayer(ctx context.Context, base *geom.Manifold, frame *tileFrame, req *Request, layerOff float64) (*workMesh, error) {
	nu, nv := req.TilesU, req.TilesV
	cells := make([]*workMesh, nu*nv)
	baseMesh := base.Mesh()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for j := 0; j < nv; j++ {
		for i := 0; i < nu; i++ {
			i, j := i, j
			g.Go(func() error {
				cm := newCellMap(&req.Surface,
					float64(i)/float64(nu), float64(i+1)/float64(nu),
					vGrid(j, req), vGrid(j+1, req))
				w, err := mapCell(gctx, baseMesh, frame, cm, layerOff)
				if err != nil {
					return fmt.Errorf("cell (%d,%d): %w", i, j, err)
				}
				cells[j*nu+i] = w
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := auditSeams(cells, req); err != nil {
		return nil, err
	}
	return stitch(cells), nil
}

// sealLayer refines a stitched shell and seals it.
func sealLayer(ctx context.Context, w *workMesh, req *Request) (*geom.Manifold, error) {
	if req.RefineEdgeLengthMM > 0 {
		if err := refine(ctx, w, &req.Surface, req.RefineEdgeLengthMM); err != nil {
			return nil, err
		}
	}
	solid, err := geom.Seal(w.mesh())
	if err != nil {
		return nil, fmt.Errorf("%w: tiled shell failed the manifold audit: %v", scaffold.ErrDegenerateGeometry, err)
	}
	return solid, nil
}
