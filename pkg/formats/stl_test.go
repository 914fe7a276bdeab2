package formats

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
)

// testTetrahedron builds a small closed mesh with known geometry.
func testTetrahedron() *geom.Mesh {
	m := geom.NewMesh(4, 4)
	a := m.AddVertex(v3.Vec{})
	b := m.AddVertex(v3.Vec{X: 1})
	c := m.AddVertex(v3.Vec{Y: 1})
	d := m.AddVertex(v3.Vec{Z: 1})
	m.AddFace(a, c, b)
	m.AddFace(a, b, d)
	m.AddFace(a, d, c)
	m.AddFace(b, c, d)
	return m
}

// createBinarySTL assembles a binary STL payload facet by facet.
func createBinarySTL(header string, facets [][3]v3.Vec) []byte {
	buf := new(bytes.Buffer)
	var h [stlHeaderSize]byte
	copy(h[:], header)
	buf.Write(h[:])
	binary.Write(buf, binary.LittleEndian, uint32(len(facets)))
	for _, f := range facets {
		for i := 0; i < 12; i++ {
			var val float32
			if i >= 3 {
				v := f[i/3-1]
				switch i % 3 {
				case 0:
					val = float32(v.X)
				case 1:
					val = float32(v.Y)
				case 2:
					val = float32(v.Z)
				}
			}
			binary.Write(buf, binary.LittleEndian, val)
		}
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func TestEncodeSTLLayout(t *testing.T) {
	m := testTetrahedron()
	data := EncodeSTL(m)

	wantLen := stlHeaderSize + 4 + 4*stlFacetSize
	if len(data) != wantLen {
		t.Fatalf("encoded %d bytes, want %d", len(data), wantLen)
	}
	if bytes.HasPrefix(data, []byte("solid")) {
		t.Fatal("binary header must not start with 'solid'")
	}
	if count := binary.LittleEndian.Uint32(data[stlHeaderSize:]); count != 4 {
		t.Fatalf("facet count %d, want 4", count)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	m := testTetrahedron()
	parsed, err := ParseSTL(EncodeSTL(m))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if parsed.TriangleCount() != m.TriangleCount() {
		t.Fatalf("triangle count %d, want %d", parsed.TriangleCount(), m.TriangleCount())
	}
	// Welding restores the indexed form.
	if parsed.VertexCount() != m.VertexCount() {
		t.Fatalf("vertex count %d, want %d", parsed.VertexCount(), m.VertexCount())
	}
	for i := 0; i < m.TriangleCount(); i++ {
		a, b, c := m.Triangle(i)
		pa, pb, pc := parsed.Triangle(i)
		for _, pair := range [][2]v3.Vec{{a, pa}, {b, pb}, {c, pc}} {
			if pair[0].Sub(pair[1]).Length() > 1e-6 {
				t.Fatalf("triangle %d: vertex %v round-tripped to %v", i, pair[0], pair[1])
			}
		}
	}
	if _, err := geom.Seal(parsed); err != nil {
		t.Fatalf("round-tripped mesh is no longer sealed: %v", err)
	}
}

func TestASCIIRoundTrip(t *testing.T) {
	m := testTetrahedron()
	data := EncodeSTLASCII(m, "tetra")

	text := string(data)
	if !strings.HasPrefix(text, "solid tetra\n") || !strings.HasSuffix(text, "endsolid tetra\n") {
		t.Fatalf("missing solid framing:\n%s", text)
	}
	if got := strings.Count(text, "facet normal"); got != 4 {
		t.Fatalf("%d facets, want 4", got)
	}

	parsed, err := ParseSTL(data)
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if parsed.TriangleCount() != 4 {
		t.Fatalf("triangle count %d, want 4", parsed.TriangleCount())
	}
	if math.Abs(parsed.SignedVolume()-m.SignedVolume()) > 1e-6 {
		t.Fatalf("volume %g, want %g", parsed.SignedVolume(), m.SignedVolume())
	}
}

func TestEncodeSTLBase64(t *testing.T) {
	m := testTetrahedron()
	decoded, err := base64.StdEncoding.DecodeString(EncodeSTLBase64(m))
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if !bytes.Equal(decoded, EncodeSTL(m)) {
		t.Fatal("base64 payload does not match the binary encoding")
	}
}

func TestParseSTL_BinaryWithSolidHeader(t *testing.T) {
	// A binary file whose header happens to begin with "solid" must
	// still parse as binary.
	facets := [][3]v3.Vec{{{}, {X: 1}, {Y: 1}}}
	data := createBinarySTL("solid but binary", facets)
	m, err := ParseSTL(data)
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Fatalf("triangle count %d, want 1", m.TriangleCount())
	}
}

func TestParseSTL_Truncated(t *testing.T) {
	data := EncodeSTL(testTetrahedron())
	_, err := ParseSTL(data[:len(data)-10])
	if !errors.Is(err, ErrSTLCountMismatch) {
		t.Fatalf("got %v, want count mismatch", err)
	}
	_, err = ParseSTL(data[:40])
	if !errors.Is(err, ErrTruncatedSTLData) {
		t.Fatalf("got %v, want truncated", err)
	}
}

func TestParseSTL_Empty(t *testing.T) {
	_, err := ParseSTL(createBinarySTL("empty", nil))
	if !errors.Is(err, ErrEmptySTL) {
		t.Fatalf("got %v, want empty", err)
	}
}

func TestParseSTL_MalformedASCII(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"short loop", "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\nendfacet\nendsolid x\n"},
		{"bad vertex", "solid x\nfacet normal 0 0 1\nouter loop\nvertex a b c\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\nendsolid x\n"},
		{"stray token", "solid x\nfacet normal 0 0 1\nwibble\nendsolid x\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseSTL([]byte(tc.text)); !errors.Is(err, ErrInvalidSTLASCII) {
				t.Fatalf("got %v, want malformed ASCII", err)
			}
		})
	}
}
