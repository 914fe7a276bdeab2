// Package formats provides mesh serialization for fabrication formats.
package formats

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/geom"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLASCII  = errors.New("malformed ASCII STL")
	ErrEmptySTL         = errors.New("STL contains no triangles")
	ErrSTLCountMismatch = errors.New("STL triangle count does not match payload")
	ErrSTLTooManyFacets = errors.New("STL facet count exceeds the supported limit")
)

const (
	stlHeaderSize = 80
	// stlFacetSize is 12 float32s (normal + 3 vertices) plus the
	// attribute byte count.
	stlFacetSize = 12*4 + 2

	// maxSTLFacets bounds parser allocations for hostile inputs.
	maxSTLFacets = 50_000_000
)

// defaultSTLHeader fills the 80-byte binary header. Writers must not
// start the header with "solid", which some parsers use to detect the
// ASCII variant.
const defaultSTLHeader = "MorphoStruct binary STL"

// EncodeSTL serializes the mesh as binary STL: an 80-byte header, a
// little-endian uint32 facet count, then per facet a float32 normal,
// three float32 vertices and a zero attribute count.
func EncodeSTL(m *geom.Mesh) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(stlHeaderSize + 4 + m.TriangleCount()*stlFacetSize)

	var header [stlHeaderSize]byte
	copy(header[:], defaultSTLHeader)
	buf.Write(header[:])

	binary.Write(buf, binary.LittleEndian, uint32(m.TriangleCount()))
	for t := 0; t < m.TriangleCount(); t++ {
		writeVec(buf, m.FaceNormal(t))
		a, b, c := m.Triangle(t)
		writeVec(buf, a)
		writeVec(buf, b)
		writeVec(buf, c)
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func writeVec(buf *bytes.Buffer, v v3.Vec) {
	binary.Write(buf, binary.LittleEndian, float32(v.X))
	binary.Write(buf, binary.LittleEndian, float32(v.Y))
	binary.Write(buf, binary.LittleEndian, float32(v.Z))
}

// EncodeSTLASCII serializes the mesh as ASCII STL under the given solid
// name.
func EncodeSTLASCII(m *geom.Mesh, name string) []byte {
	if name == "" {
		name = "scaffold"
	}
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "solid %s\n", name)
	for t := 0; t < m.TriangleCount(); t++ {
		n := m.FaceNormal(t)
		fmt.Fprintf(buf, "  facet normal %e %e %e\n", n.X, n.Y, n.Z)
		buf.WriteString("    outer loop\n")
		a, b, c := m.Triangle(t)
		for _, v := range []v3.Vec{a, b, c} {
			fmt.Fprintf(buf, "      vertex %e %e %e\n", v.X, v.Y, v.Z)
		}
		buf.WriteString("    endloop\n")
		buf.WriteString("  endfacet\n")
	}
	fmt.Fprintf(buf, "endsolid %s\n", name)
	return buf.Bytes()
}

// EncodeSTLBase64 returns the binary STL encoding as a base64 string,
// the transport form handed to API callers.
func EncodeSTLBase64(m *geom.Mesh) string {
	return base64.StdEncoding.EncodeToString(EncodeSTL(m))
}

// ParseSTL decodes binary or ASCII STL data. Coincident vertices are
// welded so the result is indexed rather than triangle soup.
func ParseSTL(data []byte) (*geom.Mesh, error) {
	if looksASCII(data) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

// looksASCII reports whether the payload is the ASCII variant. The
// "solid" prefix alone is not sufficient: some binary writers start
// their header with it, so the facet keyword must appear too.
func looksASCII(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("solid")) && bytes.Contains(head, []byte("facet"))
}

func parseBinarySTL(data []byte) (*geom.Mesh, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedSTLData, len(data))
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	if count == 0 {
		return nil, ErrEmptySTL
	}
	if count > maxSTLFacets {
		return nil, fmt.Errorf("%w: %d facets", ErrSTLTooManyFacets, count)
	}
	payload := data[stlHeaderSize+4:]
	if len(payload) < int(count)*stlFacetSize {
		return nil, fmt.Errorf("%w: %d facets declared, %d bytes of payload",
			ErrSTLCountMismatch, count, len(payload))
	}

	m := geom.NewMesh(int(count)*3, int(count))
	for i := 0; i < int(count); i++ {
		facet := payload[i*stlFacetSize:]
		// The stored normal is ignored; it is recomputed from the
		// winding on demand.
		a := readVec(facet[12:])
		b := readVec(facet[24:])
		c := readVec(facet[36:])
		m.AddTriangle(a, b, c)
	}
	return geom.Weld(m, geom.Eps), nil
}

func readVec(b []byte) v3.Vec {
	bits := func(off int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[off:])))
	}
	return v3.Vec{X: bits(0), Y: bits(4), Z: bits(8)}
}

func parseASCIISTL(data []byte) (*geom.Mesh, error) {
	m := geom.NewMesh(0, 0)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var loop []v3.Vec
	inLoop := false
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid", "endsolid", "facet", "endfacet":
			// facet normals are recomputed from winding; nothing to keep
		case "outer":
			inLoop = true
			loop = loop[:0]
		case "endloop":
			if !inLoop || len(loop) != 3 {
				return nil, fmt.Errorf("%w: line %d: loop has %d vertices, want 3", ErrInvalidSTLASCII, line, len(loop))
			}
			m.AddTriangle(loop[0], loop[1], loop[2])
			inLoop = false
		case "vertex":
			if !inLoop || len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: malformed vertex", ErrInvalidSTLASCII, line)
			}
			var v v3.Vec
			if _, err := fmt.Sscan(fields[1], &v.X); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLASCII, line, err)
			}
			if _, err := fmt.Sscan(fields[2], &v.Y); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLASCII, line, err)
			}
			if _, err := fmt.Sscan(fields[3], &v.Z); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLASCII, line, err)
			}
			loop = append(loop, v)
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected token %q", ErrInvalidSTLASCII, line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSTLASCII, err)
	}
	if m.TriangleCount() == 0 {
		return nil, ErrEmptySTL
	}
	return geom.Weld(m, geom.Eps), nil
}
