package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/gomeasure/pkg/geometry"
)

const (
	binaryHeaderSize = 80
	binaryFacetSize  = 50
)

// Parse reads an STL file and returns a Model.
// ASCII and binary files are both accepted.
func Parse(filename string) (*Model, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return ParseBytes(data)
}

// ParseBytes decodes an in-memory STL file.
func ParseBytes(data []byte) (*Model, error) {
	// Binary files may also start with "solid", so trust the size field when it matches.
	if isBinary(data) {
		return parseBinary(data)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("solid")) {
		return parseASCII(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("unrecognized STL data (%d bytes)", len(data))
}

func isBinary(data []byte) bool {
	if len(data) < binaryHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
	return len(data) == binaryHeaderSize+4+int(count)*binaryFacetSize
}

func parseASCII(r io.Reader) (*Model, error) {
	model := NewModel("")
	scanner := bufio.NewScanner(r)

	var normal geometry.Vector3
	vertices := make([]geometry.Vector3, 0, 3)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			model.Name = strings.Join(fields[1:], " ")
		case "facet":
			if len(fields) == 5 && fields[1] == "normal" {
				v, err := parseVertex(fields[2:])
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				normal = v
			}
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			v, err := parseVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vertices = append(vertices, v)
		case "endfacet":
			if len(vertices) == 3 {
				model.AddTriangle(geometry.NewTriangle(normal, vertices[0], vertices[1], vertices[2]))
			}
			vertices = vertices[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}
	return model, nil
}

func parseVertex(fields []string) (geometry.Vector3, error) {
	var c [3]float64
	for i := range c {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return geometry.Vector3{}, fmt.Errorf("bad coordinate %q: %w", fields[i], err)
		}
		c[i] = f
	}
	return geometry.NewVector3(c[0], c[1], c[2]), nil
}

func parseBinary(data []byte) (*Model, error) {
	model := NewModel(string(bytes.TrimRight(data[:binaryHeaderSize], "\x00 ")))
	count := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
	model.Triangles = make([]geometry.Triangle, 0, count)

	offset := binaryHeaderSize + 4
	for i := uint32(0); i < count; i++ {
		facet := data[offset : offset+binaryFacetSize]
		var v [4]geometry.Vector3
		for j := range v {
			v[j] = readVector(facet[j*12:])
		}
		model.AddTriangle(geometry.NewTriangle(v[0], v[1], v[2], v[3]))
		offset += binaryFacetSize
	}
	return model, nil
}

func readVector(b []byte) geometry.Vector3 {
	f := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return geometry.NewVector3(f(0), f(1), f(2))
}
