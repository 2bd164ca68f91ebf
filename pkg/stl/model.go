package stl

import (
	"math"

	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// Model is a triangle soup loaded from an STL file. It is used as the
// pickable surface that measurements are placed on.
type Model struct {
	Name      string
	Triangles []geometry.Triangle
}

// NewModel creates an empty model
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddTriangle appends a facet
func (m *Model) AddTriangle(t geometry.Triangle) {
	m.Triangles = append(m.Triangles, t)
}

// Bounds returns the axis aligned min and max corners of the model.
// An empty model reports two zero vectors.
func (m *Model) Bounds() (geometry.Vector3, geometry.Vector3) {
	if len(m.Triangles) == 0 {
		return geometry.Vector3{}, geometry.Vector3{}
	}
	inf := math.Inf(1)
	lo := geometry.NewVector3(inf, inf, inf)
	hi := geometry.NewVector3(-inf, -inf, -inf)
	for _, t := range m.Triangles {
		for _, v := range [3]geometry.Vector3{t.V1, t.V2, t.V3} {
			lo = geometry.NewVector3(math.Min(lo.X, v.X), math.Min(lo.Y, v.Y), math.Min(lo.Z, v.Z))
			hi = geometry.NewVector3(math.Max(hi.X, v.X), math.Max(hi.Y, v.Y), math.Max(hi.Z, v.Z))
		}
	}
	return lo, hi
}
