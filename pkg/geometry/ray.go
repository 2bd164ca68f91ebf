package geometry

import "math"

const rayEpsilon = 1e-9

// Ray is a half-line starting at Origin and extending along Direction
type Ray struct {
	Origin    Vector3
	Direction Vector3
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vector3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Triangle represents a triangular facet in 3D space
type Triangle struct {
	Normal     Vector3
	V1, V2, V3 Vector3
}

// NewTriangle creates a new triangle
func NewTriangle(normal, v1, v2, v3 Vector3) Triangle {
	return Triangle{Normal: normal, V1: v1, V2: v2, V3: v3}
}

// FaceNormal returns the stored normal, or the winding normal when the
// stored one is zero
func (t Triangle) FaceNormal() Vector3 {
	if t.Normal.Length() > 0 {
		return t.Normal.Normalize()
	}
	return t.V2.Sub(t.V1).Cross(t.V3.Sub(t.V1)).Normalize()
}

// IntersectTriangle returns the ray parameter of the closest hit with tri.
// Uses the Moller-Trumbore test; back faces count as hits.
func (r Ray) IntersectTriangle(tri Triangle) (float64, bool) {
	edge1 := tri.V2.Sub(tri.V1)
	edge2 := tri.V3.Sub(tri.V1)
	p := r.Direction.Cross(edge2)
	det := edge1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1.0 / det

	s := r.Origin.Sub(tri.V1)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := edge2.Dot(q) * inv
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}

// IntersectPlane returns the ray parameter where it crosses the plane through
// point with the given normal. Rays parallel to the plane never hit.
func (r Ray) IntersectPlane(point, normal Vector3) (float64, bool) {
	denom := normal.Dot(r.Direction)
	if math.Abs(denom) < rayEpsilon {
		return 0, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}
