package geometry

import (
	"math"
	"testing"
)

func TestRayIntersectTriangle(t *testing.T) {
	// Triangle in the z=0 plane
	tri := NewTriangle(
		NewVector3(0, 0, 1),
		NewVector3(0, 0, 0),
		NewVector3(4, 0, 0),
		NewVector3(0, 4, 0),
	)

	tests := []struct {
		name string
		ray  Ray
		hit  bool
		at   Vector3
	}{
		{"straight down inside", Ray{NewVector3(1, 1, 5), NewVector3(0, 0, -1)}, true, NewVector3(1, 1, 0)},
		{"from below", Ray{NewVector3(1, 1, -5), NewVector3(0, 0, 1)}, true, NewVector3(1, 1, 0)},
		{"outside hypotenuse", Ray{NewVector3(3, 3, 5), NewVector3(0, 0, -1)}, false, Vector3{}},
		{"pointing away", Ray{NewVector3(1, 1, 5), NewVector3(0, 0, 1)}, false, Vector3{}},
		{"parallel", Ray{NewVector3(1, 1, 5), NewVector3(1, 0, 0)}, false, Vector3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ok := tt.ray.IntersectTriangle(tri)
			if ok != tt.hit {
				t.Fatalf("IntersectTriangle hit = %v, want %v", ok, tt.hit)
			}
			if !ok {
				return
			}
			if got := tt.ray.At(dist); got.Distance(tt.at) > 1e-10 {
				t.Errorf("IntersectTriangle point = %v, want %v", got, tt.at)
			}
		})
	}
}

func TestRayIntersectPlane(t *testing.T) {
	ray := Ray{Origin: NewVector3(0, 10, 0), Direction: NewVector3(0, -1, 0)}

	dist, ok := ray.IntersectPlane(Vector3{}, NewVector3(0, 1, 0))
	if !ok {
		t.Fatalf("expected plane hit")
	}
	if math.Abs(dist-10) > 1e-10 {
		t.Errorf("IntersectPlane distance = %v, want 10", dist)
	}

	if _, ok := (Ray{Origin: NewVector3(0, 10, 0), Direction: NewVector3(1, 0, 0)}).IntersectPlane(Vector3{}, NewVector3(0, 1, 0)); ok {
		t.Errorf("parallel ray should not hit the plane")
	}
}

func TestTriangleFaceNormal(t *testing.T) {
	wound := NewTriangle(Vector3{}, NewVector3(0, 0, 0), NewVector3(1, 0, 0), NewVector3(0, 1, 0))
	if n := wound.FaceNormal(); n.Distance(NewVector3(0, 0, 1)) > 1e-10 {
		t.Errorf("winding normal = %v, want (0,0,1)", n)
	}

	stored := NewTriangle(NewVector3(0, 2, 0), NewVector3(0, 0, 0), NewVector3(1, 0, 0), NewVector3(0, 1, 0))
	if n := stored.FaceNormal(); n.Distance(NewVector3(0, 1, 0)) > 1e-10 {
		t.Errorf("stored normal = %v, want (0,1,0)", n)
	}
}
