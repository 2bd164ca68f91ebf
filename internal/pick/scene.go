package pick

import (
	"iter"
	"math"

	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// Projector maps between screen and world space for the active camera
type Projector interface {
	// Ray returns the world-space ray under a screen position
	Ray(screenX, screenY float64) geometry.Ray
	// ToScreen projects a world point. ok is false when the point is behind the camera.
	ToScreen(p geometry.Vector3) (x, y float64, ok bool)
}

// EntitySource lists the measurements whose endpoints are pickable
type EntitySource interface {
	Values() iter.Seq[*measurement.Entity]
}

// ScenePicker picks against a static surface (triangles plus an optional
// ground plane) and against screen-space endpoint colliders.
type ScenePicker struct {
	Projector Projector
	Entities  EntitySource
	Surface   []geometry.Triangle
	// GroundPlane enables an infinite y=GroundHeight plane
	GroundPlane  bool
	GroundHeight float64
	// EndpointRadius is the collider radius in pixels
	EndpointRadius float64
	// Hidden reports entities that must not be picked (for example the one being moved)
	Hidden func(id int) bool
}

// Pick implements Picker. Endpoints win over the surface when both are under
// the cursor; the reported point is then the endpoint position itself.
func (s *ScenePicker) Pick(screenX, screenY float64) Result {
	if ep, p, ok := s.pickEndpoint(screenX, screenY); ok {
		return Result{Hit: true, Point: p, Target: ep}
	}

	ray := s.Projector.Ray(screenX, screenY)
	best := math.Inf(1)
	for _, tri := range s.Surface {
		if t, ok := ray.IntersectTriangle(tri); ok && t < best {
			best = t
		}
	}
	if s.GroundPlane {
		plane := geometry.NewVector3(0, s.GroundHeight, 0)
		if t, ok := ray.IntersectPlane(plane, geometry.NewVector3(0, 1, 0)); ok && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return Miss
	}
	return Result{Hit: true, Point: ray.At(best), Target: None{}}
}

func (s *ScenePicker) pickEndpoint(x, y float64) (Endpoint, geometry.Vector3, bool) {
	if s.Entities == nil || s.EndpointRadius <= 0 {
		return Endpoint{}, geometry.Vector3{}, false
	}

	var (
		found Endpoint
		point geometry.Vector3
		ok    bool
	)
	best := s.EndpointRadius * s.EndpointRadius
	for e := range s.Entities.Values() {
		if s.Hidden != nil && s.Hidden(e.ID) {
			continue
		}
		for _, role := range [2]measurement.Endpoint{measurement.StartPoint, measurement.EndPoint} {
			p := e.Point(role)
			sx, sy, visible := s.Projector.ToScreen(p)
			if !visible {
				continue
			}
			d := (sx-x)*(sx-x) + (sy-y)*(sy-y)
			if d <= best {
				best = d
				found = Endpoint{EntityID: e.ID, Role: role}
				point = p
				ok = true
			}
		}
	}
	return found, point, ok
}
