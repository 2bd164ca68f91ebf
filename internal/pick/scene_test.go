package pick

import (
	"testing"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// topDown looks straight down the -Y axis; screen x/y map to world x/z.
type topDown struct{}

func (topDown) Ray(x, y float64) geometry.Ray {
	return geometry.Ray{Origin: geometry.NewVector3(x, 100, y), Direction: geometry.NewVector3(0, -1, 0)}
}

func (topDown) ToScreen(p geometry.Vector3) (float64, float64, bool) {
	return p.X, p.Z, true
}

func newScene(t *testing.T) (*ScenePicker, *measurement.Registry) {
	t.Helper()
	reg := measurement.NewRegistry(logger.Discard())
	if _, _, err := reg.Upsert(1, geometry.NewVector3(0, 0, 0), geometry.NewVector3(10, 0, 0)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	return &ScenePicker{
		Projector:      topDown{},
		Entities:       reg,
		GroundPlane:    true,
		EndpointRadius: 2,
	}, reg
}

func TestScenePickerEndpointWins(t *testing.T) {
	s, _ := newScene(t)

	res := s.Pick(9.5, 0.5)
	ep, ok := res.EndpointTarget()
	if !ok {
		t.Fatalf("expected endpoint target, got %#v", res.Target)
	}
	if ep.EntityID != 1 || ep.Role != measurement.EndPoint {
		t.Errorf("unexpected endpoint %v", ep)
	}
	if res.Point != geometry.NewVector3(10, 0, 0) {
		t.Errorf("expected endpoint position, got %v", res.Point)
	}
}

func TestScenePickerGround(t *testing.T) {
	s, _ := newScene(t)

	res := s.Pick(5, 5)
	if !res.Hit {
		t.Fatalf("expected ground hit")
	}
	if _, ok := res.Target.(None); !ok {
		t.Errorf("expected None target, got %#v", res.Target)
	}
	if res.Point.Distance(geometry.NewVector3(5, 0, 5)) > 1e-9 {
		t.Errorf("unexpected ground point %v", res.Point)
	}
}

func TestScenePickerHiddenEntity(t *testing.T) {
	s, _ := newScene(t)
	s.Hidden = func(id int) bool { return id == 1 }

	if _, ok := s.Pick(0, 0).EndpointTarget(); ok {
		t.Errorf("hidden entity endpoints must not be pickable")
	}
}

func TestScenePickerSurfaceCloserThanGround(t *testing.T) {
	s, _ := newScene(t)
	s.Surface = []geometry.Triangle{geometry.NewTriangle(
		geometry.NewVector3(0, 1, 0),
		geometry.NewVector3(20, 5, 20),
		geometry.NewVector3(40, 5, 20),
		geometry.NewVector3(20, 5, 40),
	)}

	res := s.Pick(25, 25)
	if !res.Hit || res.Point.Y < 4.999 {
		t.Errorf("expected surface hit at y=5, got %+v", res)
	}
}

func TestScenePickerMiss(t *testing.T) {
	s, _ := newScene(t)
	s.GroundPlane = false

	res := s.Pick(50, 50)
	if res.Hit {
		t.Errorf("expected miss, got %+v", res)
	}
	if _, ok := res.Target.(None); !ok {
		t.Errorf("miss should carry None target")
	}
}
