package measurement

import (
	"fmt"

	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// PlaceholderID marks an entity created locally that the server has not
// confirmed yet. It is never stored in a Registry.
const PlaceholderID = -1

// Endpoint selects one of the two points of an entity
type Endpoint int

const (
	StartPoint Endpoint = iota
	EndPoint
)

func (e Endpoint) String() string {
	if e == StartPoint {
		return "start"
	}
	return "end"
}

// Other returns the opposite endpoint
func (e Endpoint) Other() Endpoint {
	if e == StartPoint {
		return EndPoint
	}
	return StartPoint
}

// Entity is a distance measurement between two points.
// Distance always equals the Euclidean distance between Start and End.
type Entity struct {
	ID       int
	Start    geometry.Vector3
	End      geometry.Vector3
	Distance float64
}

// NewEntity builds an entity and derives its distance
func NewEntity(id int, start, end geometry.Vector3) *Entity {
	e := &Entity{ID: id}
	e.SetPoints(start, end)
	return e
}

// SetPoints replaces both endpoints and recomputes the distance
func (e *Entity) SetPoints(start, end geometry.Vector3) {
	e.Start = start
	e.End = end
	e.Distance = start.Distance(end)
}

// Point returns the requested endpoint
func (e *Entity) Point(which Endpoint) geometry.Vector3 {
	if which == StartPoint {
		return e.Start
	}
	return e.End
}

// WithPoint returns the endpoints that result from moving one of them to p.
// The entity itself is not changed.
func (e *Entity) WithPoint(which Endpoint, p geometry.Vector3) (start, end geometry.Vector3) {
	if which == StartPoint {
		return p, e.End
	}
	return e.Start, p
}

// Label is the text shown next to the measurement line
func (e *Entity) Label() string {
	return fmt.Sprintf("%.2f", e.Distance)
}

func (e *Entity) String() string {
	return fmt.Sprintf("measurement %d (%.3f)", e.ID, e.Distance)
}
