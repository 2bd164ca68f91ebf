// Package pick defines the picking boundary: what lies under the cursor.
package pick

import (
	"fmt"

	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// Target is what the cursor is over. It is one of None, Other or Endpoint.
type Target interface {
	isTarget()
}

// None means no collider is under the cursor
type None struct{}

// Other is a collider that is not a measurement endpoint
type Other struct{}

// Endpoint is the collider of one endpoint of a confirmed measurement
type Endpoint struct {
	EntityID int
	Role     measurement.Endpoint
}

func (None) isTarget()     {}
func (Other) isTarget()    {}
func (Endpoint) isTarget() {}

func (e Endpoint) String() string {
	return fmt.Sprintf("endpoint %d/%s", e.EntityID, e.Role)
}

// Result is a single pick. Point is only meaningful when Hit is true.
type Result struct {
	Hit    bool
	Point  geometry.Vector3
	Target Target
}

// Miss is the result of a pick that found nothing
var Miss = Result{Target: None{}}

// EndpointTarget returns the endpoint target of r, if there is one
func (r Result) EndpointTarget() (Endpoint, bool) {
	ep, ok := r.Target.(Endpoint)
	return ep, ok
}

// Picker resolves a screen position to a Result
type Picker interface {
	Pick(screenX, screenY float64) Result
}

// PickerFunc adapts a function to Picker
type PickerFunc func(screenX, screenY float64) Result

func (f PickerFunc) Pick(screenX, screenY float64) Result { return f(screenX, screenY) }
