// Package protocol is the wire schema shared by clients and the relay.
//
// Every frame is an Envelope carrying one of the measurement messages as its
// payload. There is one schema version and one decoder; anything that does
// not match it is reported as ErrMalformed.
package protocol

import (
	"encoding/json"

	"github.com/philipparndt/gomeasure/pkg/geometry"
)

// Version is the only envelope version this build speaks
const Version = 1

// MessageType names the payload carried by an envelope
type MessageType string

const (
	CreateMeasurement MessageType = "CreateMeasurement"
	UpdateMeasurement MessageType = "UpdateMeasurement"
	DeleteMeasurement MessageType = "DeleteMeasurement"
)

// Known reports whether t is a message type of this schema
func (t MessageType) Known() bool {
	switch t {
	case CreateMeasurement, UpdateMeasurement, DeleteMeasurement:
		return true
	}
	return false
}

// Envelope frames a payload on the wire
type Envelope struct {
	Type      MessageType     `json:"type"`
	Version   int             `json:"version"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Point is a 3D point on the wire
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PointFrom converts a vector to its wire form
func PointFrom(v geometry.Vector3) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// Vector converts the wire point to a vector
func (p Point) Vector() geometry.Vector3 {
	return geometry.NewVector3(p.X, p.Y, p.Z)
}

// Measurement is the payload of CreateMeasurement and UpdateMeasurement
type Measurement struct {
	ID       int     `json:"measurement_instance_id"`
	Start    Point   `json:"startPoint"`
	End      Point   `json:"endPoint"`
	Distance float64 `json:"distanceMeasured"`
}

// Delete is the payload of DeleteMeasurement
type Delete struct {
	ID int `json:"measurement_instance_id"`
}
