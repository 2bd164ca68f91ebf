package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// ErrMalformed marks frames or payloads that do not match the schema
var ErrMalformed = errors.New("malformed message")

// Encode builds a complete frame for payload
func Encode(t MessageType, requestID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Version: Version, RequestID: requestID, Payload: raw})
}

// Frames yields the non-blank frames of a newline-separated message
func Frames(data []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for _, frame := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}
			if !yield(frame) {
				return
			}
		}
	}
}

// DecodeEnvelope parses a frame and checks its version and type
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := strict(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}
	if env.Version != Version {
		return Envelope{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, env.Version)
	}
	if !env.Type.Known() {
		return Envelope{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
	if len(env.Payload) == 0 {
		return Envelope{}, fmt.Errorf("%w: %s without payload", ErrMalformed, env.Type)
	}
	return env, nil
}

type measurementWire struct {
	ID       *int     `json:"measurement_instance_id"`
	Start    *Point   `json:"startPoint"`
	End      *Point   `json:"endPoint"`
	Distance *float64 `json:"distanceMeasured"`
}

// DecodeMeasurement parses a Create/Update payload. The id and both points
// are required; point components that are absent decode as zero.
func DecodeMeasurement(raw []byte) (Measurement, error) {
	var w measurementWire
	if err := strict(raw, &w); err != nil {
		return Measurement{}, fmt.Errorf("%w: measurement: %v", ErrMalformed, err)
	}
	switch {
	case w.ID == nil:
		return Measurement{}, fmt.Errorf("%w: measurement_instance_id missing", ErrMalformed)
	case w.Start == nil:
		return Measurement{}, fmt.Errorf("%w: startPoint missing", ErrMalformed)
	case w.End == nil:
		return Measurement{}, fmt.Errorf("%w: endPoint missing", ErrMalformed)
	}

	m := Measurement{ID: *w.ID, Start: *w.Start, End: *w.End}
	if w.Distance != nil {
		m.Distance = *w.Distance
	}
	return m, nil
}

// DecodeDelete parses a DeleteMeasurement payload
func DecodeDelete(raw []byte) (Delete, error) {
	var w struct {
		ID *int `json:"measurement_instance_id"`
	}
	if err := strict(raw, &w); err != nil {
		return Delete{}, fmt.Errorf("%w: delete: %v", ErrMalformed, err)
	}
	if w.ID == nil {
		return Delete{}, fmt.Errorf("%w: measurement_instance_id missing", ErrMalformed)
	}
	return Delete{ID: *w.ID}, nil
}

// strict decodes exactly one JSON value and rejects unknown fields,
// including nested ones such as legacy "_x" point components.
func strict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}
