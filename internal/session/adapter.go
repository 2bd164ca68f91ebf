// Package session connects the local registry to the relay. Outbound it turns
// intents into requests; inbound it applies the relay's broadcasts, which are
// the only writes the registry ever sees.
package session

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/measurement"
	"github.com/philipparndt/gomeasure/internal/protocol"
	"github.com/philipparndt/gomeasure/internal/transport"
	"github.com/philipparndt/gomeasure/pkg/geometry"
)

const (
	// pendingRequests bounds how many unanswered request ids are remembered
	pendingRequests = 512
	distanceEpsilon = 1e-9
)

// Adapter is the only writer of its registry. It is not safe for concurrent
// use; transports deliver on the event loop goroutine.
type Adapter struct {
	transport transport.Transport
	registry  *measurement.Registry
	log       *slog.Logger

	observers []Observer
	subs      []transport.Subscription
	pending   *lru.Cache[string, protocol.MessageType]

	dispatching bool
	queue       []func()
}

// New creates an adapter. Call Start to begin receiving.
func New(t transport.Transport, registry *measurement.Registry, log *slog.Logger) *Adapter {
	pending, err := lru.New[string, protocol.MessageType](pendingRequests)
	if err != nil {
		panic(err)
	}
	return &Adapter{
		transport: t,
		registry:  registry,
		log:       logger.For(log, logger.AreaSession),
		pending:   pending,
	}
}

// Registry returns the registry the adapter writes to
func (a *Adapter) Registry() *measurement.Registry {
	return a.registry
}

// Observe registers o. Observers run in registration order after every
// registry mutation.
func (a *Adapter) Observe(o Observer) {
	a.observers = append(a.observers, o)
}

// Start subscribes to all measurement messages. Calling it twice is harmless.
func (a *Adapter) Start() {
	if len(a.subs) > 0 {
		return
	}
	a.subs = []transport.Subscription{
		a.transport.Subscribe(protocol.CreateMeasurement, a.receive),
		a.transport.Subscribe(protocol.UpdateMeasurement, a.receive),
		a.transport.Subscribe(protocol.DeleteMeasurement, a.receive),
	}
}

// Close removes every subscription made by Start
func (a *Adapter) Close() {
	for _, s := range a.subs {
		s.Remove()
	}
	a.subs = nil
}

// Outstanding returns the number of requests still waiting for their broadcast
func (a *Adapter) Outstanding() int {
	return a.pending.Len()
}

// RequestCreate asks the relay to create a measurement. The id is assigned
// by the relay and arrives with the broadcast.
func (a *Adapter) RequestCreate(start, end geometry.Vector3, distance float64) (string, error) {
	return a.send(protocol.CreateMeasurement, measurement.PlaceholderID, start, end, distance)
}

// RequestUpdate asks the relay to move the endpoints of id
func (a *Adapter) RequestUpdate(id int, start, end geometry.Vector3, distance float64) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("update %d: %w", id, measurement.ErrPlaceholderID)
	}
	return a.send(protocol.UpdateMeasurement, id, start, end, distance)
}

// RequestDelete asks the relay to delete id
func (a *Adapter) RequestDelete(id int) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("delete %d: %w", id, measurement.ErrPlaceholderID)
	}
	return a.dispatch(protocol.DeleteMeasurement, protocol.Delete{ID: id})
}

func (a *Adapter) send(t protocol.MessageType, id int, start, end geometry.Vector3, distance float64) (string, error) {
	if !start.IsFinite() || !end.IsFinite() {
		return "", fmt.Errorf("%s %d: %w", t, id, measurement.ErrInvalidPoint)
	}
	verified := start.Distance(end)
	if math.Abs(verified-distance) > distanceEpsilon {
		a.log.Debug("outbound distance corrected", "type", t, "id", id, "given", distance, "verified", verified)
	}
	return a.dispatch(t, protocol.Measurement{
		ID:       id,
		Start:    protocol.PointFrom(start),
		End:      protocol.PointFrom(end),
		Distance: verified,
	})
}

func (a *Adapter) dispatch(t protocol.MessageType, payload any) (string, error) {
	requestID := uuid.NewString()
	a.pending.Add(requestID, t)
	if err := a.transport.Send(t, requestID, payload); err != nil {
		a.pending.Remove(requestID)
		a.log.Warn("request dropped", "type", t, "err", err)
		return "", fmt.Errorf("send %s: %w", t, err)
	}
	a.log.Debug("request sent", "type", t, "request_id", requestID)
	return requestID, nil
}

// receive is the transport handler for all three message types
func (a *Adapter) receive(env protocol.Envelope) {
	switch env.Type {
	case protocol.CreateMeasurement, protocol.UpdateMeasurement:
		m, err := protocol.DecodeMeasurement(env.Payload)
		if err != nil {
			a.log.Warn("dropping malformed message", "type", env.Type, "err", err)
			return
		}
		if env.Type == protocol.CreateMeasurement {
			a.serialize(func() { a.onCreate(m, env.RequestID) })
		} else {
			a.serialize(func() { a.onUpdate(m, env.RequestID) })
		}
	case protocol.DeleteMeasurement:
		d, err := protocol.DecodeDelete(env.Payload)
		if err != nil {
			a.log.Warn("dropping malformed message", "type", env.Type, "err", err)
			return
		}
		a.serialize(func() { a.onDelete(d.ID, env.RequestID) })
	}
}

// OnCreate applies a confirmed create. A create for an id that is already
// confirmed is ignored.
func (a *Adapter) OnCreate(m protocol.Measurement, requestID string) {
	a.serialize(func() { a.onCreate(m, requestID) })
}

// OnUpdate applies a confirmed update. Updates of unknown ids are ignored.
func (a *Adapter) OnUpdate(m protocol.Measurement, requestID string) {
	a.serialize(func() { a.onUpdate(m, requestID) })
}

// OnDelete applies a confirmed delete. Deletes of unknown ids are ignored.
func (a *Adapter) OnDelete(id int, requestID string) {
	a.serialize(func() { a.onDelete(id, requestID) })
}

// serialize runs fn now, or after the mutation currently being applied when
// called from inside an observer.
func (a *Adapter) serialize(fn func()) {
	a.queue = append(a.queue, fn)
	if a.dispatching {
		return
	}
	a.dispatching = true
	defer func() { a.dispatching = false }()
	for len(a.queue) > 0 {
		next := a.queue[0]
		a.queue[0] = nil
		a.queue = a.queue[1:]
		next()
	}
}

func (a *Adapter) onCreate(m protocol.Measurement, requestID string) {
	local := a.settle(requestID)
	if a.registry.Contains(m.ID) {
		a.log.Info("duplicate create ignored", "id", m.ID)
		return
	}
	e, _, err := a.registry.Upsert(m.ID, m.Start.Vector(), m.End.Vector())
	if err != nil {
		a.log.Warn("create rejected", "id", m.ID, "err", err)
		return
	}
	a.checkDistance(m, e)
	a.publish(Event{Kind: Created, ID: e.ID, Entity: e, RequestID: requestID, Local: local})
}

func (a *Adapter) onUpdate(m protocol.Measurement, requestID string) {
	local := a.settle(requestID)
	if !a.registry.Contains(m.ID) {
		a.log.Warn("update for unknown measurement ignored", "id", m.ID)
		return
	}
	e, _, err := a.registry.Upsert(m.ID, m.Start.Vector(), m.End.Vector())
	if err != nil {
		a.log.Warn("update rejected", "id", m.ID, "err", err)
		return
	}
	a.checkDistance(m, e)
	a.publish(Event{Kind: Updated, ID: e.ID, Entity: e, RequestID: requestID, Local: local})
}

func (a *Adapter) onDelete(id int, requestID string) {
	local := a.settle(requestID)
	if !a.registry.Remove(id) {
		a.log.Warn("delete for unknown measurement ignored", "id", id)
		return
	}
	a.publish(Event{Kind: Removed, ID: id, RequestID: requestID, Local: local})
}

// settle forgets requestID and reports whether this adapter sent it
func (a *Adapter) settle(requestID string) bool {
	if requestID == "" {
		return false
	}
	return a.pending.Remove(requestID)
}

func (a *Adapter) checkDistance(m protocol.Measurement, e *measurement.Entity) {
	if math.Abs(m.Distance-e.Distance) > distanceEpsilon {
		a.log.Debug("received distance recomputed", "id", e.ID, "received", m.Distance, "computed", e.Distance)
	}
}

func (a *Adapter) publish(ev Event) {
	for _, o := range a.observers {
		o.Apply(ev)
	}
}
