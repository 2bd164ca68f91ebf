// Package relay is the authoritative side of a measurement session. A Room
// assigns ids, applies mutations in a single order and broadcasts every
// accepted mutation to all members, including the one that asked for it.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/protocol"
)

// ErrUnknownMeasurement is returned for updates and deletes of ids the room never assigned
var ErrUnknownMeasurement = errors.New("unknown measurement")

// defaultSnapshotLimit is the largest batch of snapshot envelopes handed to
// a joining member in one Deliver call
const defaultSnapshotLimit = 16 * 1024

// Member receives broadcast frames. A frame may hold several envelopes
// separated by newlines. Deliver must not block; returning false means the
// frame could not be queued.
type Member interface {
	ID() string
	Deliver(frame []byte) bool
}

// Room holds the live measurements of one session
type Room struct {
	name    string
	log     *slog.Logger
	metrics *Metrics

	mu           sync.Mutex
	lastID       int
	measurements map[int]protocol.Measurement
	members      map[string]Member
	order        []string

	snapshotLimit int
}

// NewRoom creates an empty room. metrics may be nil.
func NewRoom(name string, metrics *Metrics, log *slog.Logger) *Room {
	return &Room{
		name:          name,
		log:           logger.For(log, logger.AreaRelay).With("room", name),
		metrics:       metrics,
		measurements:  make(map[int]protocol.Measurement),
		members:       make(map[string]Member),
		snapshotLimit: defaultSnapshotLimit,
	}
}

// Name returns the room name
func (r *Room) Name() string { return r.name }

// Join adds m and replays the current contents to it as CreateMeasurement
// messages so a late joiner converges with everyone else. The replay is
// batched into newline-joined frames of at most snapshotLimit bytes, so a
// large room takes few slots of the member's send queue.
func (r *Room) Join(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[m.ID()]; !ok {
		r.order = append(r.order, m.ID())
	}
	r.members[m.ID()] = m

	var batch []byte
	for _, id := range r.sortedIDs() {
		frame, err := protocol.Encode(protocol.CreateMeasurement, "", r.measurements[id])
		if err != nil {
			r.log.Error("encode snapshot", "id", id, "err", err)
			continue
		}
		if len(batch) > 0 && len(batch)+1+len(frame) > r.snapshotLimit {
			if !m.Deliver(batch) {
				r.log.Warn("snapshot not delivered", "member", m.ID())
				return
			}
			batch = nil
		}
		if len(batch) > 0 {
			batch = append(batch, '\n')
		}
		batch = append(batch, frame...)
	}
	if len(batch) > 0 && !m.Deliver(batch) {
		r.log.Warn("snapshot not delivered", "member", m.ID())
		return
	}
	r.log.Info("member joined", "member", m.ID(), "members", len(r.members), "measurements", len(r.measurements))
}

// Leave removes a member and reports whether the room is now empty
func (r *Room) Leave(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; ok {
		delete(r.members, id)
		for i, o := range r.order {
			if o == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		r.log.Info("member left", "member", id, "members", len(r.members))
	}
	return len(r.members) == 0
}

// Len returns the number of members
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Snapshot returns the live measurements ordered by id
func (r *Room) Snapshot() []protocol.Measurement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Measurement, 0, len(r.measurements))
	for _, id := range r.sortedIDs() {
		out = append(out, r.measurements[id])
	}
	return out
}

// Handle decodes a frame from a member, applies it and broadcasts the result.
// Rejected frames are not broadcast; the returned error says why.
func (r *Room) Handle(frame []byte) error {
	env, err := protocol.DecodeEnvelope(frame)
	if err != nil {
		r.metrics.observe("unknown", "malformed")
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := r.apply(env)
	if err != nil {
		result := "rejected"
		if errors.Is(err, protocol.ErrMalformed) {
			result = "malformed"
		}
		r.metrics.observe(string(env.Type), result)
		return err
	}

	out, err := protocol.Encode(env.Type, env.RequestID, payload)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	r.metrics.observe(string(env.Type), "applied")
	r.broadcast(out)
	return nil
}

// apply mutates the room for env and returns the payload to broadcast.
// Caller holds r.mu.
func (r *Room) apply(env protocol.Envelope) (any, error) {
	switch env.Type {
	case protocol.CreateMeasurement:
		m, err := protocol.DecodeMeasurement(env.Payload)
		if err != nil {
			return nil, err
		}
		r.lastID++
		m.ID = r.lastID
		m.Distance = m.Start.Vector().Distance(m.End.Vector())
		r.measurements[m.ID] = m
		r.log.Debug("measurement created", "id", m.ID, "distance", m.Distance)
		return m, nil

	case protocol.UpdateMeasurement:
		m, err := protocol.DecodeMeasurement(env.Payload)
		if err != nil {
			return nil, err
		}
		if _, ok := r.measurements[m.ID]; !ok {
			return nil, fmt.Errorf("update %d: %w", m.ID, ErrUnknownMeasurement)
		}
		m.Distance = m.Start.Vector().Distance(m.End.Vector())
		r.measurements[m.ID] = m
		r.log.Debug("measurement updated", "id", m.ID, "distance", m.Distance)
		return m, nil

	case protocol.DeleteMeasurement:
		d, err := protocol.DecodeDelete(env.Payload)
		if err != nil {
			return nil, err
		}
		if _, ok := r.measurements[d.ID]; !ok {
			return nil, fmt.Errorf("delete %d: %w", d.ID, ErrUnknownMeasurement)
		}
		delete(r.measurements, d.ID)
		r.log.Debug("measurement deleted", "id", d.ID)
		return d, nil
	}
	return nil, fmt.Errorf("%w: unhandled type %q", protocol.ErrMalformed, env.Type)
}

// broadcast delivers to members in join order. Caller holds r.mu, which is
// what makes the broadcast order identical for every member.
func (r *Room) broadcast(frame []byte) {
	for _, id := range r.order {
		if !r.members[id].Deliver(frame) {
			r.log.Warn("member could not take broadcast", "member", id)
		}
	}
}

func (r *Room) sortedIDs() []int {
	ids := make([]int, 0, len(r.measurements))
	for id := range r.measurements {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
