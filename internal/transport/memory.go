package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/loop"
	"github.com/philipparndt/gomeasure/internal/protocol"
	"github.com/philipparndt/gomeasure/internal/relay"
)

// Memory connects a client to an in-process relay room. Broadcasts are
// posted to the client's mailbox exactly like frames read off a socket.
type Memory struct {
	id       string
	room     *relay.Room
	mailbox  *loop.Mailbox
	handlers Handlers
	closed   atomic.Bool
	log      *slog.Logger
}

// NewMemory joins room and returns the connected peer
func NewMemory(room *relay.Room, mailbox *loop.Mailbox, log *slog.Logger) *Memory {
	m := &Memory{
		id:      "mem-" + uuid.NewString(),
		room:    room,
		mailbox: mailbox,
		log:     logger.For(log, logger.AreaTransport),
	}
	room.Join(m)
	return m
}

// ID implements relay.Member
func (m *Memory) ID() string { return m.id }

// Deliver implements relay.Member
func (m *Memory) Deliver(frame []byte) bool {
	if m.closed.Load() {
		return false
	}
	for data := range protocol.Frames(frame) {
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			m.log.Warn("dropping malformed frame", "err", err)
			continue
		}
		posted := m.mailbox.Post(func() {
			if !m.closed.Load() {
				m.handlers.Dispatch(env)
			}
		})
		if !posted {
			return false
		}
	}
	return true
}

// Send hands the message to the room. A room rejecting it (for example an
// update of an unknown id) is not a transport failure and is only logged.
func (m *Memory) Send(t protocol.MessageType, requestID string, payload any) error {
	if m.closed.Load() {
		return ErrClosed
	}
	frame, err := protocol.Encode(t, requestID, payload)
	if err != nil {
		return err
	}
	if err := m.room.Handle(frame); err != nil {
		if errors.Is(err, protocol.ErrMalformed) {
			return fmt.Errorf("send %s: %w", t, err)
		}
		m.log.Debug("relay rejected message", "type", t, "err", err)
	}
	return nil
}

// Subscribe implements Transport
func (m *Memory) Subscribe(t protocol.MessageType, h Handler) Subscription {
	return m.handlers.Add(t, h)
}

// Close leaves the room; queued broadcasts are discarded
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.room.Leave(m.id)
	return nil
}
