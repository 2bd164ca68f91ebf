// Package transport moves protocol envelopes between a client and the relay.
package transport

import (
	"errors"

	"github.com/philipparndt/gomeasure/internal/protocol"
)

var (
	// ErrClosed is returned by Send after the transport shut down
	ErrClosed = errors.New("transport closed")
	// ErrBufferFull is returned when the outbound queue cannot take another frame
	ErrBufferFull = errors.New("transport send buffer full")
)

// Handler receives inbound envelopes on the event loop goroutine
type Handler func(env protocol.Envelope)

// Transport is what the session adapter needs from a connection
type Transport interface {
	// Send queues a message without waiting for delivery
	Send(t protocol.MessageType, requestID string, payload any) error
	// Subscribe registers h for inbound messages of type t
	Subscribe(t protocol.MessageType, h Handler) Subscription
}
