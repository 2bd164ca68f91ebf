package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/loop"
	"github.com/philipparndt/gomeasure/internal/protocol"
)

// WebSocketOptions tunes the client connection
type WebSocketOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	Header         http.Header
}

func (o WebSocketOptions) withDefaults() WebSocketOptions {
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	return o
}

// WebSocket is a relay connection. Frames read from the socket are decoded
// on the reader goroutine and dispatched on the mailbox owner's goroutine.
type WebSocket struct {
	conn     *websocket.Conn
	mailbox  *loop.Mailbox
	handlers Handlers
	opts     WebSocketOptions
	log      *slog.Logger

	send      chan []byte
	done      chan struct{}
	readDone  chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial connects to the relay at url (ws:// or wss://)
func Dial(ctx context.Context, url string, mailbox *loop.Mailbox, log *slog.Logger, opts WebSocketOptions) (*WebSocket, error) {
	opts = opts.withDefaults()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	w := &WebSocket{
		conn:     conn,
		mailbox:  mailbox,
		opts:     opts,
		log:      logger.For(log, logger.AreaTransport).With("url", url),
		send:     make(chan []byte, opts.SendBuffer),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go w.readPump()
	go w.writePump()
	w.log.Info("connected to relay")
	return w, nil
}

// Send queues a frame for the writer goroutine. It never blocks.
func (w *WebSocket) Send(t protocol.MessageType, requestID string, payload any) error {
	frame, err := protocol.Encode(t, requestID, payload)
	if err != nil {
		return err
	}
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.send <- frame:
		return nil
	default:
		return ErrBufferFull
	}
}

// Subscribe implements Transport. Call it from the mailbox owner's goroutine.
func (w *WebSocket) Subscribe(t protocol.MessageType, h Handler) Subscription {
	return w.handlers.Add(t, h)
}

// Done is closed once the reader has stopped
func (w *WebSocket) Done() <-chan struct{} {
	return w.readDone
}

// Err returns the error that ended the connection, if any
func (w *WebSocket) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

// Close shuts the connection down and waits for the reader to stop
func (w *WebSocket) Close() error {
	w.shutdown(nil)
	<-w.readDone
	return nil
}

func (w *WebSocket) shutdown(err error) {
	w.closeOnce.Do(func() {
		w.errMu.Lock()
		w.err = err
		w.errMu.Unlock()
		close(w.done)
		w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(w.opts.WriteWait))
		w.conn.Close()
	})
}

func (w *WebSocket) readPump() {
	defer close(w.readDone)

	w.conn.SetReadLimit(w.opts.MaxMessageSize)
	w.conn.SetReadDeadline(time.Now().Add(w.opts.PongWait))
	w.conn.SetPingHandler(func(data string) error {
		w.conn.SetReadDeadline(time.Now().Add(w.opts.PongWait))
		return w.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(w.opts.WriteWait))
	})

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.log.Warn("connection lost", "err", err)
				}
				w.shutdown(err)
			}
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(w.opts.PongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		for frame := range protocol.Frames(data) {
			env, err := protocol.DecodeEnvelope(frame)
			if err != nil {
				w.log.Warn("dropping malformed frame", "err", err)
				continue
			}
			w.mailbox.Post(func() { w.handlers.Dispatch(env) })
		}
	}
}

// write coalesces queued frames into messages of at most MaxMessageSize bytes
func (w *WebSocket) write(frame []byte) error {
	for frame != nil {
		w.conn.SetWriteDeadline(time.Now().Add(w.opts.WriteWait))
		out, err := w.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return err
		}
		out.Write(frame)
		size := int64(len(frame))
		frame = nil
		for n := len(w.send); n > 0; n-- {
			next := <-w.send
			if size+1+int64(len(next)) > w.opts.MaxMessageSize {
				frame = next
				break
			}
			out.Write([]byte{'\n'})
			out.Write(next)
			size += 1 + int64(len(next))
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (w *WebSocket) writePump() {
	for {
		select {
		case frame := <-w.send:
			if err := w.write(frame); err != nil {
				w.shutdown(err)
				return
			}
		case <-w.done:
			return
		}
	}
}
