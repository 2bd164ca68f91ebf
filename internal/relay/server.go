package relay

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/protocol"
)

// Options tunes the websocket side of the relay
type Options struct {
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	SendBuffer     int
	// MessagesPerSecond and Burst bound inbound messages per connection
	MessagesPerSecond float64
	Burst             int
}

// DefaultOptions returns the settings used when a field is left zero
func DefaultOptions() Options {
	return Options{
		MaxMessageSize:    64 * 1024,
		WriteWait:         10 * time.Second,
		PongWait:          60 * time.Second,
		SendBuffer:        256,
		MessagesPerSecond: 50,
		Burst:             100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.MessagesPerSecond <= 0 {
		o.MessagesPerSecond = d.MessagesPerSecond
	}
	if o.Burst <= 0 {
		o.Burst = d.Burst
	}
	return o
}

func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Server accepts websocket clients and routes them into rooms
type Server struct {
	opts     Options
	log      *slog.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewServer creates a relay. Metrics are registered on reg, which is also
// served at /metrics when it implements prometheus.Gatherer.
func NewServer(opts Options, reg prometheus.Registerer, log *slog.Logger) *Server {
	s := &Server{
		opts:    opts.withDefaults(),
		log:     logger.For(log, logger.AreaRelay),
		metrics: NewMetrics(reg),
		rooms:   make(map[string]*Room),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}
	return s
}

// Handler returns the HTTP routes of the relay
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Room returns the live room with the given name
func (s *Server) Room(name string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	return r, ok
}

// Rooms returns the number of live rooms
func (s *Server) Rooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// join holds s.mu across the lookup so a concurrent leave cannot close the
// room between finding it and joining it.
func (s *Server) join(name string, m Member) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		r = NewRoom(name, s.metrics, s.log)
		r.snapshotLimit = min(r.snapshotLimit, int(s.opts.MaxMessageSize))
		s.rooms[name] = r
		s.metrics.setRooms(len(s.rooms))
	}
	r.Join(m)
	return r
}

func (s *Server) leave(room *Room, memberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Rooms only live as long as someone is in them
	if room.Leave(memberID) && s.rooms[room.Name()] == room {
		delete(s.rooms, room.Name())
		s.metrics.setRooms(len(s.rooms))
		s.log.Info("room closed", "room", room.Name())
	}
}

// ServeWS upgrades the request and joins the room named by ?room=
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("room")
	if name == "" {
		name = "default"
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, s.opts.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst),
		opts:    s.opts,
		log:     s.log.With("remote", conn.RemoteAddr().String()),
	}
	s.metrics.clientDelta(1)

	go c.writePump()
	room := s.join(name, c)
	c.readPump(room)

	s.leave(room, c.id)
	s.metrics.clientDelta(-1)
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	opts    Options
	log     *slog.Logger
}

func (c *client) ID() string { return c.id }

// Deliver queues a frame. A client that cannot keep up is disconnected
// rather than skipped, so nobody silently misses part of the order.
func (c *client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("send buffer full, disconnecting client", "client", c.id)
		c.close()
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) readPump(room *Room) {
	defer c.close()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn("unexpected close", "client", c.id, "err", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		for frame := range protocol.Frames(data) {
			if !c.limiter.Allow() {
				c.log.Warn("rate limit exceeded, dropping message", "client", c.id)
				room.metrics.observe("unknown", "rate_limited")
				continue
			}
			if err := room.Handle(frame); err != nil {
				c.log.Warn("message rejected", "client", c.id, "err", err)
			}
		}
	}
}

// write sends frame together with whatever is already queued. Queued frames
// are joined with newlines into messages of at most MaxMessageSize bytes.
func (c *client) write(frame []byte) error {
	for frame != nil {
		c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return err
		}
		w.Write(frame)
		size := int64(len(frame))
		frame = nil
		for n := len(c.send); n > 0; n-- {
			next := <-c.send
			if size+1+int64(len(next)) > c.opts.MaxMessageSize {
				frame = next
				break
			}
			w.Write([]byte{'\n'})
			w.Write(next)
			size += 1 + int64(len(next))
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteWait))
			return
		}
	}
}
