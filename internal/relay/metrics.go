package relay

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the relay's prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	messages *prometheus.CounterVec
	clients  prometheus.Gauge
	rooms    prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg. A nil reg
// yields nil metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gomeasure",
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Inbound messages by type and result.",
		}, []string{"type", "result"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gomeasure",
			Subsystem: "relay",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gomeasure",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Rooms with at least one member.",
		}),
	}
	reg.MustRegister(m.messages, m.clients, m.rooms)
	return m
}

func (m *Metrics) observe(msgType, result string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(msgType, result).Inc()
}

func (m *Metrics) clientDelta(d float64) {
	if m == nil {
		return
	}
	m.clients.Add(d)
}

func (m *Metrics) setRooms(n int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(n))
}
