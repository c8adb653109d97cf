package relay

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type relayMetrics struct {
	connections    prometheus.Gauge
	liveUsers      prometheus.Gauge
	secrets        prometheus.Gauge
	messages       *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	sendSkipped    *prometheus.CounterVec
	secretsExpired prometheus.Counter
	fanout         *prometheus.HistogramVec
}

func newRelayMetrics(reg prometheus.Registerer) *relayMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &relayMetrics{
		connections: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections_open",
			Help: "Current number of open relay connections.",
		})),
		liveUsers: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_users_live",
			Help: "Current number of users bound to a live connection.",
		})),
		secrets: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_secrets",
			Help: "Current number of reconnection secrets held.",
		})),
		messages: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Inbound messages by type.",
		}, []string{"type"})),
		dropped: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_dropped_total",
			Help: "Inbound messages dropped, by reason.",
		}, []string{"reason"})),
		sendSkipped: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_sends_skipped_total",
			Help: "Outbound messages not queued, by reason.",
		}, []string{"reason"})),
		secretsExpired: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_secrets_expired_total",
			Help: "Secrets purged by the expiry sweep.",
		})),
		fanout: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_fanout_recipients",
			Help:    "Recipients reached per outbound fan-out.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"type"})),
	}

	return m
}

// register adds c to reg. If an equal collector is already registered, as when
// several hubs share a registerer, the existing one is returned instead.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *relayMetrics) setState(connections, liveUsers, secrets int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(connections))
	m.liveUsers.Set(float64(liveUsers))
	m.secrets.Set(float64(secrets))
}

func (m *relayMetrics) recordMessage(t MessageType) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(string(t)).Inc()
}

func (m *relayMetrics) recordDrop(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *relayMetrics) recordSkip(reason string) {
	if m == nil {
		return
	}
	m.sendSkipped.WithLabelValues(reason).Inc()
}

func (m *relayMetrics) recordExpired(n int) {
	if m == nil || n == 0 {
		return
	}
	m.secretsExpired.Add(float64(n))
}

func (m *relayMetrics) observeFanout(t MessageType, recipients int) {
	if m == nil {
		return
	}
	m.fanout.WithLabelValues(string(t)).Observe(float64(recipients))
}
