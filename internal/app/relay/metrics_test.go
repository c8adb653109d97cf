package relay

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHubsShareRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewHub(Config{Registerer: reg})
	second := NewHub(Config{Registerer: reg})

	first.metrics.recordMessage(TypeReconnect)
	second.metrics.recordMessage(TypeReconnect)

	if got := testutil.ToFloat64(first.metrics.messages.WithLabelValues(string(TypeReconnect))); got != 2 {
		t.Fatalf("expected shared counter at 2, got %v", got)
	}
	if n, err := testutil.GatherAndCount(reg, "relay_messages_total"); err != nil || n != 1 {
		t.Fatalf("expected one relay_messages_total series, got %d (err %v)", n, err)
	}
}

func TestDefaultRegistererToleratesSeveralHubs(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("second hub on the default registerer panicked: %v", r)
		}
	}()

	NewHub(Config{})
	NewHub(Config{})
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *relayMetrics

	m.setState(1, 1, 1)
	m.recordMessage(TypePong)
	m.recordDrop("")
	m.recordSkip("closed")
	m.recordExpired(3)
	m.observeFanout(TypePing, 2)
}
