package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIntakeMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)
	m.ObserveTurn("collect_name", 0.01)
	m.ObserveTurn("collect_name", 0.02)
	m.ObserveSilentTurn()
	m.ObserveEscalation("highUrgency")
	m.ObserveGatewayFailure("resolve_role")
	m.SetActiveSessions(3)

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("collect_name")); got != 2 {
		t.Fatalf("expected 2 turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.escalations.WithLabelValues("highUrgency")); got != 1 {
		t.Fatalf("expected 1 escalation, got %v", got)
	}
	if got := testutil.ToFloat64(m.activeSessions); got != 3 {
		t.Fatalf("expected 3 active sessions, got %v", got)
	}
}

func TestIntakeMetricsNilSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveTurn("greeting", 0.1)
	m.ObserveSilentTurn()
	m.ObserveEscalation("longConversation")
	m.ObserveGatewayFailure("persist_summary")
	m.SetActiveSessions(1)
}
