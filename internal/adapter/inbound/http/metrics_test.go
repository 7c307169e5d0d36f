package http

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal not initialized")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration not initialized")
	}
	if m.ForwardedTotal == nil {
		t.Error("ForwardedTotal not initialized")
	}
	if m.UpstreamErrorsTotal == nil {
		t.Error("UpstreamErrorsTotal not initialized")
	}
}

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("POST", "ok").Inc()
	if count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "ok")); count != 1 {
		t.Errorf("RequestsTotal = %v, want 1", count)
	}

	m.ForwardedTotal.WithLabelValues("api").Add(3)
	if count := testutil.ToFloat64(m.ForwardedTotal.WithLabelValues("api")); count != 3 {
		t.Errorf("ForwardedTotal = %v, want 3", count)
	}

	m.RequestDuration.WithLabelValues("POST").Observe(0.1)
	gathered, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range gathered {
		if strings.Contains(mf.GetName(), "request_duration") {
			found = true
			break
		}
	}
	if !found {
		t.Error("request_duration histogram not found in gathered metrics")
	}
}
