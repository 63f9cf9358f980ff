package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestClinicMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClinicMetrics(reg)

	m.ObserveBooking("accepted", 0.2)
	m.ObserveBooking("accepted", 0.1)
	m.ObserveConflict("booking", "taken")
	m.ObserveFailOpen("blocked_dates")
	m.ObserveReschedule(2)
	m.ObserveExport("ok")
	m.ObserveChartFailure("status_pie")
	m.ObserveLogin("ok")

	if got := counterValue(t, reg, "dental_booking_submissions_total", map[string]string{"outcome": "accepted"}); got != 2 {
		t.Fatalf("expected 2 accepted submissions, got %v", got)
	}
	if got := counterValue(t, reg, "dental_calendar_rescheduled_appointments_total", nil); got != 2 {
		t.Fatalf("expected 2 rescheduled appointments, got %v", got)
	}
	if got := counterValue(t, reg, "dental_availability_snapshot_fail_open_total", map[string]string{"collection": "blocked_dates"}); got != 1 {
		t.Fatalf("expected 1 fail-open, got %v", got)
	}
}

func TestClinicMetricsDefaultRegistry(t *testing.T) {
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	defer func() { prometheus.DefaultRegisterer = prev }()

	m := NewClinicMetrics(nil)
	m.ObserveConflict("staff", "blocked")
}

func TestClinicMetricsNilSafe(t *testing.T) {
	var m *ClinicMetrics
	m.ObserveBooking("rejected", 0.1)
	m.ObserveConflict("booking", "taken")
	m.ObserveFailOpen("appointments")
	m.ObserveReschedule(3)
	m.ObserveExport("error")
	m.ObserveChartFailure("monthly_revenue")
	m.ObserveLogin("auth/invalid-credential")
}
