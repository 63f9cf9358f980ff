package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClinicMetrics exposes counters/histograms for booking and staff flows.
type ClinicMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	conflictsTotal   *prometheus.CounterVec
	snapshotFailOpen *prometheus.CounterVec
	reschedulesTotal prometheus.Counter
	rescheduledAppts prometheus.Counter
	reportExports    *prometheus.CounterVec
	chartFailures    *prometheus.CounterVec
	submitLatency    *prometheus.HistogramVec
	loginsTotal      *prometheus.CounterVec
}

func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "availability",
			Name:      "conflicts_total",
			Help:      "Slot checks rejected as blocked or taken",
		}, []string{"source", "reason"}),
		snapshotFailOpen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "availability",
			Name:      "snapshot_fail_open_total",
			Help:      "Availability snapshots that proceeded without a collection",
		}, []string{"collection"}),
		reschedulesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "calendar",
			Name:      "emergency_reschedules_total",
			Help:      "Emergency reschedules applied",
		}),
		rescheduledAppts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "calendar",
			Name:      "rescheduled_appointments_total",
			Help:      "Appointments moved to rescheduled by emergency reschedules",
		}),
		reportExports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "reports",
			Name:      "exports_total",
			Help:      "PDF report exports by status",
		}, []string{"status"}),
		chartFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "reports",
			Name:      "chart_failures_total",
			Help:      "Charts skipped because rendering failed",
		}, []string{"chart"}),
		submitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "booking",
			Name:      "submit_latency_seconds",
			Help:      "Latency of booking submission",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Staff sign-in attempts by result code",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.conflictsTotal,
		m.snapshotFailOpen,
		m.reschedulesTotal,
		m.rescheduledAppts,
		m.reportExports,
		m.chartFailures,
		m.submitLatency,
		m.loginsTotal,
	)
	return m
}

func (m *ClinicMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.submitLatency.WithLabelValues(outcome).Observe(seconds)
}

// ObserveConflict records a rejected slot. source is "booking" or "staff".
func (m *ClinicMetrics) ObserveConflict(source, reason string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(source, reason).Inc()
}

func (m *ClinicMetrics) ObserveFailOpen(collection string) {
	if m == nil {
		return
	}
	m.snapshotFailOpen.WithLabelValues(collection).Inc()
}

func (m *ClinicMetrics) ObserveReschedule(affected int) {
	if m == nil {
		return
	}
	m.reschedulesTotal.Inc()
	m.rescheduledAppts.Add(float64(affected))
}

func (m *ClinicMetrics) ObserveExport(status string) {
	if m == nil {
		return
	}
	m.reportExports.WithLabelValues(status).Inc()
}

func (m *ClinicMetrics) ObserveChartFailure(chart string) {
	if m == nil {
		return
	}
	m.chartFailures.WithLabelValues(chart).Inc()
}

func (m *ClinicMetrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}
