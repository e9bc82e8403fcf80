package metrics

import "github.com/prometheus/client_golang/prometheus"

// ListingMetrics exposes counters/histograms for directory listings.
type ListingMetrics struct {
	requestsTotal   *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	loadLatency     *prometheus.HistogramVec
	resultsReturned *prometheus.HistogramVec
}

func NewListingMetrics(reg prometheus.Registerer) *ListingMetrics {
	m := &ListingMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careportal",
			Subsystem: "directory",
			Name:      "list_requests_total",
			Help:      "Directory list requests by collection and outcome",
		}, []string{"collection", "outcome"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careportal",
			Subsystem: "directory",
			Name:      "records_dropped_total",
			Help:      "Records rejected at the load boundary",
		}, []string{"collection", "reason"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careportal",
			Subsystem: "directory",
			Name:      "load_latency_seconds",
			Help:      "Latency of loading a collection from its source",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
		resultsReturned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careportal",
			Subsystem: "directory",
			Name:      "filtered_results",
			Help:      "Number of records left after filtering",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"collection"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.droppedTotal, m.loadLatency, m.resultsReturned)
	return m
}

func (m *ListingMetrics) ObserveRequest(collection, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(collection, outcome).Inc()
}

func (m *ListingMetrics) ObserveDropped(collection, reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(collection, reason).Inc()
}

func (m *ListingMetrics) ObserveLoadLatency(collection string, seconds float64) {
	if m == nil {
		return
	}
	m.loadLatency.WithLabelValues(collection).Observe(seconds)
}

func (m *ListingMetrics) ObserveResults(collection string, n int) {
	if m == nil {
		return
	}
	m.resultsReturned.WithLabelValues(collection).Observe(float64(n))
}

// BookingMetrics exposes counters/histograms for booking wizard sessions.
type BookingMetrics struct {
	transitionsTotal *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
	submitLatency    *prometheus.HistogramVec
	activeSessions   prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careportal",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Wizard transitions by flow, transition and result",
		}, []string{"flow", "transition", "result"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careportal",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking confirmations by flow and status",
		}, []string{"flow", "status"}),
		submitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careportal",
			Subsystem: "booking",
			Name:      "submit_latency_seconds",
			Help:      "Latency of the submission sink",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "careportal",
			Subsystem: "booking",
			Name:      "sessions_started",
			Help:      "Sessions started minus sessions dismissed since process start",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.submissionsTotal, m.submitLatency, m.activeSessions)
	return m
}

func (m *BookingMetrics) ObserveTransition(flow, transition, result string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(flow, transition, result).Inc()
}

func (m *BookingMetrics) ObserveSubmission(flow, status string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(flow, status).Inc()
	m.submitLatency.WithLabelValues(flow).Observe(seconds)
}

func (m *BookingMetrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *BookingMetrics) SessionDismissed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
