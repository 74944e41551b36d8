package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CourierErrors   *prometheus.CounterVec
	VouchersCreated *prometheus.CounterVec
	ParcelsCanceled prometheus.Counter
}

// NewMetrics creates metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockerlink_courier_requests_total",
				Help: "Total number of courier requests by operation, courier, and status",
			},
			[]string{"operation", "courier", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockerlink_courier_request_duration_seconds",
				Help:    "Courier request duration in seconds by operation and courier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "courier"},
		),
		CourierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockerlink_courier_errors_total",
				Help: "Total courier workflow errors by courier and error kind",
			},
			[]string{"courier", "kind"},
		),
		VouchersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockerlink_vouchers_created_total",
				Help: "Vouchers created by trigger (completion or manual)",
			},
			[]string{"trigger"},
		),
		ParcelsCanceled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lockerlink_parcels_canceled_total",
				Help: "Parcels cancelled with the courier",
			},
		),
	}
}

// RecordRequest records a courier request metric.
func (m *Metrics) RecordRequest(operation, courier, status string, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, courier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, courier).Observe(duration)
}

// RecordError records a courier error metric.
func (m *Metrics) RecordError(courier, kind string) {
	if m == nil {
		return
	}
	m.CourierErrors.WithLabelValues(courier, kind).Inc()
}

// RecordVouchers counts newly created vouchers.
func (m *Metrics) RecordVouchers(trigger string, n int) {
	if m == nil {
		return
	}
	m.VouchersCreated.WithLabelValues(trigger).Add(float64(n))
}

// RecordCancellation counts a cancelled parcel.
func (m *Metrics) RecordCancellation() {
	if m == nil {
		return
	}
	m.ParcelsCanceled.Inc()
}
