package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	actionsTotal  *prometheus.CounterVec
	framesTotal   *prometheus.CounterVec
	droppedTotal  *prometheus.CounterVec
	bridgeTotal   *prometheus.CounterVec
	exportedTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	reconnects    prometheus.Counter
	records       prometheus.Gauge
	unread        prometheus.Gauge
	connected     prometheus.Gauge
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		actionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_actions_total",
				Help: "Total number of store actions committed",
			},
			[]string{"action"},
		),
		framesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_frames_received_total",
				Help: "Notification frames decoded from inbound sources",
			},
			[]string{"kind"},
		),
		droppedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_frames_dropped_total",
				Help: "Inbound frames dropped before reaching the store",
			},
			[]string{"reason"},
		),
		bridgeTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_bridge_invocations_total",
				Help: "Desktop and sound bridge outcomes",
			},
			[]string{"bridge", "result"},
		),
		exportedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_history_exported_total",
				Help: "Records exported to the history backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "notify_channel_reconnects_total",
			Help: "Reconnect attempts scheduled by the real-time channel",
		}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Name: "notify_records",
			Help: "Records currently held by the store",
		}),
		unread: f.NewGauge(prometheus.GaugeOpts{
			Name: "notify_unread",
			Help: "Unread records currently held by the store",
		}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Name: "notify_channel_connected",
			Help: "1 when the real-time channel is connected",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notify_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAction(action string) {
	r.actionsTotal.WithLabelValues(action).Inc()
}

// RecordState mirrors the latest committed store state into gauges.
func (r *Recorder) RecordState(records, unread int, connected bool) {
	r.records.Set(float64(records))
	r.unread.Set(float64(unread))
	if connected {
		r.connected.Set(1)
	} else {
		r.connected.Set(0)
	}
}

func (r *Recorder) RecordFrame(kind string) {
	r.framesTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordDropped(reason string) {
	r.droppedTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordReconnect() {
	r.reconnects.Inc()
}

func (r *Recorder) RecordBridge(bridge, result string) {
	r.bridgeTotal.WithLabelValues(bridge, result).Inc()
}

func (r *Recorder) RecordExported(backend string, n int) {
	r.exportedTotal.WithLabelValues(backend).Add(float64(n))
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordAction(string)           {}
func (Nop) RecordState(int, int, bool)    {}
func (Nop) RecordFrame(string)            {}
func (Nop) RecordDropped(string)          {}
func (Nop) RecordReconnect()              {}
func (Nop) RecordBridge(string, string)   {}
func (Nop) RecordExported(string, int)    {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
