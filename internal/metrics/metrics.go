package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All methods are safe on a nil receiver so
// packages can be used without wiring metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	changeEvents    *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
	reconnects      *prometheus.CounterVec
	openChannels    prometheus.Gauge
	notifications   *prometheus.CounterVec
	wsClients       prometheus.Gauge
	dispatchLatency prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		changeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venue_pos_change_events_total",
			Help: "Row changes received from the change feed",
		}, []string{"table"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venue_pos_handler_failures_total",
			Help: "Realtime handlers that returned an error or panicked",
		}, []string{"event"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venue_pos_channel_reconnects_total",
			Help: "Change feed channels re-subscribed after a drop",
		}, []string{"table"}),
		openChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "venue_pos_open_channels",
			Help: "Change feed channels currently open",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "venue_pos_notifications_total",
			Help: "Notifications added to notification centers",
		}, []string{"type"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "venue_pos_ws_clients",
			Help: "Connected websocket clients",
		}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "venue_pos_dispatch_seconds",
			Help:    "Time from commit to handler dispatch",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	m.registry.MustRegister(m.changeEvents, m.handlerFailures, m.reconnects, m.openChannels,
		m.notifications, m.wsClients, m.dispatchLatency,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ChangeEvent(table string) {
	if m != nil {
		m.changeEvents.WithLabelValues(table).Inc()
	}
}

func (m *Metrics) HandlerFailure(event string) {
	if m != nil {
		m.handlerFailures.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) Reconnect(table string) {
	if m != nil {
		m.reconnects.WithLabelValues(table).Inc()
	}
}

func (m *Metrics) ChannelOpened() {
	if m != nil {
		m.openChannels.Inc()
	}
}

func (m *Metrics) ChannelClosed() {
	if m != nil {
		m.openChannels.Dec()
	}
}

func (m *Metrics) Notification(kind string) {
	if m != nil {
		m.notifications.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) WSClientConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) WSClientDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}

func (m *Metrics) ObserveDispatch(seconds float64) {
	if m != nil && seconds >= 0 {
		m.dispatchLatency.Observe(seconds)
	}
}
