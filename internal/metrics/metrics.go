// Package metrics exposes Prometheus collectors for widget polling and
// report generation. All methods are safe on a nil *Metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PollsTotal    *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	WidgetStatus  *prometheus.GaugeVec
	ReportsTotal  *prometheus.CounterVec
	EmailsTotal   *prometheus.CounterVec
	LiveViewers   prometheus.Gauge
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// New returns the process-wide collectors registered on the default registry.
func New() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return metricsInstance
}

// NewWithRegistry registers a fresh set of collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PollsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "instareview_widget_polls_total",
			Help: "Widget polls by result",
		}, []string{"result"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "instareview_fetch_duration_seconds",
			Help:    "Time spent fetching the analytics payload",
			Buckets: prometheus.DefBuckets,
		}),
		WidgetStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "instareview_widget_status",
			Help: "1 for the current status of each widget container",
		}, []string{"container", "status"}),
		ReportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "instareview_reports_total",
			Help: "Reports generated by outcome",
		}, []string{"outcome"}),
		EmailsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "instareview_report_emails_total",
			Help: "Report emails by outcome",
		}, []string{"outcome"}),
		LiveViewers: f.NewGauge(prometheus.GaugeOpts{
			Name: "instareview_live_viewers",
			Help: "Connected live widget viewers",
		}),
	}
}

func (m *Metrics) RecordPoll(ok bool, d time.Duration) {
	if m == nil || m.PollsTotal == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.PollsTotal.WithLabelValues(result).Inc()
	if m.FetchDuration != nil {
		m.FetchDuration.Observe(d.Seconds())
	}
}

// SetStatus marks status as the current one for container, clearing the
// others listed.
func (m *Metrics) SetStatus(container, status string, all ...string) {
	if m == nil || m.WidgetStatus == nil {
		return
	}
	for _, s := range all {
		m.WidgetStatus.WithLabelValues(container, s).Set(0)
	}
	m.WidgetStatus.WithLabelValues(container, status).Set(1)
}

func (m *Metrics) RecordReport(outcome string) {
	if m == nil || m.ReportsTotal == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordEmail(outcome string) {
	if m == nil || m.EmailsTotal == nil {
		return
	}
	m.EmailsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ViewerConnected() {
	if m == nil || m.LiveViewers == nil {
		return
	}
	m.LiveViewers.Inc()
}

func (m *Metrics) ViewerDisconnected() {
	if m == nil || m.LiveViewers == nil {
		return
	}
	m.LiveViewers.Dec()
}
