package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carbonequip/internal/dataset"
)

// Metrics holds the collectors on a private registry. It is the catalog's
// load observer.
type Metrics struct {
	reg            *prometheus.Registry
	rowsLoaded     prometheus.Gauge
	loadFailures   *prometheus.CounterVec
	exports        *prometheus.CounterVec
	renderFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		rowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carbonequip_rows_loaded",
			Help: "Rows held by the catalog after the last load.",
		}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonequip_load_failures_total",
			Help: "Dataset load failures by kind (load, shape).",
		}, []string{"kind"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carbonequip_exports_total",
			Help: "Exports served by format.",
		}, []string{"format"}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carbonequip_render_failures_total",
			Help: "Page renders aborted because the table target was missing.",
		}),
	}
	m.reg.MustRegister(m.rowsLoaded, m.loadFailures, m.exports, m.renderFailures)
	return m
}

func (m *Metrics) ObserveLoad(rows int, err error) {
	m.rowsLoaded.Set(float64(rows))
	if err != nil {
		m.loadFailures.WithLabelValues(dataset.ErrorKind(err)).Inc()
	}
}

func (m *Metrics) incExport(format string) {
	m.exports.WithLabelValues(format).Inc()
}

func (m *Metrics) incRenderFailure() {
	m.renderFailures.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
