// Package metrics exposes delivery counters over Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "histobot"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	deliveries  *prometheus.CounterVec
	cycles      *prometheus.CounterVec
	generations *prometheus.CounterVec
	active      prometheus.Gauge
	commands    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Send attempts by outcome.",
		}, []string{"outcome"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Broadcast cycles by result.",
		}, []string{"result"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generated posts by source.",
		}, []string{"source"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_destinations",
			Help:      "Destinations currently receiving the daily post.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Handled bot commands.",
		}, []string{"command"}),
	}
	m.reg.MustRegister(
		m.deliveries, m.cycles, m.generations, m.active, m.commands,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveDelivery(outcome string)  { m.deliveries.WithLabelValues(outcome).Inc() }
func (m *Metrics) ObserveCycle(result string)      { m.cycles.WithLabelValues(result).Inc() }
func (m *Metrics) ObserveGeneration(source string) { m.generations.WithLabelValues(source).Inc() }
func (m *Metrics) SetActiveDestinations(n int)     { m.active.Set(float64(n)) }
func (m *Metrics) ObserveCommand(name string)      { m.commands.WithLabelValues(name).Inc() }

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
