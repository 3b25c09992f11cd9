// Package metrics holds the Prometheus collectors for the simulator on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dronespoof"

type Metrics struct {
	registry *prometheus.Registry

	Ticks            *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	Footprints       *prometheus.CounterVec
	LogRecords       prometheus.Counter
	Clients          *prometheus.GaugeVec
	DroppedFrames    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sim_ticks_total",
			Help:      "Simulation ticks applied, by scenario.",
		}, []string{"scenario"}),
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Attack phases entered, by scenario and phase.",
		}, []string{"scenario", "phase"}),
		Footprints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "footprints_total",
			Help:      "Footprints emitted, by source and kind.",
		}, []string{"source", "kind"}),
		LogRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_records_created_total",
			Help:      "Records accepted by the log API.",
		}),
		Clients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients, by stream.",
		}, []string{"stream"}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_dropped_frames_total",
			Help:      "Frames dropped because a client send buffer was full.",
		}),
	}
	reg.MustRegister(
		m.Ticks,
		m.PhaseTransitions,
		m.Footprints,
		m.LogRecords,
		m.Clients,
		m.DroppedFrames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
