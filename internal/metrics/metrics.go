// Package metrics holds the Prometheus collectors of the simulator and the
// Recorder that nodes report their events and load samples to.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	QueueLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "loadsim_node_queue_length", Help: "Queued tasks per node at the last gossip round"},
		[]string{"node"},
	)
	TasksProcessed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "loadsim_node_tasks_processed", Help: "Cumulative processed tasks per node at the last gossip round"},
		[]string{"node"},
	)
	TasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loadsim_tasks_completed_total", Help: "Completed tasks"},
		[]string{"node"},
	)
	TaskLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loadsim_task_latency_seconds",
			Help:    "Task creation to completion latency",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
	Envelopes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loadsim_envelopes_total", Help: "Routed envelopes by kind and outcome"},
		[]string{"kind", "outcome"},
	)
	Migrations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "loadsim_migrations_total", Help: "Tasks handed to a peer"},
	)
)

// Envelope outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeRefused   = "refused"
	OutcomeDropped   = "dropped"
)

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{QueueLength, TasksProcessed, TasksCompleted, TaskLatency, Envelopes, Migrations}
}

// NewRegistry returns a registry with every simulator collector plus the
// Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
