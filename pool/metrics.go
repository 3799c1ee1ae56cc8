// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the Prometheus instrumentation of one Pool.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	submitted prometheus.Counter
	rejected  prometheus.Counter
	completed prometheus.Counter
	panicked  prometheus.Counter
	exited    prometheus.Counter
	dropped   prometheus.Counter
	pending   prometheus.Gauge
	workers   prometheus.Gauge
}

// NewMetrics creates pool metrics registered with reg under namespace,
// labelled pool=name. A nil reg creates unregistered metrics.
//
// Exposed series (subsystem "pool"):
//
//	<namespace>_pool_tasks_submitted_total
//	<namespace>_pool_tasks_rejected_total
//	<namespace>_pool_tasks_completed_total
//	<namespace>_pool_tasks_panicked_total
//	<namespace>_pool_tasks_exited_total
//	<namespace>_pool_tasks_dropped_total
//	<namespace>_pool_tasks_pending
//	<namespace>_pool_workers
func NewMetrics(reg prometheus.Registerer, namespace, name string) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"pool": name}

	counter := func(metric, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(metric, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "pool",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &Metrics{
		submitted: counter("tasks_submitted_total", "Total number of tasks accepted into the queue"),
		rejected:  counter("tasks_rejected_total", "Total number of submissions rejected on a full queue"),
		completed: counter("tasks_completed_total", "Total number of tasks that ran to completion"),
		panicked:  counter("tasks_panicked_total", "Total number of tasks that panicked"),
		exited:    counter("tasks_exited_total", "Total number of tasks that called runtime.Goexit"),
		dropped:   counter("tasks_dropped_total", "Total number of accepted tasks discarded by shutdown"),
		pending:   gauge("tasks_pending", "Number of accepted tasks not yet finished or dropped"),
		workers:   gauge("workers", "Number of running workers"),
	}
}

func (m *Metrics) submit() {
	if m == nil {
		return
	}
	m.submitted.Inc()
	m.pending.Inc()
}

func (m *Metrics) reject() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *Metrics) finish(panicked bool) {
	if m == nil {
		return
	}
	if panicked {
		m.panicked.Inc()
	} else {
		m.completed.Inc()
	}
	m.pending.Dec()
}

func (m *Metrics) exit() {
	if m == nil {
		return
	}
	m.exited.Inc()
	m.pending.Dec()
}

func (m *Metrics) drop(n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.Add(float64(n))
	m.pending.Sub(float64(n))
}

func (m *Metrics) setWorkers(n int) {
	if m == nil {
		return
	}
	m.workers.Set(float64(n))
}
