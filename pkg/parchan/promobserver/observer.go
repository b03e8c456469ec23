// Package promobserver exports task channel activity as Prometheus metrics.
package promobserver

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ib-77/parchan/pkg/parchan"
)

const namespace = "parchan"

// Observer implements parchan.Observer on top of Prometheus collectors. Every
// series carries a "channel" label naming the observed channel.
type Observer struct {
	submitted prometheus.Counter
	started   prometheus.Counter
	finished  *prometheus.CounterVec
	read      *prometheus.CounterVec
	inFlight  prometheus.Gauge
	halted    prometheus.Gauge
	open      prometheus.Gauge
	duration  prometheus.Histogram
}

var _ parchan.Observer = (*Observer)(nil)

// New creates the collectors for the channel named name and registers them
// with reg.
func New(reg prometheus.Registerer, name string) (*Observer, error) {
	labels := prometheus.Labels{"channel": name}
	o := &Observer{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_submitted_total",
			Help: "Tasks pushed to the channel.", ConstLabels: labels,
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_started_total",
			Help: "Tasks admitted for execution.", ConstLabels: labels,
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tasks_finished_total",
			Help: "Tasks that reported an outcome, by outcome.", ConstLabels: labels,
		}, []string{"outcome"}),
		read: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "results_read_total",
			Help: "Outcomes consumed by readers, by outcome.", ConstLabels: labels,
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tasks_in_flight",
			Help: "Tasks currently running.", ConstLabels: labels,
		}),
		halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "halted",
			Help: "1 while admission is paused by an unread failure.", ConstLabels: labels,
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "open",
			Help: "1 while the channel accepts more submissions.", ConstLabels: labels,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "task_duration_seconds",
			Help: "Time from admission to reported outcome.", ConstLabels: labels,
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{
		o.submitted, o.started, o.finished, o.read, o.inFlight, o.halted, o.open, o.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering channel %q metrics: %w", name, err)
		}
	}
	return o, nil
}

func (o *Observer) TaskSubmitted(int) {
	o.submitted.Inc()
}

func (o *Observer) TaskStarted(int) {
	o.started.Inc()
	o.inFlight.Inc()
}

func (o *Observer) TaskFinished(_ int, err error, took time.Duration) {
	o.inFlight.Dec()
	o.finished.WithLabelValues(outcome(err)).Inc()
	o.duration.Observe(took.Seconds())
}

func (o *Observer) ResultRead(_ int, err error) {
	o.read.WithLabelValues(outcome(err)).Inc()
}

func (o *Observer) Halted(halted bool) {
	o.halted.Set(boolGauge(halted))
}

func (o *Observer) Lifecycle(open bool) {
	o.open.Set(boolGauge(open))
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
