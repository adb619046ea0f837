package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "harness"

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Requests sent to the control plane, by method, path and status code.",
	}, []string{"method", "path", "code"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Latency of control plane requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	RequestRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "retries_total",
		Help:      "Retried control plane requests, by reason.",
	}, []string{"reason"})

	TaskPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "polls_total",
		Help:      "Task state polls.",
	})

	TaskWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "wait_duration_seconds",
		Help:      "Time spent waiting for tasks, by outcome.",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600},
	}, []string{"outcome"})

	MockRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mock",
		Name:      "requests_total",
		Help:      "Requests served by the mock control plane, by method, route and status code.",
	}, []string{"method", "route", "code"})

	MockFaultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mock",
		Name:      "injected_faults_total",
		Help:      "Requests answered with an injected 503.",
	})
)

func ObserveRequest(method, path string, code int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func ObserveWait(outcome string, elapsed time.Duration) {
	TaskWaitDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
