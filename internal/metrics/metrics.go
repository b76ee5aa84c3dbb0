// Package metrics exposes the pipeline's health as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"codeberg.org/mutker/obsctl/internal/acquisition"
	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/logger"
	"codeberg.org/mutker/obsctl/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "obsctl"

// Collector bundles the daemon's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	SourceRequests  *prometheus.CounterVec
	SourceDurations *prometheus.HistogramVec
	BatchLatency    prometheus.Histogram
	Ticks           *prometheus.CounterVec
	Commits         *prometheus.CounterVec
	Connection      *prometheus.GaugeVec
	Clients         prometheus.Gauge
	ControlRequests *prometheus.CounterVec
	ControlDuration *prometheus.HistogramVec
}

var requestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// New registers the collectors against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses
// the existing collectors.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.SourceRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_requests_total",
		Help:      "Telemetry source requests, labeled by source and result.",
	}, []string{"source", "result"})); err != nil {
		return nil, err
	}
	if c.SourceDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "source_request_duration_seconds",
		Help:      "Telemetry source request latency in seconds.",
		Buckets:   requestBuckets,
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if c.BatchLatency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_latency_seconds",
		Help:      "Wall time of the primary fan-out of one tick.",
		Buckets:   requestBuckets,
	})); err != nil {
		return nil, err
	}
	if c.Ticks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_total",
		Help:      "Completed ticks, labeled by outcome (complete, partial, unreachable).",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if c.Commits, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_commits_total",
		Help:      "State commits, labeled by whether they were accepted or discarded as stale.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.Connection, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_status",
		Help:      "1 for the current control server connection status, 0 otherwise.",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if c.Clients, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Connected websocket renderers.",
	})); err != nil {
		return nil, err
	}
	if c.ControlRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "control_requests_total",
		Help:      "Proxied control requests, labeled by operation and result.",
	}, []string{"op", "result"})); err != nil {
		return nil, err
	}
	if c.ControlDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "control_request_duration_seconds",
		Help:      "Proxied control request latency in seconds.",
		Buckets:   requestBuckets,
	}, []string{"op"})); err != nil {
		return nil, err
	}

	c.SetConnection(state.Disconnected)

	logger.Debug().Msg("Metrics collectors registered")

	return c, nil
}

func (c *Collector) ObserveSource(src acquisition.Source, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.SourceRequests.WithLabelValues(src.String(), Result(err)).Inc()
	c.SourceDurations.WithLabelValues(src.String()).Observe(d.Seconds())
}

func (c *Collector) ObserveBatch(b *acquisition.Batch) {
	if c == nil || b == nil {
		return
	}
	c.BatchLatency.Observe(b.Latency.Seconds())

	outcome := "complete"
	switch {
	case b.Unreachable:
		outcome = "unreachable"
	case len(b.Failed()) > 0:
		outcome = "partial"
	}
	c.Ticks.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCommit(accepted bool) {
	if c == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "stale"
	}
	c.Commits.WithLabelValues(result).Inc()
}

// SetConnection sets the gauge for status to 1 and every other status to 0.
func (c *Collector) SetConnection(status state.ConnectionStatus) {
	if c == nil {
		return
	}
	for _, s := range []state.ConnectionStatus{state.Disconnected, state.Connected, state.Error} {
		v := 0.0
		if s == status {
			v = 1
		}
		c.Connection.WithLabelValues(s.String()).Set(v)
	}
}

func (c *Collector) SetClients(n int) {
	if c == nil {
		return
	}
	c.Clients.Set(float64(n))
}

func (c *Collector) ObserveControl(op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.ControlRequests.WithLabelValues(op, Result(err)).Inc()
	c.ControlDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Result maps a request error onto the "result" label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.HasCode(err, errors.ErrUnreachable):
		return ResultUnreachable
	case errors.HasCode(err, errors.ErrSourceStatus):
		return ResultBadStatus
	case errors.HasCode(err, errors.ErrSourceDecode):
		return ResultDecode
	default:
		return ResultError
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, errors.New().WithData(ErrIncompatibleMetric, are.ExistingCollector)
		}
		var zero T
		return zero, errors.New().Wrap(ErrInitMetrics, err)
	}
	return c, nil
}
