package metrics_test

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/obsctl/internal/acquisition"
	"codeberg.org/mutker/obsctl/internal/errors"
	"codeberg.org/mutker/obsctl/internal/metrics"
	"codeberg.org/mutker/obsctl/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollector(t *testing.T) (*metrics.Collector, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	c, err := metrics.New(reg)
	require.NoError(t, err)
	return c, reg
}

func TestObserveSource(t *testing.T) {
	c, reg := newCollector(t)

	c.ObserveSource(acquisition.SourceMount, 20*time.Millisecond, nil)
	c.ObserveSource(acquisition.SourceMount, 5*time.Millisecond, errors.New().New(errors.ErrUnreachable))
	c.ObserveSource(acquisition.SourceDome, time.Millisecond, errors.New().Wrap(errors.ErrSourceStatus, stderrors.New("503")))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.SourceRequests.WithLabelValues("mount", metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SourceRequests.WithLabelValues("mount", metrics.ResultUnreachable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SourceRequests.WithLabelValues("dome", metrics.ResultBadStatus)))
	assert.Equal(t, uint64(2), histogramSampleCount(t, reg, "obsctl_source_request_duration_seconds", map[string]string{"source": "mount"}))
}

func TestObserveBatch(t *testing.T) {
	c, reg := newCollector(t)

	c.ObserveBatch(&acquisition.Batch{Samples: []acquisition.Sample{{Source: acquisition.SourceMount, Payload: 1}}})
	c.ObserveBatch(&acquisition.Batch{Samples: []acquisition.Sample{{Source: acquisition.SourceMount, Err: stderrors.New("x")}}})
	c.ObserveBatch(&acquisition.Batch{Unreachable: true})
	c.ObserveBatch(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Ticks.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Ticks.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Ticks.WithLabelValues("unreachable")))
	assert.Equal(t, uint64(3), histogramSampleCount(t, reg, "obsctl_batch_latency_seconds", nil))
}

func TestConnectionGauge(t *testing.T) {
	c, _ := newCollector(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Connection.WithLabelValues("disconnected")))

	c.SetConnection(state.Connected)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Connection.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Connection.WithLabelValues("disconnected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Connection.WithLabelValues("error")))
}

func TestCommitsAndClients(t *testing.T) {
	c, _ := newCollector(t)

	c.ObserveCommit(true)
	c.ObserveCommit(true)
	c.ObserveCommit(false)
	c.SetClients(4)
	c.ObserveControl("halt", time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Commits.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Commits.WithLabelValues("stale")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Clients))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ControlRequests.WithLabelValues("halt", metrics.ResultOK)))
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := metrics.New(reg)
	require.NoError(t, err)
	second, err := metrics.New(reg)
	require.NoError(t, err)

	first.SetClients(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(second.Clients))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.ObserveSource(acquisition.SourceTime, time.Second, nil)
		c.ObserveBatch(&acquisition.Batch{})
		c.ObserveCommit(true)
		c.SetConnection(state.Error)
		c.SetClients(1)
		c.ObserveControl("stop", time.Second, nil)
	})
}

func TestHandler(t *testing.T) {
	c, _ := newCollector(t)
	c.ObserveSource(acquisition.SourceWeather, time.Millisecond, nil)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, name := range []string{
		"obsctl_source_requests_total",
		"obsctl_source_request_duration_seconds",
		"obsctl_connection_status",
		"obsctl_websocket_clients",
	} {
		assert.Contains(t, body, name)
	}
}

func TestResult(t *testing.T) {
	assert.Equal(t, metrics.ResultOK, metrics.Result(nil))
	assert.Equal(t, metrics.ResultDecode, metrics.Result(errors.New().New(errors.ErrSourceDecode)))
	assert.Equal(t, metrics.ResultError, metrics.Result(stderrors.New("boom")))
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	families, err := gatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
