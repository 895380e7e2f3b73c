package status

import (
	"net/http"
	"strconv"

	"github.com/launchdarkly/test-engine/framework/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsNamespace = "test_engine"

// Metrics is a Listener that exports run and test counters to Prometheus. Each Metrics has
// its own registry.
type Metrics struct {
	engine.NullListener

	registry *prometheus.Registry

	runsStarted     prometheus.Counter
	runsCompleted   *prometheus.CounterVec
	testsCompleted  *prometheus.CounterVec
	testsSkipped    *prometheus.CounterVec
	testDuration    *prometheus.HistogramVec
	testsInProgress prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "runs_started_total",
			Help:      "Number of test runs started",
		}),
		runsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "runs_completed_total",
			Help:      "Number of test runs completed",
		}, []string{
			"cancelled",
		}),
		testsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_completed_total",
			Help:      "Number of tests run, by outcome",
		}, []string{
			"type",
			"outcome",
		}),
		testsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_skipped_total",
			Help:      "Number of tests skipped, by reason",
		}, []string{
			"type",
			"reason",
		}),
		testDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of tests including their actions",
			Buckets:   prometheus.DefBuckets,
		}, []string{
			"type",
		}),
		testsInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_in_progress",
			Help:      "Number of tests currently running",
		}),
	}
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RunStarted(engine.RunStartedEvent) error {
	m.runsStarted.Inc()
	return nil
}

func (m *Metrics) RunCompleted(e engine.RunCompletedEvent) error {
	m.runsCompleted.WithLabelValues(strconv.FormatBool(e.Cancelled)).Inc()
	return nil
}

func (m *Metrics) TestStarted(engine.TestStartedEvent) error {
	m.testsInProgress.Inc()
	return nil
}

func (m *Metrics) TestCompleted(e engine.TestCompletedEvent) error {
	m.testsInProgress.Dec()
	m.testsCompleted.WithLabelValues(e.Test.TypeName, e.Outcome.String()).Inc()
	m.testDuration.WithLabelValues(e.Test.TypeName).Observe(e.EndTime.Sub(e.StartTime).Seconds())
	return nil
}

func (m *Metrics) TestSkipped(e engine.TestSkippedEvent) error {
	m.testsSkipped.WithLabelValues(e.Test.TypeName, e.Reason.String()).Inc()
	return nil
}
