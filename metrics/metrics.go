package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Encode results recorded by the orchestrator.
const (
	ResultSuccess         = "success"
	ResultValidationError = "validation_error"
	ResultConversionError = "conversion_error"
	ResultEncodeError     = "encode_error"
	ResultUnexpectedError = "unexpected_error"
)

// Metrics is what the encode pipeline reports.
type Metrics interface {
	ProcessStarted(program string)
	ProcessFinished(program string, exitCode int, elapsed time.Duration)
	EncodeCompleted(result string, originalBytes, outputBytes int64)
	FallbackAttempted()
	ArtifactsPending(n int)
	ArtifactsExpired(n int)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ProcessStarted(string)                      {}
func (Noop) ProcessFinished(string, int, time.Duration) {}
func (Noop) EncodeCompleted(string, int64, int64)       {}
func (Noop) FallbackAttempted()                         {}
func (Noop) ArtifactsPending(int)                       {}
func (Noop) ArtifactsExpired(int)                       {}

// Prom implements Metrics backed by a dedicated Prometheus registry.
type Prom struct {
	registry         *prometheus.Registry
	processesRunning *prometheus.GaugeVec
	processDuration  *prometheus.HistogramVec
	processFailures  *prometheus.CounterVec
	encodes          *prometheus.CounterVec
	bytesIn          prometheus.Counter
	bytesOut         prometheus.Counter
	fallbacks        prometheus.Counter
	artifactsPending prometheus.Gauge
	artifactsExpired prometheus.Counter
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		processesRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes_running",
			Help:      "External encoder/converter processes currently running",
		}, []string{"program"}),
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Wall time of external processes",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"program"}),
		processFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_failures_total",
			Help:      "External processes that exited nonzero",
		}, []string{"program"}),
		encodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encodes_total",
			Help:      "Compress requests by result",
		}, []string{"result"}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_input_bytes_total",
			Help:      "Bytes uploaded by successful encodes",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_output_bytes_total",
			Help:      "Bytes produced by successful encodes",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_encodes_total",
			Help:      "Encodes retried without JPEG reconstruction",
		}),
		artifactsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifacts_pending",
			Help:      "Encoded artifacts waiting to be downloaded",
		}),
		artifactsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_expired_total",
			Help:      "Artifacts reclaimed by the TTL sweep",
		}),
	}
	p.registry.MustRegister(
		p.processesRunning, p.processDuration, p.processFailures,
		p.encodes, p.bytesIn, p.bytesOut, p.fallbacks,
		p.artifactsPending, p.artifactsExpired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Handler serves the registry in the Prometheus text format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (p *Prom) Registry() *prometheus.Registry { return p.registry }

func (p *Prom) ProcessStarted(program string) {
	p.processesRunning.WithLabelValues(program).Inc()
}

func (p *Prom) ProcessFinished(program string, exitCode int, elapsed time.Duration) {
	p.processesRunning.WithLabelValues(program).Dec()
	p.processDuration.WithLabelValues(program).Observe(elapsed.Seconds())
	if exitCode != 0 {
		p.processFailures.WithLabelValues(program).Inc()
	}
}

func (p *Prom) EncodeCompleted(result string, originalBytes, outputBytes int64) {
	p.encodes.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		p.bytesIn.Add(float64(originalBytes))
		p.bytesOut.Add(float64(outputBytes))
	}
}

func (p *Prom) FallbackAttempted() { p.fallbacks.Inc() }

func (p *Prom) ArtifactsPending(n int) { p.artifactsPending.Set(float64(n)) }

func (p *Prom) ArtifactsExpired(n int) { p.artifactsExpired.Add(float64(n)) }

var (
	_ Metrics = Noop{}
	_ Metrics = (*Prom)(nil)
)
