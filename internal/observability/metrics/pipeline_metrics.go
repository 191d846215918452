package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"

	GenerationStageRender  = "render"
	GenerationStageConvert = "convert"
	GenerationStagePersist = "persist"
	GenerationStageResolve = "resolve"
)

// PipelineMetrics captures issuance pipeline health signals: control-number
// allocations, end-to-end generation outcomes and the converter queue.
type PipelineMetrics struct {
	allocations        *prometheus.CounterVec
	generations        *prometheus.CounterVec
	generationDuration prometheus.Observer
	generationFailures *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	jobWait            prometheus.Observer
	jobDuration        *prometheus.HistogramVec
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

// PipelineWithConfig returns the singleton pipeline metrics registry using config labels.
func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the pipeline metrics singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

func newPipelineMetrics(registerer prometheus.Registerer, cfg Config) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := cfg.constLabels()

	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "lingkod_control_number_allocations_total",
		Help:        "Control number allocations by outcome.",
		ConstLabels: labels,
	}, []string{"outcome"})
	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "lingkod_certificate_generations_total",
		Help:        "Certificate generation jobs by outcome.",
		ConstLabels: labels,
	}, []string{"outcome"})
	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "lingkod_certificate_generation_duration_seconds",
		Help:        "End-to-end certificate generation latency.",
		Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		ConstLabels: labels,
	})
	generationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "lingkod_certificate_generation_failures_total",
		Help:        "Certificate generation failures by pipeline stage.",
		ConstLabels: labels,
	}, []string{"stage"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "lingkod_converter_queue_depth",
		Help:        "Jobs waiting in the converter queue.",
		ConstLabels: labels,
	})
	jobWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "lingkod_converter_job_wait_seconds",
		Help:        "Time a conversion job spends queued before execution.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: labels,
	})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "lingkod_converter_job_duration_seconds",
		Help:        "Converter invocation latency by outcome.",
		Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		ConstLabels: labels,
	}, []string{"outcome"})

	registerer.MustRegister(
		allocations,
		generations,
		generationDuration,
		generationFailures,
		queueDepth,
		jobWait,
		jobDuration,
	)

	return &PipelineMetrics{
		allocations:        allocations,
		generations:        generations,
		generationDuration: generationDuration,
		generationFailures: generationFailures,
		queueDepth:         queueDepth,
		jobWait:            jobWait,
		jobDuration:        jobDuration,
	}
}

func (m *PipelineMetrics) IncAllocation(outcome string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveGeneration(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) IncGenerationFailure(stage string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(stage).Inc()
}

func (m *PipelineMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *PipelineMetrics) ObserveJobWait(wait time.Duration) {
	if m == nil {
		return
	}
	m.jobWait.Observe(wait.Seconds())
}

func (m *PipelineMetrics) ObserveJobDuration(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
