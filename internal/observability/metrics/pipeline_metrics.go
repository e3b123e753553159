package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Config carries the constant labels applied to every pipeline metric.
type Config struct {
	ServiceName string
	Environment string
}

const (
	PipelineErrorTypeDeadlineExceeded = "deadline_exceeded"
	PipelineErrorTypeDB               = "db"
	PipelineErrorTypeProvider         = "provider"
	PipelineErrorTypeBusinessRule     = "business_rule"
	PipelineErrorTypeUnknown          = "unknown"
)

const (
	ProviderFaultAuth     = "authentication"
	ProviderFaultBalance  = "insufficient_balance"
	ProviderFaultTimeout  = "timeout"
	ProviderFaultUnparsed = "unparsed_response"
)

// PipelineMetrics captures fulfillment pipeline health signals.
type PipelineMetrics struct {
	stageRuns        *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stageTimeouts    *prometheus.CounterVec
	stageErrors      *prometheus.CounterVec
	batchProcessed   *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	providerFaults   *prometheus.CounterVec
	runLoopLag       prometheus.Histogram
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

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "vendora"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &PipelineMetrics{
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vendora_pipeline_stage_runs_total",
			Help:        "Pipeline stage runs by name.",
			ConstLabels: constLabels,
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "vendora_pipeline_stage_duration_seconds",
			Help:        "Pipeline stage latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		}, []string{"stage"}),
		stageTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vendora_pipeline_stage_timeouts_total",
			Help:        "Pipeline stages that hit their deadline.",
			ConstLabels: constLabels,
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vendora_pipeline_stage_errors_total",
			Help:        "Pipeline stage errors by classified reason.",
			ConstLabels: constLabels,
		}, []string{"stage", "reason"}),
		batchProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vendora_pipeline_batch_items_total",
			Help:        "Items processed per pipeline stage.",
			ConstLabels: constLabels,
		}, []string{"stage", "kind"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vendora_order_transitions_total",
			Help:        "Order status transitions applied by the pipeline.",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
		providerFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vendora_provider_faults_total",
			Help:        "Aggregator faults that leave orders untouched (auth, balance, unparsed).",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		runLoopLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "vendora_pipeline_run_loop_lag_seconds",
			Help:        "Lag between the scheduled tick and the actual pipeline run.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.stageRuns,
		m.stageDuration,
		m.stageTimeouts,
		m.stageErrors,
		m.batchProcessed,
		m.orderTransitions,
		m.providerFaults,
		m.runLoopLag,
	)
	return m
}

func (m *PipelineMetrics) IncStageRun(stage string) {
	if m == nil {
		return
	}
	m.stageRuns.WithLabelValues(stage).Inc()
}

func (m *PipelineMetrics) ObserveStageDuration(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *PipelineMetrics) IncStageTimeout(stage string) {
	if m == nil {
		return
	}
	m.stageTimeouts.WithLabelValues(stage).Inc()
}

func (m *PipelineMetrics) IncStageError(stage string, err error) {
	if m == nil {
		return
	}
	m.stageErrors.WithLabelValues(stage, ClassifyPipelineErrorType(err)).Inc()
}

func (m *PipelineMetrics) AddBatchProcessed(stage, kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.batchProcessed.WithLabelValues(stage, kind).Add(float64(count))
}

func (m *PipelineMetrics) IncOrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

func (m *PipelineMetrics) IncProviderFault(kind string) {
	if m == nil {
		return
	}
	m.providerFaults.WithLabelValues(kind).Inc()
}

func (m *PipelineMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}

// ClassifyPipelineErrorType buckets an error for the stage error counter.
func ClassifyPipelineErrorType(err error) string {
	if err == nil {
		return PipelineErrorTypeUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return PipelineErrorTypeDeadlineExceeded
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return PipelineErrorTypeDB
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return PipelineErrorTypeDB
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "provider"):
		return PipelineErrorTypeProvider
	case strings.Contains(msg, "missing") || strings.Contains(msg, "invalid") || strings.Contains(msg, "not_found"):
		return PipelineErrorTypeBusinessRule
	default:
		return PipelineErrorTypeUnknown
	}
}
