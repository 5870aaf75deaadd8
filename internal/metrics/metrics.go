// Package metrics holds the Prometheus instruments for analysis runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "volregime"

// Registry holds all Prometheus metrics for volregime
type Registry struct {
	reg *prometheus.Registry

	// Pipeline step metrics
	StepDuration *prometheus.HistogramVec
	StepErrors   *prometheus.CounterVec

	// Model metrics
	FitIterations   prometheus.Histogram
	FitNotConverged prometheus.Counter
	LogLikelihood   prometheus.Gauge
	RegimeOccupancy *prometheus.GaugeVec
	CurrentRegime   prometheus.Gauge

	// Backtest metrics
	StrategySharpe *prometheus.GaugeVec
	ExcludedDays   *prometheus.GaugeVec

	// Run metrics
	RunsTotal *prometheus.CounterVec
}

// NewRegistry creates the metrics on a private registry, so several
// instances (tests, CLI and server) never collide on registration.
func NewRegistry() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of each analysis step in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"step"},
		),

		StepErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_errors_total",
				Help:      "Total number of failed analysis steps",
			},
			[]string{"step"},
		),

		FitIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hmm_fit_iterations",
				Help:      "EM iterations used per HMM fit",
				Buckets:   []float64{1, 5, 10, 20, 50, 100, 200},
			},
		),

		FitNotConverged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hmm_fit_not_converged_total",
				Help:      "HMM fits that hit the iteration cap before the tolerance",
			},
		),

		LogLikelihood: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hmm_log_likelihood",
				Help:      "Log-likelihood of the latest fitted model",
			},
		),

		RegimeOccupancy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "regime_days",
				Help:      "Days spent in each labelled regime in the latest run",
			},
			[]string{"regime"},
		),

		CurrentRegime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_regime_rank",
				Help:      "Volatility rank of the most recent day's regime (0 = lowest)",
			},
		),

		StrategySharpe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "strategy_sharpe_ratio",
				Help:      "Sharpe ratio per strategy in the latest run",
			},
			[]string{"strategy"},
		),

		ExcludedDays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backtest_excluded_days",
				Help:      "Days the latest backtest could not resolve, by reason",
			},
			[]string{"reason"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_runs_total",
				Help:      "Total number of analysis runs by outcome",
			},
			[]string{"result"},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StepDuration,
		m.StepErrors,
		m.FitIterations,
		m.FitNotConverged,
		m.LogLikelihood,
		m.RegimeOccupancy,
		m.CurrentRegime,
		m.StrategySharpe,
		m.ExcludedDays,
		m.RunsTotal,
	)

	return m
}

// Gatherer exposes the underlying registry for tests and custom exporters
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler serves the registry in the Prometheus text format
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StepTimer tracks execution time for an analysis step
type StepTimer struct {
	metrics *Registry
	step    string
	start   time.Time
}

// StartStep begins timing an analysis step
func (m *Registry) StartStep(step string) *StepTimer {
	return &StepTimer{
		metrics: m,
		step:    step,
		start:   time.Now(),
	}
}

// Stop records the step duration, counting it as failed when err is non-nil
func (st *StepTimer) Stop(err error) {
	st.metrics.StepDuration.WithLabelValues(st.step).Observe(time.Since(st.start).Seconds())
	if err != nil {
		st.metrics.StepErrors.WithLabelValues(st.step).Inc()
	}
}

// RecordFit records the outcome of one HMM fit
func (m *Registry) RecordFit(iterations int, converged bool, logLikelihood float64) {
	m.FitIterations.Observe(float64(iterations))
	if !converged {
		m.FitNotConverged.Inc()
	}
	m.LogLikelihood.Set(logLikelihood)
}

// RecordRun counts a finished run
func (m *Registry) RecordRun(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
}
