// Package regime fits Gaussian hidden Markov models to a volatility signal
// and labels the hidden states by volatility.
package regime

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/volregime/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EM defaults.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-2
	DefaultSeed          = 42
	DefaultMinVariance   = 1e-3
)

// HMMConfig holds construction parameters for a GaussianHMM.
type HMMConfig struct {
	// States is the number of hidden states K (>= 2).
	States int
	// MaxIterations bounds the number of EM passes.
	MaxIterations int
	// Tolerance is the minimum log-likelihood gain to keep iterating.
	Tolerance float64
	// Seed drives the k-means initialisation.
	Seed uint64
	// MinVariance floors every emission variance.
	MinVariance float64
}

// DefaultHMMConfig returns the default configuration for k states.
func DefaultHMMConfig(k int) HMMConfig {
	return HMMConfig{
		States:        k,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		Seed:          DefaultSeed,
		MinVariance:   DefaultMinVariance,
	}
}

// Params is a snapshot of fitted HMM parameters.
type Params struct {
	States     int         `json:"states"`
	StartProb  []float64   `json:"start_prob"`
	TransMat   [][]float64 `json:"trans_mat"`
	Means      []float64   `json:"means"`
	Variances  []float64   `json:"variances"`
	Converged  bool        `json:"converged"`
	Iterations int         `json:"iterations"`
}

// GaussianHMM is a hidden Markov model with one-dimensional Gaussian
// emissions. Parameters are undefined until Fit succeeds and are never
// mutated afterwards; a refit replaces them wholesale.
type GaussianHMM struct {
	cfg HMMConfig
	log zerolog.Logger

	fitted     bool
	startProb  []float64
	transMat   *mat.Dense
	means      []float64
	variances  []float64
	converged  bool
	iterations int
	history    []float64
}

// NewGaussianHMM creates an unfitted model.
func NewGaussianHMM(cfg HMMConfig, log zerolog.Logger) (*GaussianHMM, error) {
	if cfg.States < 2 {
		return nil, fmt.Errorf("hmm needs at least 2 states, got %d", cfg.States)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.MinVariance <= 0 {
		cfg.MinVariance = DefaultMinVariance
	}

	return &GaussianHMM{
		cfg: cfg,
		log: log.With().Str("component", "gaussian_hmm").Int("states", cfg.States).Logger(),
	}, nil
}

// States returns K
func (m *GaussianHMM) States() int {
	return m.cfg.States
}

// Converged reports whether the last Fit stopped on the tolerance rather
// than on the iteration limit.
func (m *GaussianHMM) Converged() bool {
	return m.converged
}

// Iterations returns the number of EM passes run by the last Fit.
func (m *GaussianHMM) Iterations() int {
	return m.iterations
}

// LogLikelihoodHistory returns the log-likelihood of every EM pass.
func (m *GaussianHMM) LogLikelihoodHistory() []float64 {
	out := make([]float64, len(m.history))
	copy(out, m.history)
	return out
}

// Fit estimates start probabilities, transitions and per-state emission
// mean/variance by Baum-Welch EM on the standardised observations.
func (m *GaussianHMM) Fit(x []float64) error {
	k := m.cfg.States
	if len(x) < k {
		return fmt.Errorf("fit %d states on %d observations: %w", k, len(x), domain.ErrInsufficientData)
	}

	start := time.Now()
	p := m.initialParams(x)

	history := make([]float64, 0, m.cfg.MaxIterations)
	converged := false

	for iter := 0; iter < m.cfg.MaxIterations; iter++ {
		stats := p.expectation(x)
		history = append(history, stats.logLikelihood)

		if n := len(history); n >= 2 && history[n-1]-history[n-2] < m.cfg.Tolerance {
			converged = true
			break
		}

		p.maximization(x, stats, m.cfg.MinVariance)
	}

	m.startProb = p.startProb
	m.transMat = mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		m.transMat.SetRow(i, p.transMat[i])
	}
	m.means = p.means
	m.variances = p.variances
	m.converged = converged
	m.iterations = len(history)
	m.history = history
	m.fitted = true

	event := m.log.Info()
	if !converged {
		event = m.log.Warn()
	}
	event.
		Bool("converged", converged).
		Int("iterations", len(history)).
		Float64("log_likelihood", history[len(history)-1]).
		Dur("elapsed", time.Since(start)).
		Msg("Fitted Gaussian HMM")

	return nil
}

// Predict decodes the single most probable state path (Viterbi).
func (m *GaussianHMM) Predict(x []float64) (domain.StateSequence, error) {
	p, err := m.current()
	if err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return domain.StateSequence{}, nil
	}
	return p.viterbi(x), nil
}

// PredictProba returns the posterior probability of every state per day.
func (m *GaussianHMM) PredictProba(x []float64) ([][]float64, error) {
	p, err := m.current()
	if err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return [][]float64{}, nil
	}

	stats := p.expectation(x)
	out := make([][]float64, len(x))
	for t := range stats.logGamma {
		row := make([]float64, len(stats.logGamma[t]))
		for i, lg := range stats.logGamma[t] {
			row[i] = math.Exp(lg)
		}
		out[t] = row
	}
	return out, nil
}

// Score returns the total log-likelihood of x under the fitted model.
func (m *GaussianHMM) Score(x []float64) (float64, error) {
	p, err := m.current()
	if err != nil {
		return 0, err
	}
	if len(x) == 0 {
		return 0, fmt.Errorf("score: %w", domain.ErrEmptySeries)
	}
	_, ll := p.forward(p.emissionLogProb(x))
	return ll, nil
}

// Params returns a deep copy of the fitted parameters.
func (m *GaussianHMM) Params() (Params, error) {
	if !m.fitted {
		return Params{}, fmt.Errorf("params: %w", domain.ErrNotFitted)
	}

	k := m.cfg.States
	trans := make([][]float64, k)
	for i := 0; i < k; i++ {
		trans[i] = mat.Row(nil, i, m.transMat)
	}

	return Params{
		States:     k,
		StartProb:  append([]float64(nil), m.startProb...),
		TransMat:   trans,
		Means:      append([]float64(nil), m.means...),
		Variances:  append([]float64(nil), m.variances...),
		Converged:  m.converged,
		Iterations: m.iterations,
	}, nil
}

// Restore rebuilds a fitted model from persisted parameters.
func Restore(p Params, log zerolog.Logger) (*GaussianHMM, error) {
	cfg := DefaultHMMConfig(p.States)
	m, err := NewGaussianHMM(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	m.startProb = append([]float64(nil), p.StartProb...)
	m.transMat = mat.NewDense(p.States, p.States, nil)
	for i, row := range p.TransMat {
		m.transMat.SetRow(i, row)
	}
	m.means = append([]float64(nil), p.Means...)
	m.variances = append([]float64(nil), p.Variances...)
	m.converged = p.Converged
	m.iterations = p.Iterations
	m.fitted = true
	return m, nil
}

func (p Params) validate() error {
	k := p.States
	if len(p.StartProb) != k || len(p.TransMat) != k || len(p.Means) != k || len(p.Variances) != k {
		return fmt.Errorf("parameter shapes do not match %d states", k)
	}
	if math.Abs(floats.Sum(p.StartProb)-1) > 1e-6 {
		return fmt.Errorf("start probabilities sum to %v", floats.Sum(p.StartProb))
	}
	for i, row := range p.TransMat {
		if len(row) != k {
			return fmt.Errorf("transition row %d has %d entries", i, len(row))
		}
		if math.Abs(floats.Sum(row)-1) > 1e-6 {
			return fmt.Errorf("transition row %d sums to %v", i, floats.Sum(row))
		}
	}
	for i, v := range p.Variances {
		if v <= 0 {
			return fmt.Errorf("variance of state %d is %v", i, v)
		}
	}
	return nil
}

func (m *GaussianHMM) current() (*hmmState, error) {
	if !m.fitted {
		return nil, fmt.Errorf("gaussian hmm: %w", domain.ErrNotFitted)
	}

	k := m.cfg.States
	trans := make([][]float64, k)
	for i := 0; i < k; i++ {
		trans[i] = mat.Row(nil, i, m.transMat)
	}
	return &hmmState{
		k:         k,
		startProb: m.startProb,
		transMat:  trans,
		means:     m.means,
		variances: m.variances,
	}, nil
}
