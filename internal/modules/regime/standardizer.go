package regime

import (
	"fmt"

	"github.com/aristath/volregime/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// StandardizationParams is the (mean, scale) pair learned by Fit.
type StandardizationParams struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// Standardizer maps observations to zero mean and unit variance using
// statistics learned once from the fit series.
type Standardizer struct {
	params *StandardizationParams
}

// NewStandardizer creates an unfitted standardizer
func NewStandardizer() *Standardizer {
	return &Standardizer{}
}

// RestoreStandardizer rebuilds a fitted standardizer from stored parameters.
func RestoreStandardizer(p StandardizationParams) (*Standardizer, error) {
	if p.Scale <= 0 {
		return nil, fmt.Errorf("invalid standardization scale %v", p.Scale)
	}
	return &Standardizer{params: &p}, nil
}

// Fit learns the sample mean and sample standard deviation of values.
// A flat series gets scale 1 so that Transform stays finite.
func (s *Standardizer) Fit(values []float64) error {
	if len(values) < 2 {
		return fmt.Errorf("standardizer needs at least 2 observations, got %d: %w", len(values), domain.ErrEmptySeries)
	}

	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 {
		std = 1
	}

	s.params = &StandardizationParams{Mean: mean, Scale: std}
	return nil
}

// Transform returns (v - mean) / scale for every value
func (s *Standardizer) Transform(values []float64) ([]float64, error) {
	if s.params == nil {
		return nil, fmt.Errorf("standardizer: %w", domain.ErrNotFitted)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.params.Mean) / s.params.Scale
	}
	return out, nil
}

// FitTransform fits on values and transforms them in one call.
func (s *Standardizer) FitTransform(values []float64) ([]float64, error) {
	if err := s.Fit(values); err != nil {
		return nil, err
	}
	return s.Transform(values)
}

// Params returns the fitted parameters.
func (s *Standardizer) Params() (StandardizationParams, error) {
	if s.params == nil {
		return StandardizationParams{}, fmt.Errorf("standardizer: %w", domain.ErrNotFitted)
	}
	return *s.params, nil
}
