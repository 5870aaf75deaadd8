package regime

import (
	"fmt"

	"github.com/aristath/volregime/internal/domain"
	"github.com/rs/zerolog"
)

// Detector couples a Standardizer with a GaussianHMM so callers work on
// raw observations (daily VIX changes) end to end.
type Detector struct {
	scaler *Standardizer
	model  *GaussianHMM
	log    zerolog.Logger
}

// NewDetector creates an unfitted detector
func NewDetector(cfg HMMConfig, log zerolog.Logger) (*Detector, error) {
	model, err := NewGaussianHMM(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Detector{
		scaler: NewStandardizer(),
		model:  model,
		log:    log.With().Str("component", "regime_detector").Logger(),
	}, nil
}

// RestoreDetector rebuilds a fitted detector from persisted parameters.
func RestoreDetector(scale StandardizationParams, params Params, log zerolog.Logger) (*Detector, error) {
	scaler, err := RestoreStandardizer(scale)
	if err != nil {
		return nil, err
	}
	model, err := Restore(params, log)
	if err != nil {
		return nil, err
	}
	return &Detector{scaler: scaler, model: model, log: log}, nil
}

// Model exposes the underlying HMM
func (d *Detector) Model() *GaussianHMM {
	return d.model
}

// Standardizer exposes the fitted transform
func (d *Detector) Standardizer() *Standardizer {
	return d.scaler
}

// Fit learns the standardisation on observations and fits the HMM on the
// standardised values.
func (d *Detector) Fit(observations []float64) error {
	x, err := d.scaler.FitTransform(observations)
	if err != nil {
		return fmt.Errorf("standardize observations: %w", err)
	}
	if err := d.model.Fit(x); err != nil {
		return err
	}
	return nil
}

// Predict decodes states for raw observations using the fitted transform.
func (d *Detector) Predict(observations []float64) (domain.StateSequence, error) {
	x, err := d.scaler.Transform(observations)
	if err != nil {
		return nil, err
	}
	return d.model.Predict(x)
}

// Score returns the model selection criteria for raw observations.
func (d *Detector) Score(observations []float64) (ModelScore, error) {
	x, err := d.scaler.Transform(observations)
	if err != nil {
		return ModelScore{}, err
	}
	return ModelSelectionScore(d.model, x)
}
