package domain

import "errors"

// Structural errors are fatal and returned to the caller immediately.
// Per-day data gaps are never reported through these; they are excluded
// and counted instead.
var (
	// ErrEmptySeries is returned when a series has fewer observations than
	// an operation requires (one for metrics, two for standardisation).
	ErrEmptySeries = errors.New("series has too few observations")

	// ErrNotFitted is returned when a model or transform is queried before Fit.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrInsufficientData is returned when a series is shorter than the
	// number of latent states to estimate.
	ErrInsufficientData = errors.New("insufficient data for the number of states")

	// ErrMisaligned is returned when series that must share a day index do not.
	ErrMisaligned = errors.New("series are not aligned to the same day index")

	// ErrUnknownInstrument is returned when an instrument is not in the return table.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrInvalidLag is returned for negative execution lags.
	ErrInvalidLag = errors.New("lag must be non-negative")
)
