package triage

import "errors"

// Sentinel failures of a pipeline run. All are fatal: the run aborts on
// the first class that hits one and no partial results are returned.
var (
	// ErrNoHistoricAnchor means no historical year matches the forecast
	// start's (month, day) position, so no trailing window exists.
	ErrNoHistoricAnchor = errors.New("no historic anchor found")

	// ErrMissingModel means the registry holds zero or several active
	// models for a clinic and severity.
	ErrMissingModel = errors.New("no single active model registered")
)
