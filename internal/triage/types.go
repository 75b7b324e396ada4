package triage

import (
	"context"
	"time"

	"triagecast/internal/forecast"
)

// Interval is an inclusive [start, end] calendar date pair. The caller
// guarantees that a request's intervals are contiguous and non-overlapping.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Class is one triage severity class of a clinic. Immutable for the
// duration of a pipeline run.
type Class struct {
	Name          string
	Severity      int
	DurationWeeks int     // drives the simulation window lengths
	Proportion    float64 // target share of referrals seen within the window
}

// Request describes one pipeline run.
type Request struct {
	ClinicID   int
	Intervals  []Interval
	Confidence float64
	SimRuns    int
}

// IntervalPrediction is the per-interval result for one triage class.
type IntervalPrediction struct {
	Slots     int    `json:"slots"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// IndexRange addresses an interval as inclusive day indices into the
// forecast horizon, day 0 being the first forecast day.
type IndexRange struct {
	Start int
	End   int
}

// SlotParams carries the per-class simulation parameters.
type SlotParams struct {
	Window      int     // days a referral should be seen within
	FinalWindow int     // relaxed window applied to the last interval
	MinRatio    float64 // required share seen within the window
	Confidence  float64
	Intervals   []IndexRange
	Runs        int
}

// SlotEstimate is the simulation outcome for one interval.
type SlotEstimate struct {
	ExpectedSlots int
}

// DataStore is the historical referral store and model registry.
type DataStore interface {
	// AnchorYear returns the most recent year holding a referral whose
	// month equals start's month and whose day is on or after start's day.
	AnchorYear(ctx context.Context, start time.Time) (int, error)

	// ReferralDates returns received dates for a severity within the
	// half-open range [from, to), chronologically ascending.
	ReferralDates(ctx context.Context, severity int, from, to time.Time) ([]time.Time, error)

	// ActiveModelPath returns the registry path of the single active model
	// for the clinic and severity.
	ActiveModelPath(ctx context.Context, clinicID, severity int) (string, error)

	// Classes returns the clinic's triage classes in configured order.
	Classes(ctx context.Context, clinicID int) ([]Class, error)
}

// ModelSource yields predictors bound to registry model paths.
type ModelSource interface {
	Predictor(path string) forecast.Predictor
}

// Simulator turns an assembled frame into per-interval slot estimates, one
// per entry of SlotParams.Intervals.
type Simulator interface {
	MinIntervalSlots(ctx context.Context, frame forecast.Frame, params SlotParams) ([]SlotEstimate, error)
}
