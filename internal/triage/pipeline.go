package triage

import (
	"context"
	"fmt"
	"time"

	"triagecast/internal/forecast"

	"github.com/rs/zerolog/log"
)

// Config holds the padding constants of a pipeline. They are passed in at
// construction so concurrent runs can use different settings.
type Config struct {
	ModelContextDays int // trailing window length the models were trained on
	SimPaddingDays   int // historical warm-up rows the simulation needs
}

// Pipeline drives the per-class forecast and simulation sequence: calendar
// alignment, daily series building, closed-loop forecasting, frame
// assembly, and slot simulation.
type Pipeline struct {
	cfg    Config
	store  DataStore
	models ModelSource
	sim    Simulator
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(cfg Config, store DataStore, models ModelSource, sim Simulator) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, models: models, sim: sim}
}

// Predict runs the full sequence for every triage class of the clinic, in
// the clinic's configured class order. Classes are processed one at a
// time; the first failure aborts the whole run.
func (p *Pipeline) Predict(ctx context.Context, req Request) (map[string][]IntervalPrediction, error) {
	if len(req.Intervals) == 0 {
		return nil, fmt.Errorf("no intervals requested")
	}

	start := forecast.Midnight(req.Intervals[0].Start)
	end := forecast.Midnight(req.Intervals[len(req.Intervals)-1].End)
	horizon := forecast.DaysBetween(start, end) + 1
	if horizon < 1 {
		return nil, fmt.Errorf("empty prediction horizon: %s to %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	classes, err := p.store.Classes(ctx, req.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("loading triage classes for clinic %d: %w", req.ClinicID, err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("clinic %d has no triage classes", req.ClinicID)
	}

	ranges := intervalRanges(req.Intervals, start)

	response := make(map[string][]IntervalPrediction, len(classes))
	for _, class := range classes {
		results, err := p.predictClass(ctx, req, class, start, horizon, ranges)
		if err != nil {
			return nil, fmt.Errorf("triage class %q: %w", class.Name, err)
		}
		response[class.Name] = results
	}
	return response, nil
}

func (p *Pipeline) predictClass(ctx context.Context, req Request, class Class, start time.Time, horizon int, ranges []IndexRange) ([]IntervalPrediction, error) {
	// The historical pull must cover both the model context and the
	// simulation padding.
	histLen := p.cfg.ModelContextDays
	if p.cfg.SimPaddingDays > histLen {
		histLen = p.cfg.SimPaddingDays
	}

	// Align the historical window with the forecast start's month and day
	// so the trailing seed ends on the same point of the seasonal cycle.
	year, err := p.store.AnchorYear(ctx, start)
	if err != nil {
		return nil, err
	}
	// time.Date normalizes out-of-range days: a February 29 start with a
	// non-leap anchor year puts histEnd on March 1 of that year.
	histEnd := time.Date(year, start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	histStart := histEnd.AddDate(0, 0, -histLen)

	dates, err := p.store.ReferralDates(ctx, class.Severity, histStart, histEnd)
	if err != nil {
		return nil, fmt.Errorf("loading referrals: %w", err)
	}
	series := forecast.BuildDailySeries(dates, histStart, histLen)

	path, err := p.store.ActiveModelPath(ctx, req.ClinicID, class.Severity)
	if err != nil {
		return nil, err
	}

	driver := forecast.NewDriver(p.models.Predictor(path), p.cfg.ModelContextDays)
	preds, err := driver.Run(ctx, series, start, horizon)
	if err != nil {
		return nil, err
	}

	frame, err := forecast.NewFrame(series, preds, p.cfg.SimPaddingDays)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("class", class.Name).
		Int("severity", class.Severity).
		Int("anchor_year", year).
		Int("horizon", horizon).
		Msg("Frame assembled")

	estimates, err := p.sim.MinIntervalSlots(ctx, frame, SlotParams{
		Window:      class.DurationWeeks * 7,
		FinalWindow: class.DurationWeeks * 14,
		MinRatio:    class.Proportion,
		Confidence:  req.Confidence,
		Intervals:   ranges,
		Runs:        req.SimRuns,
	})
	if err != nil {
		return nil, fmt.Errorf("simulating slots: %w", err)
	}
	if len(estimates) != len(req.Intervals) {
		return nil, fmt.Errorf("simulation returned %d results for %d intervals", len(estimates), len(req.Intervals))
	}

	results := make([]IntervalPrediction, len(estimates))
	for i, est := range estimates {
		results[i] = IntervalPrediction{
			Slots:     est.ExpectedSlots,
			StartDate: req.Intervals[i].Start.Format("2006-01-02"),
			EndDate:   req.Intervals[i].End.Format("2006-01-02"),
		}
	}
	return results, nil
}

// intervalRanges maps request intervals to inclusive day indices relative
// to the horizon start.
func intervalRanges(intervals []Interval, start time.Time) []IndexRange {
	ranges := make([]IndexRange, len(intervals))
	for i, iv := range intervals {
		ranges[i] = IndexRange{
			Start: forecast.DaysBetween(start, forecast.Midnight(iv.Start)),
			End:   forecast.DaysBetween(start, forecast.Midnight(iv.End)),
		}
	}
	return ranges
}
