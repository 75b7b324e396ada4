package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInsufficientHistory is returned when the historical tail is shorter
// than the trailing window the model requires.
var ErrInsufficientHistory = errors.New("insufficient history for model context")

// Predictor scores a single future day from a trailing count window and a
// calendar feature. Element 0 of the returned vector is the forecast
// referral count for that day; any further elements are model-specific and
// pass through untouched.
type Predictor interface {
	Predict(ctx context.Context, window []int, feature []float64) ([]float64, error)
}

// Prediction is one forecast day.
type Prediction struct {
	Values []float64 // raw model output, Values[0] is the count channel
	Count  int       // Values[0] truncated to an integer
}

// Driver runs the closed-loop forecast: every prediction is fed back into
// the trailing window used for the next day. Errors compound through the
// window; no smoothing or correction is applied.
type Driver struct {
	predictor  Predictor
	contextLen int
}

// NewDriver creates a driver for a model requiring contextLen trailing days.
func NewDriver(p Predictor, contextLen int) *Driver {
	return &Driver{predictor: p, contextLen: contextLen}
}

// Run produces horizon predictions for consecutive calendar days starting
// at start. The seed window is the last contextLen entries of history.
func (d *Driver) Run(ctx context.Context, history []int, start time.Time, horizon int) ([]Prediction, error) {
	if len(history) < d.contextLen {
		return nil, fmt.Errorf("have %d days, model needs %d: %w", len(history), d.contextLen, ErrInsufficientHistory)
	}

	window := make([]int, d.contextLen)
	copy(window, history[len(history)-d.contextLen:])

	preds := make([]Prediction, 0, horizon)
	for offset := 0; offset < horizon; offset++ {
		day := start.AddDate(0, 0, offset)

		out, err := d.predictor.Predict(ctx, window, DateFeature(day))
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", day.Format("2006-01-02"), err)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("scoring %s: model returned an empty vector", day.Format("2006-01-02"))
		}

		// The count channel feeds the window and the frame as a daily
		// count; clamp NaN and negative outputs to zero.
		count := 0
		if raw := out[0]; !math.IsNaN(raw) && raw > 0 {
			count = int(raw)
		}
		preds = append(preds, Prediction{Values: out, Count: count})

		// Slide: drop the oldest day, feed the new prediction back in.
		window = append(window[1:], count)
	}
	return preds, nil
}
