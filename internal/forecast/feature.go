package forecast

import "time"

// FeatureWidth is the size of the calendar feature vector: one slot per
// month followed by one slot per day-of-month.
const FeatureWidth = 12 + 31

// DateFeature one-hot encodes the month and day of t. The year does not
// participate, so features computed for the forecast year line up with
// the historical anchor year the models were trained against.
func DateFeature(t time.Time) []float64 {
	f := make([]float64, FeatureWidth)
	f[int(t.Month())-1] = 1
	f[12+t.Day()-1] = 1
	return f
}
