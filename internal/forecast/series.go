package forecast

import "time"

// BuildDailySeries converts discrete referral-event dates into a dense,
// zero-filled count vector covering the half-open window
// [anchor, anchor+length). Position i holds the number of events received
// on day anchor+i; events outside the window are ignored.
func BuildDailySeries(dates []time.Time, anchor time.Time, length int) []int {
	if length < 1 {
		return nil
	}

	series := make([]int, length)
	day0 := Midnight(anchor)
	for _, d := range dates {
		idx := DaysBetween(day0, Midnight(d))
		if idx < 0 || idx >= length {
			continue
		}
		series[idx]++
	}
	return series
}

// Midnight truncates t to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of whole calendar days from a to b.
// Both arguments are expected to be midnight-aligned.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
