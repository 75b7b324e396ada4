package forecast

import "fmt"

// Row is one [count, reserved] pair of an assembled series. The second
// channel is reserved and always zero.
type Row [2]int

// Frame is the assembled series consumed by the slot simulation: the most
// recent padding rows of real history, the forecast rows, and a
// terminating [0,0] sentinel. Offset marks where the padding ends and day
// zero of the prediction horizon begins.
type Frame struct {
	Rows   []Row
	Offset [2]int
}

// NewFrame builds a frame from a historical series and forecast output.
// The total length is always padding + len(preds) + 1.
func NewFrame(history []int, preds []Prediction, padding int) (Frame, error) {
	if padding < 0 {
		return Frame{}, fmt.Errorf("negative padding %d", padding)
	}
	if padding > len(history) {
		return Frame{}, fmt.Errorf("padding %d exceeds available history of %d days", padding, len(history))
	}

	rows := make([]Row, 0, padding+len(preds)+1)
	for _, count := range history[len(history)-padding:] {
		rows = append(rows, Row{count, 0})
	}
	for _, p := range preds {
		rows = append(rows, Row{p.Count, 0})
	}
	rows = append(rows, Row{0, 0}) // end-of-series sentinel

	return Frame{Rows: rows, Offset: [2]int{padding, 0}}, nil
}

// Horizon returns the number of forecast rows in the frame.
func (f Frame) Horizon() int {
	return len(f.Rows) - f.Offset[0] - 1
}
