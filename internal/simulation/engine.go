package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"triagecast/internal/forecast"
	"triagecast/internal/triage"
)

// Engine estimates the minimum daily slot count per interval through
// Monte-Carlo trials over an assembled frame. It implements
// triage.Simulator.
type Engine struct {
	rng *rand.Rand
}

// maxSlotSearch is the safety brake for the slot search. A clinic needing
// more than this many daily slots is outside any realistic configuration.
const maxSlotSearch = 512

func NewEngine() *Engine {
	return &Engine{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MinIntervalSlots processes the intervals chronologically. For each one
// it finds the smallest daily slot count whose simulated within-window
// service ratio reaches params.MinRatio in at least params.Confidence of
// the runs. Unserved referrals carry over into the next interval's queue;
// the final interval is judged against params.FinalWindow.
func (e *Engine) MinIntervalSlots(ctx context.Context, frame forecast.Frame, params triage.SlotParams) ([]triage.SlotEstimate, error) {
	if len(params.Intervals) == 0 {
		return nil, fmt.Errorf("no intervals to simulate")
	}
	if params.Runs < 1 {
		return nil, fmt.Errorf("run count must be positive, got %d", params.Runs)
	}

	estimates := make([]triage.SlotEstimate, 0, len(params.Intervals))
	var backlog []int // arrival day index of every waiting referral

	for i, iv := range params.Intervals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := params.Window
		if i == len(params.Intervals)-1 {
			window = params.FinalWindow
		}

		slots := e.minSlotsForInterval(frame, iv, window, params, backlog, i == 0)
		estimates = append(estimates, triage.SlotEstimate{ExpectedSlots: slots})

		// Carry the leftover queue of a representative run forward.
		_, backlog = e.trial(frame, iv, window, slots, params.MinRatio, backlog, i == 0)
	}
	return estimates, nil
}

// minSlotsForInterval searches the smallest slot count meeting the
// confidence target. The hit ratio is monotone in the slot count, so a
// doubling phase followed by a binary search is sufficient.
func (e *Engine) minSlotsForInterval(frame forecast.Frame, iv triage.IndexRange, window int, params triage.SlotParams, backlog []int, warmup bool) int {
	meets := func(slots int) bool {
		hits := 0
		for r := 0; r < params.Runs; r++ {
			ok, _ := e.trial(frame, iv, window, slots, params.MinRatio, backlog, warmup)
			if ok {
				hits++
			}
		}
		return float64(hits) >= params.Confidence*float64(params.Runs)
	}

	if meets(0) {
		return 0
	}

	lo, hi := 0, 1
	for !meets(hi) {
		lo = hi
		hi *= 2
		if hi >= maxSlotSearch {
			if !meets(maxSlotSearch) {
				return maxSlotSearch
			}
			hi = maxSlotSearch
			break
		}
	}

	for lo+1 < hi {
		mid := (lo + hi) / 2
		if meets(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// trial simulates one run of the interval at a fixed slot count. It
// returns whether the within-window service ratio met minRatio, and the
// queue state at the end of the interval for carry-over.
func (e *Engine) trial(frame forecast.Frame, iv triage.IndexRange, window, slots int, minRatio float64, backlog []int, warmup bool) (bool, []int) {
	offset := frame.Offset[0]
	queue := append([]int(nil), backlog...)

	// Warm the queue over the padding rows so day zero starts from a
	// realistic backlog rather than an empty clinic.
	if warmup {
		for d := -offset; d < 0; d++ {
			arrivals := e.poisson(float64(frame.Rows[offset+d][0]))
			for a := 0; a < arrivals; a++ {
				queue = append(queue, d)
			}
			served := slots
			if served > len(queue) {
				served = len(queue)
			}
			queue = queue[served:]
		}
	}

	total, onTime := 0, 0
	var leftover []int

	// Run through the interval plus a tail of `window` extra days so late
	// arrivals still get their chance to be seen on time.
	for day := iv.Start; day <= iv.End+window; day++ {
		if row := offset + day; row >= 0 && row < len(frame.Rows)-1 { // last row is the sentinel
			arrivals := e.poisson(float64(frame.Rows[row][0]))
			for a := 0; a < arrivals; a++ {
				queue = append(queue, day)
				if day <= iv.End {
					total++
				}
			}
		}

		served := slots
		if served > len(queue) {
			served = len(queue)
		}
		for s := 0; s < served; s++ {
			arrived := queue[s]
			if arrived >= iv.Start && arrived <= iv.End && day-arrived <= window {
				onTime++
			}
		}
		queue = queue[served:]

		if day == iv.End {
			leftover = append([]int(nil), queue...)
		}
	}

	if total == 0 {
		return true, leftover
	}
	return float64(onTime)/float64(total) >= minRatio, leftover
}

// poisson draws a Poisson-distributed arrival count (Knuth's method).
// Daily referral counts are small enough that the multiplicative form
// stays numerically safe.
func (e *Engine) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= e.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
