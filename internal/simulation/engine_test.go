package simulation

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"triagecast/internal/forecast"
	"triagecast/internal/triage"
)

func seededEngine(seed int64) *Engine {
	return &Engine{rng: rand.New(rand.NewSource(seed))}
}

func constantFrame(t *testing.T, count, padding, horizon int) forecast.Frame {
	t.Helper()

	history := make([]int, padding)
	for i := range history {
		history[i] = count
	}
	preds := make([]forecast.Prediction, horizon)
	for i := range preds {
		preds[i] = forecast.Prediction{Count: count}
	}

	frame, err := forecast.NewFrame(history, preds, padding)
	if err != nil {
		t.Fatalf("Building frame: %v", err)
	}
	return frame
}

// shapedFrame builds a frame with explicit per-day forecast counts behind
// padding rows of a fixed count.
func shapedFrame(t *testing.T, padding, paddingCount int, counts []int) forecast.Frame {
	t.Helper()

	history := make([]int, padding)
	for i := range history {
		history[i] = paddingCount
	}
	preds := make([]forecast.Prediction, len(counts))
	for i, c := range counts {
		preds[i] = forecast.Prediction{Count: c}
	}

	frame, err := forecast.NewFrame(history, preds, padding)
	if err != nil {
		t.Fatalf("Building frame: %v", err)
	}
	return frame
}

func twoWeekParams(runs int) triage.SlotParams {
	return triage.SlotParams{
		Window:      7,
		FinalWindow: 14,
		MinRatio:    0.8,
		Confidence:  0.9,
		Intervals:   []triage.IndexRange{{Start: 0, End: 13}, {Start: 14, End: 27}},
		Runs:        runs,
	}
}

func TestEngine_ZeroArrivalsNeedNoSlots(t *testing.T) {
	e := seededEngine(1)
	frame := constantFrame(t, 0, 7, 28)

	estimates, err := e.MinIntervalSlots(context.Background(), frame, twoWeekParams(50))
	if err != nil {
		t.Fatalf("MinIntervalSlots failed: %v", err)
	}
	for i, est := range estimates {
		if est.ExpectedSlots != 0 {
			t.Errorf("Interval %d: expected 0 slots for an empty frame, got %d", i, est.ExpectedSlots)
		}
	}
}

func TestEngine_OneResultPerInterval(t *testing.T) {
	e := seededEngine(2)
	frame := constantFrame(t, 2, 7, 28)

	estimates, err := e.MinIntervalSlots(context.Background(), frame, twoWeekParams(50))
	if err != nil {
		t.Fatalf("MinIntervalSlots failed: %v", err)
	}
	if len(estimates) != 2 {
		t.Fatalf("Expected 2 estimates, got %d", len(estimates))
	}
}

func TestEngine_HeavierDemandNeedsMoreSlots(t *testing.T) {
	light := seededEngine(3)
	heavy := seededEngine(3)

	lightEst, err := light.MinIntervalSlots(context.Background(), constantFrame(t, 1, 7, 28), twoWeekParams(100))
	if err != nil {
		t.Fatalf("Light run failed: %v", err)
	}
	heavyEst, err := heavy.MinIntervalSlots(context.Background(), constantFrame(t, 12, 7, 28), twoWeekParams(100))
	if err != nil {
		t.Fatalf("Heavy run failed: %v", err)
	}

	for i := range lightEst {
		if heavyEst[i].ExpectedSlots <= lightEst[i].ExpectedSlots {
			t.Errorf("Interval %d: expected heavier demand to need more slots (%d vs %d)",
				i, heavyEst[i].ExpectedSlots, lightEst[i].ExpectedSlots)
		}
	}
}

func TestEngine_SameSeedSameResult(t *testing.T) {
	frame := constantFrame(t, 3, 7, 28)

	a, err := seededEngine(7).MinIntervalSlots(context.Background(), frame, twoWeekParams(100))
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	b, err := seededEngine(7).MinIntervalSlots(context.Background(), frame, twoWeekParams(100))
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Errorf("Same seed produced different estimates: %v vs %v", a, b)
	}
}

func TestEngine_BacklogCarriesIntoNextInterval(t *testing.T) {
	// The first interval's demand spikes at its very end, so the chosen
	// slot count still leaves a queue behind. The second interval is
	// identical in both frames; only the carried-over queue can separate
	// the estimates.
	tail := []int{1, 1, 1, 1, 1, 1, 1} // days 14-20
	calm := append([]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, tail...)
	spiked := append([]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 40, 40}, tail...)

	params := triage.SlotParams{
		Window:      7,
		FinalWindow: 7,
		MinRatio:    0.8,
		Confidence:  0.9,
		Intervals:   []triage.IndexRange{{Start: 0, End: 13}, {Start: 14, End: 20}},
		Runs:        100,
	}

	calmEst, err := seededEngine(11).MinIntervalSlots(context.Background(), shapedFrame(t, 7, 0, calm), params)
	if err != nil {
		t.Fatalf("Calm run failed: %v", err)
	}
	spikedEst, err := seededEngine(11).MinIntervalSlots(context.Background(), shapedFrame(t, 7, 0, spiked), params)
	if err != nil {
		t.Fatalf("Spiked run failed: %v", err)
	}

	if spikedEst[1].ExpectedSlots <= calmEst[1].ExpectedSlots {
		t.Errorf("Expected the first interval's leftover queue to raise the second interval's estimate (%d vs %d)",
			spikedEst[1].ExpectedSlots, calmEst[1].ExpectedSlots)
	}
}

func TestEngine_PaddingWarmsTheQueue(t *testing.T) {
	// Identical forecast days; only the padding rows differ. Heavy padding
	// leaves a backlog at day zero that the first interval must drain.
	counts := []int{1, 1, 1, 1, 1, 1, 1}
	params := triage.SlotParams{
		Window:      7,
		FinalWindow: 7,
		MinRatio:    0.8,
		Confidence:  0.9,
		Intervals:   []triage.IndexRange{{Start: 0, End: 6}},
		Runs:        100,
	}

	cold, err := seededEngine(12).MinIntervalSlots(context.Background(), shapedFrame(t, 7, 0, counts), params)
	if err != nil {
		t.Fatalf("Cold run failed: %v", err)
	}
	warm, err := seededEngine(12).MinIntervalSlots(context.Background(), shapedFrame(t, 7, 30, counts), params)
	if err != nil {
		t.Fatalf("Warm run failed: %v", err)
	}

	if warm[0].ExpectedSlots <= cold[0].ExpectedSlots {
		t.Errorf("Expected heavy padding rows to raise the first interval's estimate (%d vs %d)",
			warm[0].ExpectedSlots, cold[0].ExpectedSlots)
	}
}

func TestEngine_LastIntervalJudgedByFinalWindow(t *testing.T) {
	// One interval, so the final window applies. A one-day window forces
	// near-immediate service; a hundred-day window lets a single slot
	// work through the whole queue.
	counts := make([]int, 14)
	for i := range counts {
		counts[i] = 5
	}
	paramsFor := func(finalWindow int) triage.SlotParams {
		return triage.SlotParams{
			Window:      7,
			FinalWindow: finalWindow,
			MinRatio:    0.9,
			Confidence:  0.9,
			Intervals:   []triage.IndexRange{{Start: 0, End: 13}},
			Runs:        100,
		}
	}

	tight, err := seededEngine(13).MinIntervalSlots(context.Background(), shapedFrame(t, 7, 0, counts), paramsFor(1))
	if err != nil {
		t.Fatalf("Tight run failed: %v", err)
	}
	loose, err := seededEngine(13).MinIntervalSlots(context.Background(), shapedFrame(t, 7, 0, counts), paramsFor(100))
	if err != nil {
		t.Fatalf("Loose run failed: %v", err)
	}

	if tight[0].ExpectedSlots <= loose[0].ExpectedSlots {
		t.Errorf("Expected a tighter final window to need more slots (%d vs %d)",
			tight[0].ExpectedSlots, loose[0].ExpectedSlots)
	}
}

func TestEngine_RejectsBadParams(t *testing.T) {
	e := seededEngine(4)
	frame := constantFrame(t, 1, 7, 28)

	if _, err := e.MinIntervalSlots(context.Background(), frame, triage.SlotParams{Runs: 10}); err == nil {
		t.Error("Expected an error for empty intervals")
	}

	params := twoWeekParams(0)
	if _, err := e.MinIntervalSlots(context.Background(), frame, params); err == nil {
		t.Error("Expected an error for zero runs")
	}
}

func TestEngine_HonorsCancellation(t *testing.T) {
	e := seededEngine(5)
	frame := constantFrame(t, 1, 7, 28)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.MinIntervalSlots(ctx, frame, twoWeekParams(10)); err == nil {
		t.Error("Expected a cancellation error")
	}
}
