package temporal

import (
	"math"
	"testing"
)

func TestIntervalCollector_RangeAndLookahead(t *testing.T) {
	ic := NewIntervalCollector()

	got := ic.Collect([]float64{0, 0.5, 1.0, 1.5})
	counts := map[float64]int{}
	for _, d := range got {
		counts[d]++
	}
	if len(got) != 5 || counts[0.5] != 3 || counts[1.0] != 2 {
		t.Fatalf("got %v, want three 0.5s and two 1.0s", got)
	}
}

func TestIntervalCollector_OnlyFiveSuccessors(t *testing.T) {
	onsets := make([]float64, 10)
	for i := range onsets {
		onsets[i] = float64(i) * 0.1
	}

	// only pairs 4 and 5 steps apart (0.4s, 0.5s) fall inside the range
	if got := NewIntervalCollector().Collect(onsets); len(got) != 11 {
		t.Fatalf("got %d intervals %v, want 11", len(got), got)
	}

	short := NewIntervalCollectorWithParams(3, DefaultMinInterval, DefaultMaxInterval)
	if got := short.Collect(onsets); len(got) != 0 {
		t.Fatalf("lookahead 3: got %v, want none", got)
	}
}

func TestIntervalCollector_Degenerate(t *testing.T) {
	ic := NewIntervalCollector()

	for _, onsets := range [][]float64{nil, {}, {1.0}} {
		if got := ic.Collect(onsets); len(got) != 0 {
			t.Fatalf("Collect(%v): got %v, want none", onsets, got)
		}
	}

	lo, hi := NewIntervalCollectorWithParams(5, 2, 1).Range()
	if lo != DefaultMinInterval || hi != DefaultMaxInterval {
		t.Fatalf("inverted range not replaced: got [%v, %v]", lo, hi)
	}
}

func TestTempoHistogram_SmoothingKernel(t *testing.T) {
	h := NewTempoHistogram()
	if !h.AddInterval(0.5) {
		t.Fatal("interval 0.5 rejected")
	}

	tests := []struct {
		bpm  int
		want float64
	}{
		{118, 0}, {119, 0.25}, {120, 1}, {121, 0.25}, {122, 0},
	}
	for _, tt := range tests {
		if got := h.Weight(tt.bpm); got != tt.want {
			t.Errorf("Weight(%d): got %v, want %v", tt.bpm, got, tt.want)
		}
	}
	if h.Votes() != 1 {
		t.Fatalf("votes: got %d, want 1", h.Votes())
	}
}

func TestTempoHistogram_BestPrefersSmallerOnTie(t *testing.T) {
	h := NewTempoHistogram()
	h.AddBPM(130)
	h.AddBPM(100)

	bpm, weight, ok := h.Best()
	if !ok || bpm != 100 || weight != 1 {
		t.Fatalf("got (%d, %v, %v), want (100, 1, true)", bpm, weight, ok)
	}
}

func TestTempoHistogram_NeighborsAccumulate(t *testing.T) {
	h := NewTempoHistogram()
	h.AddBPM(120)
	h.AddBPM(121)

	// 120 and 121 both hold 1.25; the smaller wins
	if bpm, weight, _ := h.Best(); bpm != 120 || weight != 1.25 {
		t.Fatalf("got (%d, %v), want (120, 1.25)", bpm, weight)
	}

	h.AddBPM(122)
	if bpm, weight, _ := h.Best(); bpm != 121 || weight != 1.5 {
		t.Fatalf("got (%d, %v), want (121, 1.5)", bpm, weight)
	}
}

func TestTempoHistogram_RejectsOutOfRange(t *testing.T) {
	h := NewTempoHistogram()

	for _, bpm := range []int{0, -4, MaxHistogramBPM + 1} {
		if h.AddBPM(bpm) {
			t.Errorf("AddBPM(%d) accepted", bpm)
		}
	}
	for _, interval := range []float64{0, -0.5, math.Inf(1), math.NaN(), 0.1} {
		if h.AddInterval(interval) {
			t.Errorf("AddInterval(%v) accepted", interval)
		}
	}

	if _, _, ok := h.Best(); ok {
		t.Fatal("empty histogram reported a candidate")
	}
	if h.Votes() != 0 {
		t.Fatalf("votes: got %d, want 0", h.Votes())
	}
}

func TestOctaveCorrector_Fold(t *testing.T) {
	oc := NewOctaveCorrector()

	tests := []struct {
		in   float64
		want int
	}{
		{120, 120},
		{70, 70},
		{185, 185},
		{60, 120},
		{35, 70},
		{34, 136},
		{69.9, 140},
		{280, 140},
		{200, 100},
		{186, 93},
		{371, 93},
		{0, 0},
		{-12, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}

	for _, tt := range tests {
		if got := oc.Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%v): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOctaveCorrector_RangeNeedsAnOctave(t *testing.T) {
	oc := NewOctaveCorrectorWithRange(100, 150)
	if got := oc.Fold(60); got != 120 {
		t.Fatalf("narrow range not replaced by defaults: Fold(60) = %d", got)
	}

	wide := NewOctaveCorrectorWithRange(80, 160)
	if got := wide.Fold(70); got != 140 {
		t.Fatalf("Fold(70) in [80,160]: got %d, want 140", got)
	}
}
