package temporal

import (
	"math"
	"testing"
)

func TestWindowSelector_ShortBufferIsWhole(t *testing.T) {
	const sampleRate = 1000
	ws := NewWindowSelector()

	for _, seconds := range []int{1, 29, 30} {
		signal := make([]float64, seconds*sampleRate)
		sel := ws.Select(signal, sampleRate)
		if sel.Offset != 0 || sel.Length != len(signal) || len(sel.Samples) != len(signal) {
			t.Fatalf("%ds: got offset %d length %d, want whole buffer", seconds, sel.Offset, sel.Length)
		}
	}
}

func TestWindowSelector_PicksLoudestRegion(t *testing.T) {
	const sampleRate = 1000

	// 100s of quiet noise-free signal with a loud block from 60s to 90s
	signal := make([]float64, 100*sampleRate)
	for i := 60 * sampleRate; i < 90*sampleRate; i++ {
		signal[i] = 1.0
	}

	sel := NewWindowSelectorWithParams(30, 2, 10).Select(signal, sampleRate)
	if sel.Offset != 60*sampleRate {
		t.Fatalf("offset: got %v s, want 60 s", sel.OffsetSeconds(sampleRate))
	}
	if sel.Length != 30*sampleRate || len(sel.Samples) != 30*sampleRate {
		t.Fatalf("length: got %d, want %d", sel.Length, 30*sampleRate)
	}
	if sel.Energy != 3000 {
		t.Fatalf("energy: got %v, want 3000", sel.Energy)
	}
}

func TestWindowSelector_TiesKeepEarliestOffset(t *testing.T) {
	const sampleRate = 1000

	signal := make([]float64, 50*sampleRate)
	for i := range signal {
		signal[i] = 0.5
	}

	if sel := NewWindowSelectorWithParams(30, 2, 100).Select(signal, sampleRate); sel.Offset != 0 {
		t.Fatalf("constant signal: got offset %d, want 0", sel.Offset)
	}
}

func TestWindowSelector_LastCandidateFitsInBuffer(t *testing.T) {
	const sampleRate = 1000

	// loudest at the very end; 41s buffer allows offsets 0..10s
	signal := make([]float64, 41*sampleRate)
	for i := 38 * sampleRate; i < len(signal); i++ {
		signal[i] = 1.0
	}

	sel := NewWindowSelectorWithParams(30, 2, 1).Select(signal, sampleRate)
	if sel.Offset != 10*sampleRate {
		t.Fatalf("offset: got %d, want %d", sel.Offset, 10*sampleRate)
	}
	if end := sel.Offset + sel.Length; end > len(signal) {
		t.Fatalf("window end %d past buffer length %d", end, len(signal))
	}
}

func TestWindowSelector_MiddleThirdOverlap(t *testing.T) {
	const sampleRate = 44100

	signal := kickTrain(sampleRate, 90, 0.5, 30, 60)
	sel := NewWindowSelector().Select(signal, sampleRate)

	start := sel.OffsetSeconds(sampleRate)
	end := start + float64(sel.Length)/sampleRate
	if !(start < 60 && end > 30) {
		t.Fatalf("selected [%v, %v] does not overlap [30, 60]", start, end)
	}
	if overlap := math.Min(end, 60) - math.Max(start, 30); overlap < 20 {
		t.Fatalf("overlap with rhythmic region: got %vs, want >= 20s", overlap)
	}
}

func TestWindowSelector_DegenerateRate(t *testing.T) {
	signal := make([]float64, 10)
	sel := NewWindowSelector().Select(signal, 0)
	if sel.Offset != 0 || sel.Length != 10 {
		t.Fatalf("got offset %d length %d, want whole buffer", sel.Offset, sel.Length)
	}
	if sel.OffsetSeconds(0) != 0 {
		t.Fatal("OffsetSeconds with zero rate should be 0")
	}
}
