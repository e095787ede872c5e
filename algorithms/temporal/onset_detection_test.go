package temporal

import (
	"math"
	"testing"
)

const timeTol = 1e-9

// syntheticEnvelope builds a flat envelope with peaks at the given indices
func syntheticEnvelope(n int, floor float64, peaks map[int]float64) []float64 {
	env := make([]float64, n)
	for i := range env {
		env[i] = floor
	}
	for idx, v := range peaks {
		env[idx] = v
	}
	return env
}

func assertTimes(t *testing.T, got, want []float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d onsets %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > timeTol {
			t.Fatalf("onset %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPickOnsets_LocalMaximaAboveThreshold(t *testing.T) {
	od := NewOnsetDetection()
	env := syntheticEnvelope(300, 0.01, map[int]float64{
		40:  1.0,
		120: 0.8,
		200: 0.9,
	})

	got := od.PickOnsets(env, 441, 44100)
	assertTimes(t, got, []float64{0.40, 1.20, 2.00})
}

func TestPickOnsets_Debounce(t *testing.T) {
	od := NewOnsetDetection()
	env := syntheticEnvelope(200, 0.01, map[int]float64{
		10: 1.0,
		25: 1.0, // 0.15s after the previous onset
		60: 1.0,
	})

	got := od.PickOnsets(env, 441, 44100)
	assertTimes(t, got, []float64{0.10, 0.60})
}

func TestPickOnsets_PlateauYieldsSingleOnset(t *testing.T) {
	od := NewOnsetDetection()
	env := syntheticEnvelope(200, 0.01, map[int]float64{
		80: 1.0,
		81: 1.0,
	})

	got := od.PickOnsets(env, 441, 44100)
	assertTimes(t, got, []float64{0.80})
}

func TestPickOnsets_OpenBoundaries(t *testing.T) {
	od := NewOnsetDetection()
	env := syntheticEnvelope(100, 0.01, map[int]float64{
		0:  1.0,
		99: 1.0,
	})

	got := od.PickOnsets(env, 441, 44100)
	assertTimes(t, got, []float64{0.0, 0.99})
}

func TestPickOnsets_BelowAdaptiveThreshold(t *testing.T) {
	od := NewOnsetDetection()

	// a 20% bump over the floor is a local maximum but not above mean * 1.3
	env := syntheticEnvelope(200, 1.0, map[int]float64{100: 1.2})
	if got := od.PickOnsets(env, 441, 44100); len(got) != 0 {
		t.Fatalf("got %v, want no onsets", got)
	}
}

func TestPickOnsets_SilenceAndEmpty(t *testing.T) {
	od := NewOnsetDetection()

	if got := od.PickOnsets(make([]float64, 500), 441, 44100); len(got) != 0 {
		t.Fatalf("silence: got %v, want none", got)
	}
	if got := od.PickOnsets(nil, 441, 44100); got == nil || len(got) != 0 {
		t.Fatalf("nil: got %v, want empty non-nil", got)
	}
	if got := od.PickOnsets([]float64{1, 2, 1}, 0, 44100); len(got) != 0 {
		t.Fatalf("zero window: got %v, want none", got)
	}
}

func TestPickOnsets_LoudSegmentGate(t *testing.T) {
	peaks := make(map[int]float64)
	for k := range 8 {
		amp := 1.0
		if k >= 4 {
			amp = 0.5
		}
		peaks[25+50*k] = amp
	}
	env := syntheticEnvelope(400, 0.01, peaks)

	ungated := NewOnsetDetection().PickOnsets(env, 441, 44100)
	assertTimes(t, ungated, []float64{0.25, 0.75, 1.25, 1.75, 2.25, 2.75, 3.25, 3.75})

	params := DefaultOnsetParams()
	params.LoudSegmentFraction = 0.5
	gated := NewOnsetDetectionWithParams(params).PickOnsets(env, 441, 44100)
	assertTimes(t, gated, []float64{0.25, 0.75, 1.25, 1.75})
}

func TestDetectOnsetsAdaptive_ImpulseTrain(t *testing.T) {
	const sampleRate = 44100
	od := NewOnsetDetection()

	got := od.DetectOnsetsAdaptive(impulseTrain(sampleRate, 3, 0.5, 0.25, 3), sampleRate)
	assertTimes(t, got, []float64{0.25, 0.75, 1.25, 1.75, 2.25, 2.75})

	for i := 1; i < len(got); i++ {
		if got[i]-got[i-1] < 0.2 {
			t.Fatalf("onsets %d and %d closer than 0.2s", i-1, i)
		}
	}
}

func TestDetectOnsetsAdaptive_OffGridPeriod(t *testing.T) {
	const sampleRate = 44100
	const period = 0.375 // 37.5 envelope windows
	od := NewOnsetDetection()

	got := od.DetectOnsetsAdaptive(impulseTrain(sampleRate, 4, period, 0.253, 4), sampleRate)

	var want []float64
	for k := 0; 0.253+float64(k)*period < 4; k++ {
		want = append(want, math.Round((0.253+float64(k)*period)*sampleRate)/sampleRate)
	}
	assertTimes(t, got, want)

	for i := 1; i < len(got); i++ {
		if d := got[i] - got[i-1]; math.Abs(d-period) > 1.0/sampleRate {
			t.Fatalf("interval %d: got %v, want %v", i, d, period)
		}
	}
}

func TestRefineOnsets(t *testing.T) {
	const sampleRate = 44100
	const windowSize = 441
	od := NewOnsetDetection()

	signal := make([]float64, sampleRate)
	signal[1000] = -0.9 // negative peaks count by magnitude
	signal[1100] = 0.5
	signal[10100] = 0.7
	signal[18100] = 0.8

	tests := []struct {
		name   string
		onsets []float64
		want   []float64
	}{
		{"peak one window late", []float64{441.0 / sampleRate}, []float64{1000.0 / sampleRate}},
		{"peak in same window", []float64{882.0 / sampleRate}, []float64{1000.0 / sampleRate}},
		{"peak one window early", []float64{1323.0 / sampleRate}, []float64{1000.0 / sampleRate}},
		{
			// 0.2s apart on the window grid, 0.18s once refined
			"refined onsets respect the gap",
			[]float64{9702.0 / sampleRate, 18522.0 / sampleRate},
			[]float64{10100.0 / sampleRate},
		},
		{"silent neighborhood keeps first sample", []float64{0.5}, []float64{(0.5*sampleRate - windowSize) / sampleRate}},
		{"no onsets", []float64{}, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTimes(t, od.RefineOnsets(signal, tt.onsets, windowSize, sampleRate), tt.want)
		})
	}
}

func TestRefineOnsets_Degenerate(t *testing.T) {
	od := NewOnsetDetection()
	onsets := []float64{0.25, 0.75}

	if got := od.RefineOnsets(make([]float64, 100), onsets, 0, 44100); len(got) != 2 || got[0] != 0.25 {
		t.Fatalf("zero window: got %v, want %v", got, onsets)
	}
	// onset beyond the end of the signal keeps its window time
	if got := od.RefineOnsets(make([]float64, 100), []float64{0.5}, 441, 44100); len(got) != 1 || got[0] != 0.5 {
		t.Fatalf("out of range: got %v, want [0.5]", got)
	}
}

func TestDetectOnsetsAdaptive_ShortInput(t *testing.T) {
	od := NewOnsetDetection()

	if got := od.DetectOnsetsAdaptive(make([]float64, 5), 44100); len(got) != 0 {
		t.Fatalf("got %v, want none", got)
	}
	if got := od.DetectOnsetsAdaptive(make([]float64, 5000), 0); len(got) != 0 {
		t.Fatalf("zero rate: got %v, want none", got)
	}
}

func TestComputeEnvelope_Length(t *testing.T) {
	od := NewOnsetDetection()

	tests := []struct {
		samples    int
		sampleRate int
		want       int
	}{
		{44100, 44100, 100},
		{44100 + 440, 44100, 100},
		{48000 * 3, 48000, 300},
		{100, 44100, 0},
	}

	for _, tt := range tests {
		if got := len(od.ComputeEnvelope(make([]float64, tt.samples), tt.sampleRate)); got != tt.want {
			t.Errorf("%d samples @ %d Hz: got %d windows, want %d", tt.samples, tt.sampleRate, got, tt.want)
		}
	}
}

func TestComputeOnsetDensity(t *testing.T) {
	const sampleRate = 44100
	od := NewOnsetDetection()

	got := od.ComputeOnsetDensity(impulseTrain(sampleRate, 4, 0.5, 0.25, 4), sampleRate)
	if math.Abs(got-2.0) > 1e-9 {
		t.Fatalf("got %v onsets/s, want 2", got)
	}
}

func TestEnvelope_LocalMean(t *testing.T) {
	env := []float64{1, 2, 3, 4, 5}
	e := NewEnvelope()

	tests := []struct {
		i, radius int
		want      float64
	}{
		{2, 1, 3},
		{0, 2, 2},   // 1,2,3
		{4, 10, 3},  // whole slice
		{4, 1, 4.5}, // 4,5
	}

	for _, tt := range tests {
		if got := e.LocalMean(env, tt.i, tt.radius); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("LocalMean(i=%d, r=%d): got %v, want %v", tt.i, tt.radius, got, tt.want)
		}
	}
}
