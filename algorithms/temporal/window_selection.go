package temporal

import (
	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
)

const (
	// DefaultAnalysisWindowSeconds bounds how much audio the tempo pipeline looks at
	DefaultAnalysisWindowSeconds = 30.0

	// DefaultWindowStepSeconds is the hop between candidate windows
	DefaultWindowStepSeconds = 2.0

	// DefaultEnergyStride samples every n-th value when scoring a candidate
	DefaultEnergyStride = 1000
)

// Selection is the analysis segment chosen by WindowSelector.
// Samples is a read-only view into the caller's buffer.
type Selection struct {
	Offset  int // first sample of the segment
	Length  int
	Energy  float64 // coarse strided energy of the segment, 0 when the whole buffer is used
	Samples []float64
}

// OffsetSeconds returns the start of the segment in seconds
func (s Selection) OffsetSeconds(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0.0
	}
	return float64(s.Offset) / float64(sampleRate)
}

// WindowSelector finds the most energetic fixed-length segment of a long buffer.
// This keeps the per-track cost bounded and steers analysis away from quiet intros and fades.
type WindowSelector struct {
	windowSeconds float64
	stepSeconds   float64
	stride        int
}

// NewWindowSelector creates a selector with 30 s windows, 2 s steps and a stride of 1000
func NewWindowSelector() *WindowSelector {
	return NewWindowSelectorWithParams(DefaultAnalysisWindowSeconds, DefaultWindowStepSeconds, DefaultEnergyStride)
}

// NewWindowSelectorWithParams creates a selector with explicit parameters.
// Non-positive values fall back to the defaults.
func NewWindowSelectorWithParams(windowSeconds, stepSeconds float64, stride int) *WindowSelector {
	if windowSeconds <= 0 {
		windowSeconds = DefaultAnalysisWindowSeconds
	}
	if stepSeconds <= 0 {
		stepSeconds = DefaultWindowStepSeconds
	}
	if stride <= 0 {
		stride = DefaultEnergyStride
	}

	return &WindowSelector{
		windowSeconds: windowSeconds,
		stepSeconds:   stepSeconds,
		stride:        stride,
	}
}

// Select returns the highest-energy window of the signal.
//
// Buffers no longer than the window are returned whole. Otherwise every candidate
// offset 0, step, 2*step, ... that still fits a full window is scored, and the earliest
// offset with the maximum score wins.
func (ws *WindowSelector) Select(signal []float64, sampleRate int) Selection {
	windowLen := int(ws.windowSeconds * float64(sampleRate))
	if sampleRate <= 0 || windowLen <= 0 || len(signal) <= windowLen {
		return Selection{
			Offset:  0,
			Length:  len(signal),
			Samples: signal,
		}
	}

	step := max(int(ws.stepSeconds*float64(sampleRate)), 1)

	bestOffset := 0
	bestEnergy := -1.0
	for offset := 0; offset+windowLen <= len(signal); offset += step {
		energy := common.StridedEnergy(signal, offset, offset+windowLen, ws.stride)
		if energy > bestEnergy {
			bestEnergy = energy
			bestOffset = offset
		}
	}

	return Selection{
		Offset:  bestOffset,
		Length:  windowLen,
		Energy:  bestEnergy,
		Samples: signal[bestOffset : bestOffset+windowLen],
	}
}
