package filters

import (
	"math"
)

// DefaultDCCutoff sits well below any kick fundamental
const DefaultDCCutoff = 10.0

// DCRemoval is a one-pole DC blocker.
//
// A constant offset inflates every envelope window by the same amount, which flattens
// the ratio between transient peaks and their local mean. Removing it before the
// low-pass keeps the onset threshold meaningful on badly biased recordings.
//
// Reference: Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
// https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCRemoval struct {
	poleLocation float64 // R parameter (0 < R < 1)

	x1 float64 // x[n-1]
	y1 float64 // y[n-1]
}

// NewDCRemoval creates a DC blocker with cutoff fc at sample rate fs.
//
// The pole location is R = 1 - 2*pi*fc/fs, clamped to (0, 1).
func NewDCRemoval(sampleRate int, cutoffFreq float64) *DCRemoval {
	pole := 0.995
	if sampleRate > 0 && cutoffFreq > 0 {
		pole = 1.0 - (2.0 * math.Pi * cutoffFreq / float64(sampleRate))
	}

	if pole >= 1.0 {
		pole = 0.999
	} else if pole <= 0.0 {
		pole = 0.001
	}

	return &DCRemoval{poleLocation: pole}
}

// Process applies y[n] = x[n] - x[n-1] + R * y[n-1]
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1

	dc.x1 = input
	dc.y1 = output

	return output
}

// ProcessBuffer filters a whole buffer into a new slice
func (dc *DCRemoval) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = dc.Process(sample)
	}
	return output
}

// Reset clears the filter's internal state.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// GetPoleLocation returns the current pole location parameter.
func (dc *DCRemoval) GetPoleLocation() float64 {
	return dc.poleLocation
}
