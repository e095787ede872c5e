package filters

import (
	"fmt"
	"math"
)

const (
	// DefaultLowpassCutoff keeps kick and bass transients while dropping most melodic content
	DefaultLowpassCutoff = 150.0

	// DefaultLowpassQ gives a slight resonance at the cutoff
	DefaultLowpassQ = 1.0
)

// LowpassFilter implements a second-order (biquad) low-pass filter.
//
// Coefficients follow Robert Bristow-Johnson's
// "Cookbook formulae for audio EQ biquad filter coefficients"
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type LowpassFilter struct {
	sampleRate int
	cutoffFreq float64 // -3dB point for Q = 1/sqrt(2), resonant peak for higher Q
	qFactor    float64

	// Biquad coefficients, normalized so that a0 == 1
	b0, b1, b2 float64
	a1, a2     float64

	// Transposed direct form II state
	z1, z2 float64
}

// NewLowpassFilter creates a low-pass filter with the default Q of 1.
func NewLowpassFilter(sampleRate int, cutoffFreq float64) *LowpassFilter {
	return NewLowpassFilterWithQ(sampleRate, cutoffFreq, DefaultLowpassQ)
}

// NewLowpassFilterWithQ creates a low-pass filter with explicit Q factor.
//
// Parameters:
//   - sampleRate: Sample rate in Hz
//   - cutoffFreq: Cutoff frequency in Hz
//   - qFactor: Quality factor (0.707 = Butterworth, higher = more resonant)
func NewLowpassFilterWithQ(sampleRate int, cutoffFreq, qFactor float64) *LowpassFilter {
	lp := &LowpassFilter{
		sampleRate: sampleRate,
		cutoffFreq: cutoffFreq,
		qFactor:    qFactor,
	}

	lp.computeCoefficients()
	return lp
}

func (lp *LowpassFilter) computeCoefficients() {
	if lp.sampleRate <= 0 || lp.cutoffFreq <= 0 || lp.qFactor <= 0 {
		// Pass-through
		lp.b0, lp.b1, lp.b2 = 1, 0, 0
		lp.a1, lp.a2 = 0, 0
		return
	}

	w0 := 2.0 * math.Pi * lp.cutoffFreq / float64(lp.sampleRate)

	// Keep the design stable when the cutoff sits at or above Nyquist
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}

	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * lp.qFactor)

	a0 := 1.0 + alpha
	lp.b0 = (1.0 - cosW0) / 2.0 / a0
	lp.b1 = (1.0 - cosW0) / a0
	lp.b2 = (1.0 - cosW0) / 2.0 / a0
	lp.a1 = -2.0 * cosW0 / a0
	lp.a2 = (1.0 - alpha) / a0
}

// Process filters a single sample.
//
// y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2]
func (lp *LowpassFilter) Process(input float64) float64 {
	output := lp.b0*input + lp.z1
	lp.z1 = lp.b1*input - lp.a1*output + lp.z2
	lp.z2 = lp.b2*input - lp.a2*output

	return output
}

// ProcessBuffer filters a whole buffer into a new slice of the same length.
// The input is left untouched.
func (lp *LowpassFilter) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = lp.Process(sample)
	}
	return output
}

// Reset clears the filter state.
// Call this when processing discontinuous audio segments.
func (lp *LowpassFilter) Reset() {
	lp.z1, lp.z2 = 0.0, 0.0
}

// SetCutoff updates the cutoff frequency and recomputes coefficients.
func (lp *LowpassFilter) SetCutoff(cutoffFreq float64) error {
	if cutoffFreq <= 0 || cutoffFreq >= float64(lp.sampleRate)/2 {
		return fmt.Errorf("cutoff frequency must be between 0 and Nyquist frequency (%d Hz)", lp.sampleRate/2)
	}

	lp.cutoffFreq = cutoffFreq
	lp.computeCoefficients()

	return nil
}

// GetFrequencyResponse computes the magnitude (linear) and phase (radians) at frequency.
func (lp *LowpassFilter) GetFrequencyResponse(frequency float64) (magnitude, phase float64) {
	w := 2.0 * math.Pi * frequency / float64(lp.sampleRate)

	z1 := complex(math.Cos(w), -math.Sin(w))
	z2 := z1 * z1

	num := complex(lp.b0, 0) + complex(lp.b1, 0)*z1 + complex(lp.b2, 0)*z2
	den := 1 + complex(lp.a1, 0)*z1 + complex(lp.a2, 0)*z2
	h := num / den

	return math.Hypot(real(h), imag(h)), math.Atan2(imag(h), real(h))
}

// GetParameters returns the current filter parameters.
func (lp *LowpassFilter) GetParameters() (cutoffFreq, qFactor float64) {
	return lp.cutoffFreq, lp.qFactor
}
