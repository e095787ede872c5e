package spectral

import (
	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes Fast Fourier Transform using mjibson/go-dsp
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// mjibson/go-dsp handles all sizes efficiently, including non-power-of-2
	return fft.FFTReal(x)
}

// ComputeInverseReal computes inverse FFT and returns real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// Autocorrelation returns the biased autocorrelation r[0..maxLag] of x, normalized so
// that r[0] == 1. The mean is removed first.
//
// Computed as IFFT(|FFT(x)|^2) with zero padding to at least 2*len(x), which avoids
// circular wrap-around. A zero-energy input returns all zeros.
func (f *FFT) Autocorrelation(x []float64, maxLag int) []float64 {
	if len(x) == 0 || maxLag < 0 {
		return []float64{}
	}
	maxLag = min(maxLag, len(x)-1)

	mean := common.Mean(x)
	padded := make([]float64, common.NextPowerOfTwo(2*len(x)))
	for i, v := range x {
		padded[i] = v - mean
	}

	spectrum := f.Compute(padded)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}

	r := f.ComputeInverseReal(spectrum)
	autocorr := make([]float64, maxLag+1)
	if r[0] <= 1e-12 {
		return autocorr
	}

	for lag := range autocorr {
		autocorr[lag] = r[lag] / r[0]
	}

	return autocorr
}
