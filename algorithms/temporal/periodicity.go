package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
	"github.com/RyanBlaney/sonido-tempo/algorithms/spectral"
)

// Periodicity measures how strongly an energy envelope repeats at a given tempo
type Periodicity struct {
	fft *spectral.FFT
}

// NewPeriodicity creates a new periodicity estimator
func NewPeriodicity() *Periodicity {
	return &Periodicity{
		fft: spectral.NewFFT(),
	}
}

// Confidence returns the normalized envelope autocorrelation at the beat period of bpm,
// taking the best of the neighboring lags to tolerate quantization. The value is
// clamped to [0, 1]; 0 means no measurable periodicity.
func (p *Periodicity) Confidence(envelope []float64, windowsPerSecond int, bpm float64) float64 {
	if len(envelope) < 3 || windowsPerSecond <= 0 || !(bpm > 0) {
		return 0.0
	}

	lag := int(math.Round(60.0 / bpm * float64(windowsPerSecond)))
	if lag <= 0 || lag+1 >= len(envelope) {
		return 0.0
	}

	autocorr := p.fft.Autocorrelation(envelope, lag+1)
	if len(autocorr) <= lag {
		return 0.0
	}

	best := autocorr[lag]
	if lag > 1 {
		best = max(best, autocorr[lag-1])
	}
	if lag+1 < len(autocorr) {
		best = max(best, autocorr[lag+1])
	}

	return common.Clamp(best, 0.0, 1.0)
}
