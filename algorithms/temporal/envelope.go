package temporal

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Envelope provides amplitude envelope extraction
type Envelope struct {
	// No state needed - stateless calculation
}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes RMS envelope with given frame and hop sizes
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if frameSize <= 0 || hopSize <= 0 || len(signal) < frameSize {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		frame := signal[i*hopSize : i*hopSize+frameSize]
		envelope[i] = math.Sqrt(floats.Dot(frame, frame) / float64(frameSize))
	}

	return envelope
}

// ComputeEnergyEnvelope computes RMS over consecutive, non-overlapping windows.
// The result has len(signal)/windowSize entries; a trailing partial window is dropped.
func (e *Envelope) ComputeEnergyEnvelope(signal []float64, windowSize int) []float64 {
	return e.ComputeRMS(signal, windowSize, windowSize)
}

// LocalMean returns the mean of envelope[i-radius : i+radius+1], clipped at the edges.
func (e *Envelope) LocalMean(envelope []float64, i, radius int) float64 {
	lo := max(0, i-radius)
	hi := min(len(envelope), i+radius+1)
	if hi <= lo {
		return 0.0
	}

	return floats.Sum(envelope[lo:hi]) / float64(hi-lo)
}
