package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
)

// OnsetParams configures adaptive-threshold onset detection
type OnsetParams struct {
	WindowsPerSecond int     // envelope resolution, 100 gives ~10ms windows
	NeighborWindows  int     // local mean radius in windows
	ThresholdRatio   float64 // envelope must exceed localMean * ratio
	MinGapSeconds    float64 // debounce between accepted onsets

	// LoudSegmentFraction keeps only onsets inside the loudest fraction of one-second
	// envelope segments. 0 disables the gate.
	LoudSegmentFraction float64
}

// DefaultOnsetParams returns ~10ms windows, a ±0.5s neighborhood, a 1.3 ratio and a 0.2s gap
func DefaultOnsetParams() OnsetParams {
	return OnsetParams{
		WindowsPerSecond:    100,
		NeighborWindows:     50,
		ThresholdRatio:      1.3,
		MinGapSeconds:       0.2,
		LoudSegmentFraction: 0,
	}
}

// OnsetDetection detects percussive onsets in a (low-passed) signal
type OnsetDetection struct {
	params            OnsetParams
	envelopeExtractor *Envelope
}

// NewOnsetDetection creates a new onset detector with default parameters
func NewOnsetDetection() *OnsetDetection {
	return NewOnsetDetectionWithParams(DefaultOnsetParams())
}

// NewOnsetDetectionWithParams creates an onset detector; out-of-range fields take defaults
func NewOnsetDetectionWithParams(params OnsetParams) *OnsetDetection {
	def := DefaultOnsetParams()
	if params.WindowsPerSecond <= 0 {
		params.WindowsPerSecond = def.WindowsPerSecond
	}
	if params.NeighborWindows <= 0 {
		params.NeighborWindows = def.NeighborWindows
	}
	if params.ThresholdRatio <= 0 {
		params.ThresholdRatio = def.ThresholdRatio
	}
	if params.MinGapSeconds < 0 {
		params.MinGapSeconds = def.MinGapSeconds
	}
	if params.LoudSegmentFraction < 0 || params.LoudSegmentFraction >= 1 {
		params.LoudSegmentFraction = 0
	}

	return &OnsetDetection{
		params:            params,
		envelopeExtractor: NewEnvelope(),
	}
}

// WindowSize returns the envelope window length in samples, 0 if the rate is too low
func (od *OnsetDetection) WindowSize(sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return sampleRate / od.params.WindowsPerSecond
}

// ComputeEnvelope returns the per-window RMS energy envelope
func (od *OnsetDetection) ComputeEnvelope(signal []float64, sampleRate int) []float64 {
	windowSize := od.WindowSize(sampleRate)
	if windowSize <= 0 {
		return []float64{}
	}
	return od.envelopeExtractor.ComputeEnergyEnvelope(signal, windowSize)
}

// DetectOnsetsAdaptive returns ascending onset timestamps in seconds, relative to the
// start of signal. Silent or degenerate input yields an empty slice.
func (od *OnsetDetection) DetectOnsetsAdaptive(signal []float64, sampleRate int) []float64 {
	windowSize := od.WindowSize(sampleRate)
	if windowSize <= 0 || len(signal) < windowSize {
		return []float64{}
	}

	envelope := od.envelopeExtractor.ComputeEnergyEnvelope(signal, windowSize)
	return od.RefineOnsets(signal, od.PickOnsets(envelope, windowSize, sampleRate), windowSize, sampleRate)
}

// PickOnsets marks envelope index i as an onset when it is a local maximum
// (>= both neighbors, edges open) above the local mean times the threshold ratio,
// and at least MinGapSeconds after the previously accepted onset.
func (od *OnsetDetection) PickOnsets(envelope []float64, windowSize, sampleRate int) []float64 {
	onsets := []float64{}
	n := len(envelope)
	if n == 0 || windowSize <= 0 || sampleRate <= 0 {
		return onsets
	}

	gate := od.loudSegmentGate(envelope)

	lastOnset := math.Inf(-1)
	for i := range n {
		value := envelope[i]

		if i > 0 && value < envelope[i-1] {
			continue
		}
		if i < n-1 && value < envelope[i+1] {
			continue
		}

		localMean := od.envelopeExtractor.LocalMean(envelope, i, od.params.NeighborWindows)
		if !(value > localMean*od.params.ThresholdRatio) {
			continue
		}

		if gate != nil && !gate[i/od.params.WindowsPerSecond] {
			continue
		}

		timestamp := float64(i*windowSize) / float64(sampleRate)
		if timestamp-lastOnset < od.params.MinGapSeconds {
			continue
		}

		onsets = append(onsets, timestamp)
		lastOnset = timestamp
	}

	return onsets
}

// RefineOnsets moves each window-aligned onset to the sample of largest magnitude within
// one envelope window either side, so onset times are no longer rounded to the window
// grid. Onsets that end up closer than MinGapSeconds to their predecessor are dropped.
func (od *OnsetDetection) RefineOnsets(signal, onsets []float64, windowSize, sampleRate int) []float64 {
	refined := make([]float64, 0, len(onsets))
	if windowSize <= 0 || sampleRate <= 0 {
		return append(refined, onsets...)
	}

	lastOnset := math.Inf(-1)
	for _, onset := range onsets {
		window := int(math.Round(onset * float64(sampleRate) / float64(windowSize)))
		lo := max((window-1)*windowSize, 0)
		hi := min((window+2)*windowSize, len(signal))

		timestamp := onset
		if lo < hi {
			peak := lo
			for i := lo + 1; i < hi; i++ {
				if math.Abs(signal[i]) > math.Abs(signal[peak]) {
					peak = i
				}
			}
			timestamp = float64(peak) / float64(sampleRate)
		}

		if timestamp-lastOnset < od.params.MinGapSeconds {
			continue
		}
		refined = append(refined, timestamp)
		lastOnset = timestamp
	}

	return refined
}

// loudSegmentGate splits the envelope into one-second segments and flags the loudest
// fraction of them. Returns nil when the gate is disabled.
func (od *OnsetDetection) loudSegmentGate(envelope []float64) []bool {
	fraction := od.params.LoudSegmentFraction
	if fraction <= 0 {
		return nil
	}

	segLen := od.params.WindowsPerSecond
	numSegments := (len(envelope) + segLen - 1) / segLen
	energies := make([]float64, numSegments)
	for s := range numSegments {
		energies[s] = common.Sum(envelope[s*segLen : min((s+1)*segLen, len(envelope))])
	}

	k := int(math.Ceil(fraction * float64(numSegments)))
	gate := make([]bool, numSegments)
	for _, idx := range common.TopKIndices(energies, k) {
		gate[idx] = true
	}

	return gate
}

// ComputeOnsetDensity calculates onset density (onsets per second)
func (od *OnsetDetection) ComputeOnsetDensity(signal []float64, sampleRate int) float64 {
	if sampleRate <= 0 || len(signal) == 0 {
		return 0.0
	}

	onsets := od.DetectOnsetsAdaptive(signal, sampleRate)
	duration := float64(len(signal)) / float64(sampleRate)

	return float64(len(onsets)) / duration
}
