package temporal

import (
	"math"
)

const (
	// MaxHistogramBPM is the largest bucket a vote may land in
	MaxHistogramBPM = 300

	// DefaultCenterWeight and DefaultNeighborWeight form the smoothing kernel
	// [neighbor, center, neighbor] applied to every vote.
	DefaultCenterWeight   = 1.0
	DefaultNeighborWeight = 0.25

	// DefaultMinCanonicalBPM and DefaultMaxCanonicalBPM bound the folded result
	DefaultMinCanonicalBPM = 70.0
	DefaultMaxCanonicalBPM = 185.0
)

// TempoHistogram accumulates candidate beat periods into integer BPM buckets.
//
// Buckets are a fixed array indexed by BPM (0..MaxHistogramBPM+1), so iteration order
// and therefore tie-breaking never depends on map ordering. Each vote is convolved with
// a three-tap triangular kernel to absorb ±1 BPM jitter in the onset times.
type TempoHistogram struct {
	weights        [MaxHistogramBPM + 2]float64
	votes          int
	centerWeight   float64
	neighborWeight float64
}

// NewTempoHistogram creates an empty histogram with the default [0.25, 1, 0.25] kernel
func NewTempoHistogram() *TempoHistogram {
	return NewTempoHistogramWithKernel(DefaultCenterWeight, DefaultNeighborWeight)
}

// NewTempoHistogramWithKernel creates an empty histogram with a custom kernel
func NewTempoHistogramWithKernel(centerWeight, neighborWeight float64) *TempoHistogram {
	if centerWeight <= 0 {
		centerWeight = DefaultCenterWeight
	}
	if neighborWeight < 0 {
		neighborWeight = DefaultNeighborWeight
	}

	return &TempoHistogram{
		centerWeight:   centerWeight,
		neighborWeight: neighborWeight,
	}
}

// AddInterval votes for round(60/interval). Returns false if the interval was rejected.
func (h *TempoHistogram) AddInterval(interval float64) bool {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return false
	}
	return h.AddBPM(int(math.Round(60.0 / interval)))
}

// AddBPM votes for a bucket. Returns false if bpm is outside [1, MaxHistogramBPM].
func (h *TempoHistogram) AddBPM(bpm int) bool {
	if bpm < 1 || bpm > MaxHistogramBPM {
		return false
	}

	h.weights[bpm] += h.centerWeight
	h.weights[bpm-1] += h.neighborWeight
	h.weights[bpm+1] += h.neighborWeight
	h.votes++

	return true
}

// Weight returns the accumulated weight of a bucket
func (h *TempoHistogram) Weight(bpm int) float64 {
	if bpm < 0 || bpm >= len(h.weights) {
		return 0.0
	}
	return h.weights[bpm]
}

// Votes returns how many intervals were accepted
func (h *TempoHistogram) Votes() int {
	return h.votes
}

// Best returns the heaviest bucket. Equal weights resolve to the smaller BPM.
// ok is false when the histogram received no votes.
func (h *TempoHistogram) Best() (bpm int, weight float64, ok bool) {
	if h.votes == 0 {
		return 0, 0.0, false
	}

	for b, w := range h.weights {
		if w > weight {
			bpm = b
			weight = w
		}
	}

	return bpm, weight, true
}

// OctaveCorrector folds a tempo into a canonical range by doubling or halving.
// Half- and double-time detections of the same pulse land in one bucket.
type OctaveCorrector struct {
	minBPM float64
	maxBPM float64
}

// NewOctaveCorrector folds into [70, 185]
func NewOctaveCorrector() *OctaveCorrector {
	return NewOctaveCorrectorWithRange(DefaultMinCanonicalBPM, DefaultMaxCanonicalBPM)
}

// NewOctaveCorrectorWithRange folds into [minBPM, maxBPM]. The range must span at least
// one octave (maxBPM >= 2*minBPM); otherwise the defaults are used.
func NewOctaveCorrectorWithRange(minBPM, maxBPM float64) *OctaveCorrector {
	if minBPM <= 0 || maxBPM < 2*minBPM {
		minBPM, maxBPM = DefaultMinCanonicalBPM, DefaultMaxCanonicalBPM
	}
	return &OctaveCorrector{minBPM: minBPM, maxBPM: maxBPM}
}

// Fold doubles while below the range, halves while above, then rounds.
// Non-positive or non-finite input yields 0.
func (oc *OctaveCorrector) Fold(bpm float64) int {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return 0
	}

	for bpm < oc.minBPM {
		bpm *= 2
	}
	for bpm > oc.maxBPM {
		bpm /= 2
	}

	return int(math.Round(bpm))
}
