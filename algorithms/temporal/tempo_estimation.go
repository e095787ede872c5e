package temporal

import (
	"github.com/RyanBlaney/sonido-tempo/algorithms/filters"
)

// TempoParams collects the tunables of the tempo pipeline
type TempoParams struct {
	// Pre-filtering
	RemoveDC       bool
	DCCutoff       float64
	LowpassCutoff  float64
	LowpassQFactor float64

	// Window selection
	WindowSeconds float64
	StepSeconds   float64
	EnergyStride  int

	Onset OnsetParams

	// Interval collection
	Lookahead   int
	MinInterval float64
	MaxInterval float64

	// Histogram and folding
	NeighborWeight  float64
	MinCanonicalBPM float64
	MaxCanonicalBPM float64
}

// DefaultTempoParams returns the standard pipeline settings
func DefaultTempoParams() TempoParams {
	return TempoParams{
		RemoveDC:        false,
		DCCutoff:        filters.DefaultDCCutoff,
		LowpassCutoff:   filters.DefaultLowpassCutoff,
		LowpassQFactor:  filters.DefaultLowpassQ,
		WindowSeconds:   DefaultAnalysisWindowSeconds,
		StepSeconds:     DefaultWindowStepSeconds,
		EnergyStride:    DefaultEnergyStride,
		Onset:           DefaultOnsetParams(),
		Lookahead:       DefaultIntervalLookahead,
		MinInterval:     DefaultMinInterval,
		MaxInterval:     DefaultMaxInterval,
		NeighborWeight:  DefaultNeighborWeight,
		MinCanonicalBPM: DefaultMinCanonicalBPM,
		MaxCanonicalBPM: DefaultMaxCanonicalBPM,
	}
}

// TempoAnalysis is the outcome of one pipeline run, with the evidence behind it
type TempoAnalysis struct {
	BPM        int     // folded tempo, 0 when undetected
	RawBPM     int     // heaviest histogram bucket before folding
	Weight     float64 // accumulated weight of RawBPM
	Votes      int     // intervals that reached the histogram
	Confidence float64 // envelope autocorrelation at the raw beat period, [0, 1]

	SampleRate     int
	WindowOffset   float64   // start of the analyzed segment in seconds
	WindowDuration float64   // length of the analyzed segment in seconds
	Onsets         []float64 // onset times in seconds, relative to WindowOffset
}

// Detected reports whether a tempo was found
func (ta *TempoAnalysis) Detected() bool {
	return ta != nil && ta.BPM > 0
}

// TempoEstimation estimates a single tempo for a mono buffer.
//
// Stages: low-pass -> loudest window -> adaptive onsets (refined to the peak sample) ->
// onset-pair intervals -> smoothed BPM histogram -> octave folding. The estimator keeps
// no state between calls; filters and histograms are created per call, so one instance
// can serve many goroutines at once.
type TempoEstimation struct {
	params        TempoParams
	selector      *WindowSelector
	onsetDetector *OnsetDetection
	collector     *IntervalCollector
	corrector     *OctaveCorrector
	periodicity   *Periodicity
}

// NewTempoEstimation creates a new tempo estimator with default parameters
func NewTempoEstimation() *TempoEstimation {
	return NewTempoEstimationWithParams(DefaultTempoParams())
}

// NewTempoEstimationWithParams creates a tempo estimator with explicit parameters
func NewTempoEstimationWithParams(params TempoParams) *TempoEstimation {
	if params.LowpassCutoff <= 0 {
		params.LowpassCutoff = filters.DefaultLowpassCutoff
	}
	if params.LowpassQFactor <= 0 {
		params.LowpassQFactor = filters.DefaultLowpassQ
	}
	if params.DCCutoff <= 0 {
		params.DCCutoff = filters.DefaultDCCutoff
	}

	onsetDetector := NewOnsetDetectionWithParams(params.Onset)
	params.Onset = onsetDetector.params

	return &TempoEstimation{
		params:        params,
		selector:      NewWindowSelectorWithParams(params.WindowSeconds, params.StepSeconds, params.EnergyStride),
		onsetDetector: onsetDetector,
		collector:     NewIntervalCollectorWithParams(params.Lookahead, params.MinInterval, params.MaxInterval),
		corrector:     NewOctaveCorrectorWithRange(params.MinCanonicalBPM, params.MaxCanonicalBPM),
		periodicity:   NewPeriodicity(),
	}
}

// EstimateTempo returns the tempo in BPM, or 0 when no reliable tempo was found.
// Degenerate input (empty buffer, non-positive sample rate, shorter than one
// envelope window) returns 0 without touching the buffer.
func (te *TempoEstimation) EstimateTempo(signal []float64, sampleRate int) int {
	return te.Analyze(signal, sampleRate).BPM
}

// Analyze runs the full pipeline and returns the tempo with its supporting evidence.
// The input buffer is never modified.
func (te *TempoEstimation) Analyze(signal []float64, sampleRate int) *TempoAnalysis {
	analysis := &TempoAnalysis{
		SampleRate: sampleRate,
		Onsets:     []float64{},
	}

	windowSize := te.onsetDetector.WindowSize(sampleRate)
	if len(signal) == 0 || windowSize <= 0 || len(signal) < windowSize {
		return analysis
	}

	filtered := signal
	if te.params.RemoveDC {
		filtered = filters.NewDCRemoval(sampleRate, te.params.DCCutoff).ProcessBuffer(filtered)
	}
	lowpass := filters.NewLowpassFilterWithQ(sampleRate, te.params.LowpassCutoff, te.params.LowpassQFactor)
	filtered = lowpass.ProcessBuffer(filtered)

	selection := te.selector.Select(filtered, sampleRate)
	analysis.WindowOffset = selection.OffsetSeconds(sampleRate)
	analysis.WindowDuration = float64(selection.Length) / float64(sampleRate)

	envelope := te.onsetDetector.ComputeEnvelope(selection.Samples, sampleRate)
	analysis.Onsets = te.onsetDetector.RefineOnsets(selection.Samples,
		te.onsetDetector.PickOnsets(envelope, windowSize, sampleRate), windowSize, sampleRate)

	histogram := NewTempoHistogramWithKernel(DefaultCenterWeight, te.params.NeighborWeight)
	for _, interval := range te.collector.Collect(analysis.Onsets) {
		histogram.AddInterval(interval)
	}
	analysis.Votes = histogram.Votes()

	rawBPM, weight, ok := histogram.Best()
	if !ok {
		return analysis
	}

	analysis.RawBPM = rawBPM
	analysis.Weight = weight
	analysis.BPM = te.corrector.Fold(float64(rawBPM))
	analysis.Confidence = te.periodicity.Confidence(envelope, te.params.Onset.WindowsPerSecond, float64(rawBPM))

	return analysis
}

// ClassifyTempoCategory classifies tempo into broad categories
func ClassifyTempoCategory(bpm int) string {
	switch {
	case bpm <= 0:
		return ""
	case bpm < 60:
		return "very_slow"
	case bpm < 90:
		return "slow"
	case bpm < 120:
		return "moderate"
	case bpm < 150:
		return "fast"
	default:
		return "very_fast"
	}
}
