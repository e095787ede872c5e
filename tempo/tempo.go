// Package tempo estimates a single dominant tempo, in beats per minute, for a
// finite mono recording.
package tempo

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/sonido-tempo/algorithms/common"
	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/tempo/config"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

// Result is the estimated tempo of one recording
type Result struct {
	Source         string    `json:"source,omitempty"`
	BPM            int       `json:"bpm"` // 0 means tempo unknown
	RawBPM         int       `json:"raw_bpm"`
	Confidence     float64   `json:"confidence"`
	Votes          int       `json:"votes"`
	Onsets         int       `json:"onsets"`
	SampleRate     int       `json:"sample_rate"`
	Duration       float64   `json:"duration"`        // seconds of input audio
	WindowOffset   float64   `json:"window_offset"`   // seconds
	WindowDuration float64   `json:"window_duration"` // seconds
	Elapsed        float64   `json:"elapsed"`         // seconds spent in analysis
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// Detected reports whether a tempo was found
func (r *Result) Detected() bool {
	return r != nil && r.BPM > 0
}

// Category returns a broad tempo label, or "" when no tempo was found
func (r *Result) Category() string {
	if r == nil {
		return ""
	}
	return temporal.ClassifyTempoCategory(r.BPM)
}

// Analyzer runs the tempo pipeline with a fixed configuration. It holds no
// per-call state and is safe for concurrent use.
type Analyzer struct {
	estimator *temporal.TempoEstimation
}

func analyzerLogger() logging.Logger {
	return logging.WithFields(logging.Fields{
		"component": "tempo_analyzer",
	})
}

// NewAnalyzer builds an analyzer. A nil config uses the defaults.
func NewAnalyzer(cfg *config.TempoConfig) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultTempoConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tempo config: %w", err)
	}

	return &Analyzer{
		estimator: temporal.NewTempoEstimationWithParams(cfg.ToParams()),
	}, nil
}

// Detect returns the tempo of samples in BPM, or 0 when it cannot be determined
func (a *Analyzer) Detect(samples []float32, sampleRate int) int {
	return a.estimator.EstimateTempo(common.Float32ToFloat64(samples), sampleRate)
}

// Analyze returns the tempo of samples with the evidence behind it
func (a *Analyzer) Analyze(samples []float64, sampleRate int) *Result {
	start := time.Now()
	analysis := a.estimator.Analyze(samples, sampleRate)

	result := &Result{
		BPM:            analysis.BPM,
		RawBPM:         analysis.RawBPM,
		Confidence:     analysis.Confidence,
		Votes:          analysis.Votes,
		Onsets:         len(analysis.Onsets),
		SampleRate:     sampleRate,
		WindowOffset:   analysis.WindowOffset,
		WindowDuration: analysis.WindowDuration,
		Elapsed:        time.Since(start).Seconds(),
		AnalyzedAt:     start,
	}
	if sampleRate > 0 {
		result.Duration = float64(len(samples)) / float64(sampleRate)
	}

	analyzerLogger().Debug("Tempo analyzed", logging.Fields{
		"bpm":        result.BPM,
		"raw_bpm":    result.RawBPM,
		"votes":      result.Votes,
		"onsets":     result.Onsets,
		"confidence": result.Confidence,
	})

	return result
}

// AnalyzeFile decodes path through session and analyzes it
func (a *Analyzer) AnalyzeFile(ctx context.Context, session *transcode.Session, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := analyzerLogger().WithContext(ctx).WithFields(logging.Fields{
		"function": "AnalyzeFile",
		"filename": filepath.Base(path),
	})

	data, err := session.DecodeFile(path)
	if err != nil {
		return nil, err
	}

	logger.Debug("Decoded audio", logging.Fields{
		"backend":     data.Backend,
		"sample_rate": data.SampleRate,
		"channels":    data.Channels,
		"samples":     len(data.PCM),
	})

	result := a.Analyze(data.PCM, data.SampleRate)
	result.Source = path

	if !result.Detected() {
		logger.Debug("No tempo found")
	}

	return result, nil
}

var defaultAnalyzer = mustDefaultAnalyzer()

func mustDefaultAnalyzer() *Analyzer {
	a, err := NewAnalyzer(nil)
	if err != nil {
		panic(err)
	}
	return a
}

// EstimateBPM returns the tempo of a mono buffer using the default configuration.
// It returns 0 when the tempo cannot be determined.
func EstimateBPM(samples []float32, sampleRate int) int {
	return defaultAnalyzer.Detect(samples, sampleRate)
}
