package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/RyanBlaney/sonido-tempo/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

// Environment variables read by ApplyEnv
const (
	EnvFFmpegPath      = "SONIDO_FFMPEG_PATH"
	EnvFFprobePath     = "SONIDO_FFPROBE_PATH"
	EnvDecodeTimeout   = "SONIDO_DECODE_TIMEOUT"
	EnvChannelMode     = "SONIDO_CHANNEL_MODE"
	EnvSampleRate      = "SONIDO_SAMPLE_RATE"
	EnvMaxDuration     = "SONIDO_MAX_DURATION"
	EnvRemoveDC        = "SONIDO_REMOVE_DC"
	EnvLowpassCutoff   = "SONIDO_LOWPASS_CUTOFF"
	EnvLoudSegmentGate = "SONIDO_LOUD_SEGMENT_FRACTION"
	EnvLogLevel        = "SONIDO_LOG_LEVEL"
)

// TempoConfig is the full configuration of the tempo estimator and its decoder
type TempoConfig struct {
	Filter    *FilterConfig            `json:"filter"`
	Window    *WindowSelectionConfig   `json:"window"`
	Onset     *OnsetConfig             `json:"onset"`
	Interval  *IntervalConfig          `json:"interval"`
	Histogram *HistogramConfig         `json:"histogram"`
	Decoder   *transcode.DecoderConfig `json:"decoder"`
	LogLevel  string                   `json:"log_level"` // "debug", "info", "warn", "error"
}

// FilterConfig configures pre-filtering
type FilterConfig struct {
	RemoveDC      bool    `json:"remove_dc"`
	DCCutoff      float64 `json:"dc_cutoff"`      // Hz
	LowpassCutoff float64 `json:"lowpass_cutoff"` // Hz
	LowpassQ      float64 `json:"lowpass_q"`
}

// WindowSelectionConfig configures the loudest-window search
type WindowSelectionConfig struct {
	WindowSeconds float64 `json:"window_seconds"`
	StepSeconds   float64 `json:"step_seconds"`
	EnergyStride  int     `json:"energy_stride"` // samples between energy probes
}

// OnsetConfig configures the adaptive onset picker
type OnsetConfig struct {
	WindowsPerSecond    int     `json:"windows_per_second"`
	NeighborWindows     int     `json:"neighbor_windows"`
	ThresholdRatio      float64 `json:"threshold_ratio"`
	MinGapSeconds       float64 `json:"min_gap_seconds"`
	LoudSegmentFraction float64 `json:"loud_segment_fraction"` // 0 disables the gate
}

// IntervalConfig configures onset-pair interval collection
type IntervalConfig struct {
	Lookahead   int     `json:"lookahead"`
	MinInterval float64 `json:"min_interval"` // seconds
	MaxInterval float64 `json:"max_interval"` // seconds
}

// HistogramConfig configures the BPM histogram and octave folding
type HistogramConfig struct {
	NeighborWeight  float64 `json:"neighbor_weight"`
	MinCanonicalBPM float64 `json:"min_canonical_bpm"`
	MaxCanonicalBPM float64 `json:"max_canonical_bpm"`
}

func DefaultFilterConfig() *FilterConfig {
	p := temporal.DefaultTempoParams()
	return &FilterConfig{
		RemoveDC:      p.RemoveDC,
		DCCutoff:      p.DCCutoff,
		LowpassCutoff: p.LowpassCutoff,
		LowpassQ:      p.LowpassQFactor,
	}
}

func DefaultWindowSelectionConfig() *WindowSelectionConfig {
	return &WindowSelectionConfig{
		WindowSeconds: temporal.DefaultAnalysisWindowSeconds,
		StepSeconds:   temporal.DefaultWindowStepSeconds,
		EnergyStride:  temporal.DefaultEnergyStride,
	}
}

func DefaultOnsetConfig() *OnsetConfig {
	p := temporal.DefaultOnsetParams()
	return &OnsetConfig{
		WindowsPerSecond:    p.WindowsPerSecond,
		NeighborWindows:     p.NeighborWindows,
		ThresholdRatio:      p.ThresholdRatio,
		MinGapSeconds:       p.MinGapSeconds,
		LoudSegmentFraction: p.LoudSegmentFraction,
	}
}

func DefaultIntervalConfig() *IntervalConfig {
	return &IntervalConfig{
		Lookahead:   temporal.DefaultIntervalLookahead,
		MinInterval: temporal.DefaultMinInterval,
		MaxInterval: temporal.DefaultMaxInterval,
	}
}

func DefaultHistogramConfig() *HistogramConfig {
	return &HistogramConfig{
		NeighborWeight:  temporal.DefaultNeighborWeight,
		MinCanonicalBPM: temporal.DefaultMinCanonicalBPM,
		MaxCanonicalBPM: temporal.DefaultMaxCanonicalBPM,
	}
}

// DefaultTempoConfig returns the standard configuration
func DefaultTempoConfig() *TempoConfig {
	return &TempoConfig{
		Filter:    DefaultFilterConfig(),
		Window:    DefaultWindowSelectionConfig(),
		Onset:     DefaultOnsetConfig(),
		Interval:  DefaultIntervalConfig(),
		Histogram: DefaultHistogramConfig(),
		Decoder:   transcode.DefaultDecoderConfig(),
		LogLevel:  "info",
	}
}

// fillDefaults replaces missing sections with their defaults
func (c *TempoConfig) fillDefaults() {
	if c.Filter == nil {
		c.Filter = DefaultFilterConfig()
	}
	if c.Window == nil {
		c.Window = DefaultWindowSelectionConfig()
	}
	if c.Onset == nil {
		c.Onset = DefaultOnsetConfig()
	}
	if c.Interval == nil {
		c.Interval = DefaultIntervalConfig()
	}
	if c.Histogram == nil {
		c.Histogram = DefaultHistogramConfig()
	}
	if c.Decoder == nil {
		c.Decoder = transcode.DefaultDecoderConfig()
	}
}

// withDefaults returns a shallow copy with missing sections filled; c is left as is
func (c *TempoConfig) withDefaults() *TempoConfig {
	filled := *c
	filled.fillDefaults()
	return &filled
}

// Validate checks every section and returns all problems joined.
// Missing sections are checked as their defaults; c itself is not modified.
func (c *TempoConfig) Validate() error {
	c = c.withDefaults()

	var errs []error

	if c.Filter.LowpassCutoff <= 0 {
		errs = append(errs, fmt.Errorf("filter.lowpass_cutoff must be positive: %v", c.Filter.LowpassCutoff))
	}
	if c.Filter.LowpassQ <= 0 {
		errs = append(errs, fmt.Errorf("filter.lowpass_q must be positive: %v", c.Filter.LowpassQ))
	}
	if c.Filter.RemoveDC && c.Filter.DCCutoff <= 0 {
		errs = append(errs, fmt.Errorf("filter.dc_cutoff must be positive: %v", c.Filter.DCCutoff))
	}

	if c.Window.WindowSeconds <= 0 || c.Window.StepSeconds <= 0 {
		errs = append(errs, fmt.Errorf("window seconds and step must be positive"))
	}
	if c.Window.EnergyStride <= 0 {
		errs = append(errs, fmt.Errorf("window.energy_stride must be positive: %d", c.Window.EnergyStride))
	}

	if c.Onset.WindowsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("onset.windows_per_second must be positive: %d", c.Onset.WindowsPerSecond))
	}
	if c.Onset.NeighborWindows <= 0 {
		errs = append(errs, fmt.Errorf("onset.neighbor_windows must be positive: %d", c.Onset.NeighborWindows))
	}
	if c.Onset.ThresholdRatio <= 0 {
		errs = append(errs, fmt.Errorf("onset.threshold_ratio must be positive: %v", c.Onset.ThresholdRatio))
	}
	if c.Onset.MinGapSeconds < 0 {
		errs = append(errs, fmt.Errorf("onset.min_gap_seconds must not be negative: %v", c.Onset.MinGapSeconds))
	}
	if c.Onset.LoudSegmentFraction < 0 || c.Onset.LoudSegmentFraction >= 1 {
		errs = append(errs, fmt.Errorf("onset.loud_segment_fraction must be in [0, 1): %v", c.Onset.LoudSegmentFraction))
	}

	if c.Interval.Lookahead <= 0 {
		errs = append(errs, fmt.Errorf("interval.lookahead must be positive: %d", c.Interval.Lookahead))
	}
	if c.Interval.MinInterval <= 0 || c.Interval.MaxInterval <= c.Interval.MinInterval {
		errs = append(errs, fmt.Errorf("interval range invalid: [%v, %v]", c.Interval.MinInterval, c.Interval.MaxInterval))
	}

	if c.Histogram.NeighborWeight < 0 {
		errs = append(errs, fmt.Errorf("histogram.neighbor_weight must not be negative: %v", c.Histogram.NeighborWeight))
	}
	// folding needs at least one octave to land in
	if c.Histogram.MinCanonicalBPM <= 0 || c.Histogram.MaxCanonicalBPM < 2*c.Histogram.MinCanonicalBPM {
		errs = append(errs, fmt.Errorf("canonical range must span an octave: [%v, %v]",
			c.Histogram.MinCanonicalBPM, c.Histogram.MaxCanonicalBPM))
	}

	if err := c.Decoder.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("decoder: %w", err))
	}

	return errors.Join(errs...)
}

// ToParams converts the configuration into pipeline parameters
func (c *TempoConfig) ToParams() temporal.TempoParams {
	c = c.withDefaults()

	return temporal.TempoParams{
		RemoveDC:       c.Filter.RemoveDC,
		DCCutoff:       c.Filter.DCCutoff,
		LowpassCutoff:  c.Filter.LowpassCutoff,
		LowpassQFactor: c.Filter.LowpassQ,
		WindowSeconds:  c.Window.WindowSeconds,
		StepSeconds:    c.Window.StepSeconds,
		EnergyStride:   c.Window.EnergyStride,
		Onset: temporal.OnsetParams{
			WindowsPerSecond:    c.Onset.WindowsPerSecond,
			NeighborWindows:     c.Onset.NeighborWindows,
			ThresholdRatio:      c.Onset.ThresholdRatio,
			MinGapSeconds:       c.Onset.MinGapSeconds,
			LoudSegmentFraction: c.Onset.LoudSegmentFraction,
		},
		Lookahead:       c.Interval.Lookahead,
		MinInterval:     c.Interval.MinInterval,
		MaxInterval:     c.Interval.MaxInterval,
		NeighborWeight:  c.Histogram.NeighborWeight,
		MinCanonicalBPM: c.Histogram.MinCanonicalBPM,
		MaxCanonicalBPM: c.Histogram.MaxCanonicalBPM,
	}
}

// LoadFile reads a JSON configuration on top of the defaults. Sections missing from
// the file keep their default values.
func LoadFile(path string) (*TempoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultTempoConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()

	return cfg, nil
}

// ApplyEnv overrides cfg from SONIDO_* variables. Values from envFiles (dotenv format)
// are used only where the process environment does not set the variable.
func ApplyEnv(cfg *TempoConfig, envFiles ...string) error {
	cfg.fillDefaults()

	fileEnv := map[string]string{}
	if len(envFiles) > 0 {
		var err error
		fileEnv, err = godotenv.Read(envFiles...)
		if err != nil {
			return fmt.Errorf("read env files: %w", err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}

	var errs []error

	if v, ok := lookup(EnvFFmpegPath); ok && v != "" {
		cfg.Decoder.FFmpegPath = v
	}
	if v, ok := lookup(EnvFFprobePath); ok && v != "" {
		cfg.Decoder.FFprobePath = v
	}
	if v, ok := lookup(EnvDecodeTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDecodeTimeout, err))
		} else {
			cfg.Decoder.Timeout = d
		}
	}
	if v, ok := lookup(EnvMaxDuration); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMaxDuration, err))
		} else {
			cfg.Decoder.MaxDuration = d
		}
	}
	if v, ok := lookup(EnvChannelMode); ok {
		mode, err := transcode.ParseChannelMode(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvChannelMode, err))
		} else {
			cfg.Decoder.ChannelMode = mode
		}
	}
	if v, ok := lookup(EnvSampleRate); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSampleRate, err))
		} else {
			cfg.Decoder.TargetSampleRate = n
		}
	}
	if v, ok := lookup(EnvRemoveDC); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvRemoveDC, err))
		} else {
			cfg.Filter.RemoveDC = b
		}
	}
	if v, ok := lookup(EnvLowpassCutoff); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLowpassCutoff, err))
		} else {
			cfg.Filter.LowpassCutoff = f
		}
	}
	if v, ok := lookup(EnvLoudSegmentGate); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLoudSegmentGate, err))
		} else {
			cfg.Onset.LoudSegmentFraction = f
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}

	return errors.Join(errs...)
}
