package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-tempo/logging"
)

var (
	// ErrSessionClosed is returned by a Session after Close
	ErrSessionClosed = errors.New("decode session closed")
	// ErrNoAudio is returned when a file decodes to zero samples
	ErrNoAudio = errors.New("no audio samples decoded")
	// ErrFFmpegUnavailable is returned when a file needs ffmpeg and it could not be found
	ErrFFmpegUnavailable = errors.New("ffmpeg not available")
)

// ChannelMode selects how multichannel audio is reduced to mono
type ChannelMode string

const (
	ChannelFirst ChannelMode = "first" // keep channel 0 (left)
	ChannelMix   ChannelMode = "mix"   // average all channels
)

// ParseChannelMode maps a name to a ChannelMode
func ParseChannelMode(name string) (ChannelMode, error) {
	switch ChannelMode(strings.ToLower(strings.TrimSpace(name))) {
	case ChannelFirst, "":
		return ChannelFirst, nil
	case ChannelMix:
		return ChannelMix, nil
	default:
		return "", fmt.Errorf("unknown channel mode %q", name)
	}
}

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channel count of the source before reduction
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
	Source     string        `json:"source"`
	Codec      string        `json:"codec,omitempty"`
	Backend    string        `json:"backend"` // "wav" or "ffmpeg"
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"` // 0 keeps the source rate
	ChannelMode      ChannelMode   `json:"channel_mode"`
	MaxDuration      time.Duration `json:"max_duration"` // 0 means no limit
	FFmpegPath       string        `json:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout"` // per ffmpeg/ffprobe invocation
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 0,
		ChannelMode:      ChannelFirst,
		MaxDuration:      0,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          60 * time.Second,
	}
}

// Validate checks the decoder configuration
func (c *DecoderConfig) Validate() error {
	if c.TargetSampleRate < 0 {
		return fmt.Errorf("target sample rate must not be negative: %d", c.TargetSampleRate)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("max duration must not be negative: %v", c.MaxDuration)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", c.Timeout)
	}
	if _, err := ParseChannelMode(string(c.ChannelMode)); err != nil {
		return err
	}
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return fmt.Errorf("ffmpeg and ffprobe paths must be set")
	}
	return nil
}

// Decoder produces decode sessions. It holds configuration only; all resources
// belong to the Session returned by Open.
type Decoder struct {
	config *DecoderConfig
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	cfg := *config
	if cfg.ChannelMode == "" {
		cfg.ChannelMode = ChannelFirst
	}
	return &Decoder{config: &cfg}
}

// Config returns a copy of the decoder configuration
func (d *Decoder) Config() DecoderConfig {
	return *d.config
}

// Open acquires a decode session bound to ctx. The session must be closed.
func (d *Decoder) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open decode session: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		decoder: d,
		ctx:     sessionCtx,
		cancel:  cancel,
		ffmpeg:  d.checkFFmpegAvailability() == nil,
	}

	logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Open",
		"ffmpeg":    s.ffmpeg,
	}).Debug("Decode session opened")

	return s, nil
}

// checkFFmpegAvailability checks if ffmpeg and ffprobe are available
func (d *Decoder) checkFFmpegAvailability() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}
	if _, err := exec.LookPath(d.config.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}
	return nil
}

// probeAudioFile uses ffprobe to get audio information from a file
func (d *Decoder) probeAudioFile(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		filename,
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found: %w", ErrNoAudio)
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %q", stream.SampleRate)
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// buildFFmpegArgs returns the ffmpeg arguments for decoding filename into interleaved
// f64le at the source channel count
func (d *Decoder) buildFFmpegArgs(filename string, metadata *AudioMetadata) ([]string, int) {
	sampleRate := metadata.SampleRate
	if d.config.TargetSampleRate > 0 {
		sampleRate = d.config.TargetSampleRate
	}

	args := []string{"-v", "error", "-i", filename}
	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}
	args = append(args,
		"-map", "0:a:0",
		"-vn",
		"-f", "f64le",
		"-ac", strconv.Itoa(metadata.Channels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	)
	return args, sampleRate
}

// decodeFileWithFFmpeg probes and decodes filename through ffmpeg
func (d *Decoder) decodeFileWithFFmpeg(ctx context.Context, filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeFileWithFFmpeg",
		"filename":  filepath.Base(filename),
	})

	metadata, err := d.probeAudioFile(ctx, filename)
	if err != nil {
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	args, sampleRate := d.buildFFmpegArgs(filename, metadata)

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := exec.CommandContext(ctx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	interleaved := bytesToFloat64(output)
	pcm := reduceChannels(interleaved, metadata.Channels, d.config.ChannelMode)
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   metadata.Channels,
		Duration:   samplesDuration(len(pcm), sampleRate),
		Timestamp:  time.Now(),
		Source:     filename,
		Codec:      metadata.Codec,
		Backend:    "ffmpeg",
	}, nil
}

// bytesToFloat64 converts little-endian float64 bytes to samples, dropping a partial tail
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-(len(data)%8)]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples
}

// reduceChannels turns interleaved frames into one mono channel. A trailing partial
// frame is dropped.
func reduceChannels(interleaved []float64, channels int, mode ChannelMode) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		frame := interleaved[i*channels : (i+1)*channels]
		if mode == ChannelMix {
			sum := 0.0
			for _, v := range frame {
				sum += v
			}
			mono[i] = sum / float64(channels)
		} else {
			mono[i] = frame[0]
		}
	}
	return mono
}

// truncate limits pcm to maxDuration at sampleRate
func truncate(pcm []float64, sampleRate int, maxDuration time.Duration) []float64 {
	if maxDuration <= 0 || sampleRate <= 0 {
		return pcm
	}
	limit := int(maxDuration.Seconds() * float64(sampleRate))
	if limit < len(pcm) {
		return pcm[:limit]
	}
	return pcm
}

func samplesDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second))
}
