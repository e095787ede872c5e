package transcode

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/RyanBlaney/sonido-tempo/logging"
)

// Session is a scoped decode context. It is safe for concurrent use; Close cancels
// any ffmpeg process still running under it.
type Session struct {
	decoder *Decoder
	ctx     context.Context
	cancel  context.CancelFunc
	ffmpeg  bool
	closed  atomic.Bool
}

// WithSession opens a session, runs fn and always closes the session
func WithSession(ctx context.Context, d *Decoder, fn func(*Session) error) error {
	s, err := d.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// Context returns the session context
func (s *Session) Context() context.Context {
	return s.ctx
}

// FFmpegAvailable reports whether non-WAV input can be decoded
func (s *Session) FFmpegAvailable() bool {
	return s.ffmpeg
}

// Close releases the session. Safe to call more than once.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cancel()
		logging.Debug("Decode session closed", logging.Fields{
			"component": "audio_decoder",
		})
	}
	return nil
}

// DecodeFile decodes path to mono PCM. PCM WAV files are read natively; everything
// else, and WAV files that need resampling, go through ffmpeg.
func (s *Session) DecodeFile(path string) (*AudioData, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if err := s.ctx.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filepath.Base(path),
	})

	cfg := s.decoder.config

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		data, err := decodeWAVFile(path, cfg.ChannelMode)
		switch {
		case err == nil && (cfg.TargetSampleRate == 0 || cfg.TargetSampleRate == data.SampleRate):
			data.PCM = truncate(data.PCM, data.SampleRate, cfg.MaxDuration)
			data.Duration = samplesDuration(len(data.PCM), data.SampleRate)
			logger.Debug("Decoded WAV natively", logging.Fields{
				"sample_rate": data.SampleRate,
				"channels":    data.Channels,
				"samples":     len(data.PCM),
			})
			return data, nil
		case err == nil:
			logger.Debug("WAV needs resampling, using ffmpeg", logging.Fields{
				"sample_rate": data.SampleRate,
				"target":      cfg.TargetSampleRate,
			})
		case err == errUnsupportedWAV:
			logger.Debug("WAV is not integer PCM, using ffmpeg")
		default:
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
	}

	if !s.ffmpeg {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), ErrFFmpegUnavailable)
	}

	data, err := s.decoder.decodeFileWithFFmpeg(s.ctx, path)
	if err != nil {
		logger.Error(err, "Decode failed")
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return data, nil
}
