package transcode

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// errUnsupportedWAV marks a valid WAV container we do not decode natively
var errUnsupportedWAV = errors.New("unsupported wav encoding")

const wavFormatPCM = 1

// decodeWAVFile reads an integer PCM WAV file and reduces it to mono in [-1, 1]
func decodeWAVFile(path string, mode ChannelMode) (*AudioData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, errUnsupportedWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}

	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav format: %d channels at %d Hz", channels, sampleRate)
	}

	pcm := reduceChannels(intBufferToFloat64(buf, int(dec.BitDepth)), channels, mode)
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   samplesDuration(len(pcm), sampleRate),
		Timestamp:  time.Now(),
		Source:     path,
		Codec:      fmt.Sprintf("pcm_s%d", dec.BitDepth),
		Backend:    "wav",
	}, nil
}

// intBufferToFloat64 scales integer samples to [-1, 1]. 8-bit WAV is unsigned.
func intBufferToFloat64(buf *audio.IntBuffer, bitDepth int) []float64 {
	if buf == nil || len(buf.Data) == 0 {
		return nil
	}
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}

	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float64(v-offset) / scale
	}
	return out
}
