// Package audio implements the PCM processing stages of the narration
// pipeline: trailing-silence measurement, pause correction (splicing) and
// track stitching. All operations are pure transformations over mono
// 16-bit integer buffers.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth  = 16
	fullScale = 1 << (bitDepth - 1)
)

// NewBuffer wraps a mono sample slice in an IntBuffer.
func NewBuffer(samples []int, sampleRate int) *gaudio.IntBuffer {
	return &gaudio.IntBuffer{
		Data:           samples,
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	}
}

// FromPCM16 decodes raw little-endian 16-bit mono PCM, the format the
// synthesis provider returns, into a buffer.
func FromPCM16(raw []byte, sampleRate int) (*gaudio.IntBuffer, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("PCM payload has odd length %d", len(raw))
	}

	samples := make([]int, len(raw)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	return NewBuffer(samples, sampleRate), nil
}

// Duration returns the buffer length in seconds.
func Duration(buf *gaudio.IntBuffer) float64 {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate == 0 {
		return 0
	}
	return float64(len(buf.Data)) / float64(buf.Format.SampleRate)
}

// SecondsToSamples converts a duration to a sample count at the given rate.
func SecondsToSamples(seconds float64, sampleRate int) int {
	return int(math.Round(seconds * float64(sampleRate)))
}

// Silence returns a buffer of digital silence.
func Silence(seconds float64, sampleRate int) *gaudio.IntBuffer {
	n := SecondsToSamples(seconds, sampleRate)
	if n < 0 {
		n = 0
	}
	return NewBuffer(make([]int, n), sampleRate)
}

// Concat joins buffers into a new buffer. All inputs must share a sample
// rate.
func Concat(bufs ...*gaudio.IntBuffer) (*gaudio.IntBuffer, error) {
	if len(bufs) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}

	rate := bufs[0].Format.SampleRate
	total := 0
	for _, buf := range bufs {
		if buf.Format.SampleRate != rate {
			return nil, fmt.Errorf("sample rate mismatch: %d vs %d", buf.Format.SampleRate, rate)
		}
		total += len(buf.Data)
	}

	joined := make([]int, 0, total)
	for _, buf := range bufs {
		joined = append(joined, buf.Data...)
	}
	return NewBuffer(joined, rate), nil
}

// WriteWAV encodes a buffer as a 16-bit mono WAV file.
func WriteWAV(path string, buf *gaudio.IntBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return f.Close()
}

// ReadWAV decodes a WAV file into a buffer.
func ReadWAV(path string) (*gaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	return buf, nil
}
