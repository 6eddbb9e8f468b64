package audio

import (
	"math"

	gaudio "github.com/go-audio/audio"
)

// SilenceParams controls how silence is detected. Windows whose RMS level
// falls at or below ThresholdDBFS count as silent.
type SilenceParams struct {
	ThresholdDBFS float64
	WindowMS      int
}

// TrailingSilence measures the duration, in seconds, of continuous
// near-silence at the end of a buffer. It scans fixed-size windows backward
// from the end and stops at the first window above the threshold. A buffer
// that ends in speech reports 0.
func TrailingSilence(buf *gaudio.IntBuffer, p SilenceParams) float64 {
	if buf == nil || len(buf.Data) == 0 {
		return 0
	}

	rate := buf.Format.SampleRate
	window := SecondsToSamples(float64(p.WindowMS)/1000.0, rate)
	if window <= 0 {
		window = 1
	}

	silent := 0
	for end := len(buf.Data); end > 0; end -= window {
		start := end - window
		if start < 0 {
			start = 0
		}
		if windowDBFS(buf.Data[start:end]) > p.ThresholdDBFS {
			break
		}
		silent += end - start
	}

	return float64(silent) / float64(rate)
}

// windowDBFS computes the RMS level of a sample window in dBFS. Pure
// digital silence reports negative infinity.
func windowDBFS(samples []int) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}

	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/fullScale)
}
