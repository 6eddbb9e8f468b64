package audio

import (
	"fmt"
	"math"

	gaudio "github.com/go-audio/audio"
)

// Correction actions.
const (
	ActionNone = "none"
	ActionTrim = "trim"
	ActionPad  = "pad"
)

// Correction reports what the splice engine did to a clip.
type Correction struct {
	Target   float64 // Pause the clip was corrected toward, in seconds
	Observed float64 // Trailing silence measured before correction
	Final    float64 // Trailing silence after correction
	Action   string  // "none", "trim" or "pad"
	Warning  string  // Set when trimming could not reach the target
}

// CorrectPause returns a copy of the clip whose trailing silence is within
// tolerance of target: excess silence is trimmed, missing silence is padded
// with synthesized silence. Trimming never cuts into non-silent audio; when
// the target cannot be reached that way the clip passes through uncorrected
// with a warning instead of failing the request.
func CorrectPause(buf *gaudio.IntBuffer, target float64, p SilenceParams, tolerance float64) (*gaudio.IntBuffer, Correction) {
	observed := TrailingSilence(buf, p)
	c := Correction{Target: target, Observed: observed, Final: observed, Action: ActionNone}

	if math.Abs(observed-target) <= tolerance {
		return buf, c
	}

	rate := buf.Format.SampleRate

	if observed > target {
		trimSamples := SecondsToSamples(observed-target, rate)
		silentSamples := SecondsToSamples(observed, rate)
		if trimSamples > silentSamples || trimSamples > len(buf.Data) {
			c.Warning = fmt.Sprintf(
				"cannot trim %.3fs without cutting speech (only %.3fs of trailing silence)",
				observed-target, observed)
			return buf, c
		}
		trimmed := make([]int, len(buf.Data)-trimSamples)
		copy(trimmed, buf.Data)
		c.Action = ActionTrim
		c.Final = target
		return NewBuffer(trimmed, rate), c
	}

	pad := Silence(target-observed, rate)
	padded := make([]int, 0, len(buf.Data)+len(pad.Data))
	padded = append(padded, buf.Data...)
	padded = append(padded, pad.Data...)
	c.Action = ActionPad
	c.Final = target
	return NewBuffer(padded, rate), c
}

// ClampAdjustment bounds a validator-proposed pause to within bound seconds
// of the configured target. Out-of-bound or non-finite proposals fall back
// to the literal target.
func ClampAdjustment(target, proposed, bound float64) float64 {
	if math.IsNaN(proposed) || math.IsInf(proposed, 0) || proposed < 0 {
		return target
	}
	if math.Abs(proposed-target) > bound {
		return target
	}
	return proposed
}
