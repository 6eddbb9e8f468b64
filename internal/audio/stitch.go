package audio

import (
	"fmt"
	"math"

	gaudio "github.com/go-audio/audio"
)

// SceneTrack is the concatenated audio for one scene. ClauseBoundaries
// holds the sample offset at which each clause (including its trailing
// pause) ends, for inspection and timing analysis.
type SceneTrack struct {
	SceneID          string
	Buffer           *gaudio.IntBuffer
	ClauseBoundaries []int
}

// MasterTrack is the final deliverable: every scene track joined in
// original order.
type MasterTrack struct {
	Buffer          *gaudio.IntBuffer
	SceneBoundaries []int
	TotalDuration   float64
}

// StitchScene joins a scene's corrected clips into one track. The pause
// corrector's output already carries each clause's full target pause as
// trailing silence, so this is pure concatenation - no silence is inserted
// between clauses. The scene-level pause is appended after the last clause.
func StitchScene(sceneID string, clips []*gaudio.IntBuffer, scenePause float64) (SceneTrack, error) {
	if len(clips) == 0 {
		return SceneTrack{}, fmt.Errorf("scene %s has no clips to stitch", sceneID)
	}

	rate := clips[0].Format.SampleRate
	boundaries := make([]int, 0, len(clips))
	offset := 0
	for _, clip := range clips {
		offset += len(clip.Data)
		boundaries = append(boundaries, offset)
	}

	parts := make([]*gaudio.IntBuffer, 0, len(clips)+1)
	parts = append(parts, clips...)
	if scenePause > 0 {
		parts = append(parts, Silence(scenePause, rate))
	}

	joined, err := Concat(parts...)
	if err != nil {
		return SceneTrack{}, fmt.Errorf("scene %s: %w", sceneID, err)
	}

	return SceneTrack{
		SceneID:          sceneID,
		Buffer:           joined,
		ClauseBoundaries: boundaries,
	}, nil
}

// StitchMaster joins scene tracks in order into the master track, applying
// a short fade at each scene boundary and an optional peak normalization
// pass. The fade ramps the boundary edges in place rather than overlapping
// the tracks, so the master's duration stays the exact sum of its parts.
func StitchMaster(tracks []SceneTrack, crossfadeMS int, peakDBFS float64, normalize bool) (MasterTrack, error) {
	if len(tracks) == 0 {
		return MasterTrack{}, fmt.Errorf("no scene tracks to stitch")
	}

	buffers := make([]*gaudio.IntBuffer, len(tracks))
	boundaries := make([]int, len(tracks))
	offset := 0
	for i, track := range tracks {
		buffers[i] = track.Buffer
		offset += len(track.Buffer.Data)
		boundaries[i] = offset
	}

	joined, err := Concat(buffers...)
	if err != nil {
		return MasterTrack{}, err
	}

	fadeSamples := SecondsToSamples(float64(crossfadeMS)/1000.0, joined.Format.SampleRate)
	for _, boundary := range boundaries[:len(boundaries)-1] {
		applyBoundaryFade(joined.Data, boundary, fadeSamples)
	}

	if normalize {
		normalizePeak(joined.Data, peakDBFS)
	}

	return MasterTrack{
		Buffer:          joined,
		SceneBoundaries: boundaries,
		TotalDuration:   Duration(joined),
	}, nil
}

// applyBoundaryFade ramps samples down into a scene boundary and back up
// out of it. Boundaries normally sit inside scene-pause silence, so the
// ramp only smooths any residual discontinuity.
func applyBoundaryFade(samples []int, boundary, fadeSamples int) {
	if fadeSamples <= 0 {
		return
	}

	start := boundary - fadeSamples
	if start < 0 {
		start = 0
	}
	for i := start; i < boundary; i++ {
		gain := float64(boundary-i-1) / float64(fadeSamples)
		samples[i] = int(math.Round(float64(samples[i]) * gain))
	}

	end := boundary + fadeSamples
	if end > len(samples) {
		end = len(samples)
	}
	for i := boundary; i < end; i++ {
		gain := float64(i-boundary+1) / float64(fadeSamples)
		samples[i] = int(math.Round(float64(samples[i]) * gain))
	}
}

// normalizePeak scales the whole buffer so its peak sits at the target
// level. Buffers that are already quieter than the target are boosted;
// digital silence is left alone.
func normalizePeak(samples []int, targetDBFS float64) {
	peak := 0
	for _, s := range samples {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}
	if peak == 0 {
		return
	}

	targetPeak := math.Pow(10, targetDBFS/20) * float64(fullScale-1)
	gain := targetPeak / float64(peak)
	for i, s := range samples {
		scaled := math.Round(float64(s) * gain)
		if scaled > fullScale-1 {
			scaled = fullScale - 1
		}
		if scaled < -fullScale {
			scaled = -fullScale
		}
		samples[i] = int(scaled)
	}
}
