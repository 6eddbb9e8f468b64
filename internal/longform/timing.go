package longform

import "github.com/narraflow/narraflow/internal/audio"

// span is a clause's position within its scene track, in seconds relative
// to the scene start. The span includes the clause's trailing pause.
type span struct {
	start float64
	end   float64
}

// clauseSpans derives per-clause timing from a stitched scene track's
// boundaries. The timing is exact: it is read off the sample offsets the
// stitcher recorded, not re-measured from audio.
func clauseSpans(track audio.SceneTrack) []span {
	rate := float64(track.Buffer.Format.SampleRate)
	spans := make([]span, len(track.ClauseBoundaries))
	prev := 0
	for i, boundary := range track.ClauseBoundaries {
		spans[i] = span{
			start: float64(prev) / rate,
			end:   float64(boundary) / rate,
		}
		prev = boundary
	}
	return spans
}
