package longform

import (
	"context"
	"encoding/binary"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narraflow/narraflow/internal/audio"
	"github.com/narraflow/narraflow/internal/config"
	"github.com/narraflow/narraflow/internal/script"
	"github.com/narraflow/narraflow/internal/services/elevenlabs"
)

// fakeSynth produces deterministic PCM: a burst of tone whose length can
// vary per text, followed by a fixed short silent tail.
type fakeSynth struct {
	mu        sync.Mutex
	durations map[string]float64 // speech seconds per text, default 0.4
	err       error
	calls     int
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	speech := 0.4
	if d, ok := f.durations[text]; ok {
		speech = d
	}
	return pcmClip(speech, 0.25), nil
}

// pcmClip encodes tone plus trailing silence as little-endian 16-bit PCM.
func pcmClip(speechSeconds, silenceSeconds float64) []byte {
	rate := config.Default().SampleRate
	speechSamples := audio.SecondsToSamples(speechSeconds, rate)
	total := speechSamples + audio.SecondsToSamples(silenceSeconds, rate)

	raw := make([]byte, 2*total)
	for i := 0; i < speechSamples; i++ {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(int16(8000)))
	}
	return raw
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.VoiceID = "test-voice"
	cfg.RateLimitPerMin = 60000
	cfg.MaxRetries = 1
	cfg.CrossfadeMS = 0
	cfg.DisableNormalize = true
	cfg.RetainClips = true
	return cfg
}

func mustScenes(t *testing.T, scriptText string) []script.Scene {
	t.Helper()
	scenes, err := script.SplitScenes(scriptText, config.Default().MaxHeaderLength)
	require.NoError(t, err)
	return scenes
}

func TestRunCompletes(t *testing.T) {
	cfg := testConfig()
	synth := &fakeSynth{}
	orch, err := New(cfg, synth, nil)
	require.NoError(t, err)

	scenes := mustScenes(t, `Opening

Breathe in slowly. (3 sec) Breathe out.
(2 sec)

Closing
Rest now.
`)

	outputDir := t.TempDir()
	result, err := orch.Run(context.Background(), scenes, outputDir)
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 3, synth.calls)
	require.Len(t, result.Scenes, 2)

	opening := result.Scenes[0]
	assert.Equal(t, "opening", opening.SceneID)
	assert.Equal(t, "fallback", opening.Segmentation)
	assert.Equal(t, 2.0, opening.PauseAfterSeconds)
	require.Len(t, opening.Clauses, 2)

	// Synthesized tails are much shorter than the targets, so every clause
	// gets padded to its full pause.
	first := opening.Clauses[0]
	assert.Equal(t, "Breathe in slowly.", first.Text)
	assert.Equal(t, audio.ActionPad, first.Action)
	assert.Equal(t, 3.0, first.TargetPauseSeconds)
	assert.Equal(t, 3.0, first.FinalPauseSeconds)
	assert.InDelta(t, 0.25, first.ObservedPauseSeconds, 0.02)
	assert.InDelta(t, 3.4, first.EndSeconds-first.StartSeconds, 0.05)

	// Scene tracks line up end to end in the master.
	closing := result.Scenes[1]
	assert.InDelta(t, opening.DurationSeconds, closing.StartSeconds, 1e-9)
	assert.InDelta(t, opening.DurationSeconds+closing.DurationSeconds, result.TotalDuration, 1e-9)
	assert.InDelta(t, 9.2, result.TotalDuration, 0.1)

	// Artifacts: master, scene tracks, retained clips, manifest.
	assert.FileExists(t, result.MasterPath)
	assert.FileExists(t, filepath.Join(outputDir, "scenes", "opening.wav"))
	assert.FileExists(t, filepath.Join(outputDir, "scenes", "closing.wav"))
	assert.FileExists(t, filepath.Join(outputDir, "clips", "opening_000.wav"))
	assert.FileExists(t, filepath.Join(outputDir, "clips", "opening_001.wav"))
	assert.FileExists(t, filepath.Join(outputDir, "manifest.yaml"))

	master, err := audio.ReadWAV(result.MasterPath)
	require.NoError(t, err)
	assert.InDelta(t, result.TotalDuration, audio.Duration(master), 1e-3)
}

func TestRunPreservesClauseOrder(t *testing.T) {
	cfg := testConfig()
	cfg.RetainClips = false
	synth := &fakeSynth{durations: map[string]float64{
		"One.":   0.1,
		"Two.":   0.2,
		"Three.": 0.3,
		"Four.":  0.4,
		"Five.":  0.5,
		"Six.":   0.6,
	}}
	orch, err := New(cfg, synth, nil)
	require.NoError(t, err)

	scenes := mustScenes(t, "One. Two. Three. Four. Five. Six.")

	result, err := orch.Run(context.Background(), scenes, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Scenes, 1)

	clauses := result.Scenes[0].Clauses
	require.Len(t, clauses, 6)
	wantText := []string{"One.", "Two.", "Three.", "Four.", "Five.", "Six."}
	for i, clause := range clauses {
		assert.Equal(t, wantText[i], clause.Text)
		assert.Equal(t, i, clause.Index)
		// Span length reflects this clause's own speech, proving results
		// landed in their original slots despite concurrent synthesis.
		speech := synth.durations[clause.Text]
		assert.InDelta(t, speech+1.5, clause.EndSeconds-clause.StartSeconds, 0.05)
	}
}

func TestRunEmptyScenes(t *testing.T) {
	orch, err := New(testConfig(), &fakeSynth{}, nil)
	require.NoError(t, err)

	outputDir := t.TempDir()
	result, err := orch.Run(context.Background(), nil, outputDir)
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FailureInvalidInput, perr.Category)
	assert.Equal(t, StateFailed, result.State)
	assert.NoFileExists(t, filepath.Join(outputDir, "master.wav"))
}

func TestRunProviderFailure(t *testing.T) {
	synth := &fakeSynth{err: &elevenlabs.SynthesisError{StatusCode: http.StatusServiceUnavailable, Message: "down"}}
	orch, err := New(testConfig(), synth, nil)
	require.NoError(t, err)

	outputDir := t.TempDir()
	result, err := orch.Run(context.Background(), mustScenes(t, "Breathe."), outputDir)
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FailureProvider, perr.Category)
	assert.Equal(t, "scene_1", perr.SceneID)
	assert.Equal(t, 0, perr.ClauseIndex)
	assert.Equal(t, StateFailed, result.State)

	// A failed request leaves a manifest but never a partial master.
	assert.NoFileExists(t, filepath.Join(outputDir, "master.wav"))
	assert.FileExists(t, filepath.Join(outputDir, "manifest.yaml"))
}

func TestRetryableSynthesis(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limited", err: &elevenlabs.SynthesisError{StatusCode: 429}, want: true},
		{name: "server error", err: &elevenlabs.SynthesisError{StatusCode: 503}, want: true},
		{name: "bad request", err: &elevenlabs.SynthesisError{StatusCode: 400}, want: false},
		{name: "unauthorized", err: &elevenlabs.SynthesisError{StatusCode: 401}, want: false},
		{name: "transport failure", err: assert.AnError, want: true},
		{name: "canceled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryableSynthesis(tt.err))
		})
	}
}

func TestSynthesisCategory(t *testing.T) {
	assert.Equal(t, FailureInvalidInput, synthesisCategory(&elevenlabs.SynthesisError{StatusCode: 400}))
	assert.Equal(t, FailureProvider, synthesisCategory(&elevenlabs.SynthesisError{StatusCode: 503}))
	assert.Equal(t, FailureInternal, synthesisCategory(context.Canceled))
	assert.Equal(t, FailureProvider, synthesisCategory(assert.AnError))
}

// On multi-scene requests a later scene re-enters segmentation after an
// earlier scene was already corrected; the recorded state must keep the
// furthest stage instead of sliding back.
func TestAdvanceKeepsFurthestState(t *testing.T) {
	res := &Result{State: StateReceived}
	for _, s := range []State{StateSplit, StateSegmenting, StateSynthesizing, StateCorrecting} {
		res.advance(s)
	}
	assert.Equal(t, StateCorrecting, res.State)

	// Second scene starting over must not regress the request.
	res.advance(StateSegmenting)
	assert.Equal(t, StateCorrecting, res.State)
	res.advance(StateSynthesizing)
	assert.Equal(t, StateCorrecting, res.State)

	res.advance(StateStitching)
	assert.Equal(t, StateStitching, res.State)
	res.advance(StateDone)
	assert.Equal(t, StateDone, res.State)
}

func TestUniqueSceneIDs(t *testing.T) {
	scenes := []script.Scene{{ID: "calm"}, {ID: "calm"}, {ID: "calm"}, {ID: "other"}}
	uniqueSceneIDs(scenes)
	assert.Equal(t, []string{"calm", "calm_2", "calm_3", "other"},
		[]string{scenes[0].ID, scenes[1].ID, scenes[2].ID, scenes[3].ID})
}

func TestWriteManifest(t *testing.T) {
	res := &Result{
		RequestID: "req-1",
		State:     StateDone,
		OutputDir: t.TempDir(),
		Warnings:  []string{"one warning"},
	}
	require.NoError(t, writeManifest(res, config.Default()))

	data, err := os.ReadFile(filepath.Join(res.OutputDir, "manifest.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "requestId: req-1")
	assert.Contains(t, string(data), "state: done")
	assert.Contains(t, string(data), "one warning")
}
