package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "eleven_multilingual_v2", cfg.ModelID)
	assert.Equal(t, 22050, cfg.SampleRate)
	assert.Equal(t, 1.5, cfg.DefaultPauseSeconds)
	assert.Equal(t, 60, cfg.PauseToleranceMS)
	assert.Equal(t, 0.2, cfg.ReviewThresholdSeconds)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	require.NoError(t, cfg.Validate())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
voiceId: voice-123
defaultPauseSeconds: 2.0
maxConcurrent: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "voice-123", cfg.VoiceID)
	assert.Equal(t, 2.0, cfg.DefaultPauseSeconds)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	// Untouched fields keep their defaults.
	assert.Equal(t, 22050, cfg.SampleRate)
	assert.Equal(t, 0.5, cfg.CommaPauseSeconds)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unsupported format", content: "audioFormat: mp3"},
		{name: "zero sample rate", content: "sampleRate: 0"},
		{name: "negative tolerance", content: "pauseToleranceMs: -10"},
		{name: "zero concurrency", content: "maxConcurrent: 0"},
		{name: "zero rate limit", content: "rateLimitPerMin: 0"},
		{name: "negative rate limit", content: "rateLimitPerMin: -5"},
		{name: "negative pause default", content: "defaultPauseSeconds: -1"},
		{name: "not yaml", content: "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

// A zero request budget would give the pipeline a rate limiter that never
// refills, so the first synthesis call would block forever. Validation has
// to reject it before a run starts.
func TestValidateRejectsZeroRateLimit(t *testing.T) {
	cfg := Default()
	cfg.RateLimitPerMin = 0
	assert.ErrorContains(t, cfg.Validate(), "rateLimitPerMin")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPauseToleranceSeconds(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.06, cfg.PauseToleranceSeconds())
}
