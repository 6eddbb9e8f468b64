// Package config holds the explicit job configuration for the narration
// pipeline. Every threshold and tolerance used by the audio stages lives
// here so components can be constructed and tested with known values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains all tunable parameters for a narration job
type Config struct {
	// Synthesis
	VoiceID        string `yaml:"voiceId"`        // ElevenLabs voice identifier
	ModelID        string `yaml:"modelId"`        // ElevenLabs model (default: "eleven_multilingual_v2")
	SampleRate     int    `yaml:"sampleRate"`     // PCM sample rate requested from the provider (default: 22050)
	AudioFormat    string `yaml:"audioFormat"`    // Output container format (default: "wav")
	RetainClips    bool   `yaml:"retainClips"`    // Keep per-clause WAV files in the output folder
	SynthTimeoutMS int    `yaml:"synthTimeoutMs"` // Per-call synthesis timeout (default: 240000)

	// Segmentation
	DefaultPauseSeconds float64 `yaml:"defaultPauseSeconds"` // Pause after sentence terminators (default: 1.5)
	CommaPauseSeconds   float64 `yaml:"commaPauseSeconds"`   // Pause after a trailing comma (default: 0.5)
	MaxHeaderLength     int     `yaml:"maxHeaderLength"`     // Scene header length heuristic (default: 60)
	UseLLMSegmentation  bool    `yaml:"useLlmSegmentation"`  // Consult the language model for clause plans
	SegmentationModel   string  `yaml:"segmentationModel"`   // OpenAI model for segmentation (default: "gpt-4o")
	SegmentationPrompt  string  `yaml:"segmentationPrompt"`  // Optional path to a prompt template file
	LLMTimeoutMS        int     `yaml:"llmTimeoutMs"`        // Per-call language model timeout (default: 120000)

	// Silence analysis and splicing
	SilenceThresholdDBFS   float64 `yaml:"silenceThresholdDbfs"`   // Windows below this level count as silence (default: -40)
	SilenceWindowMS        int     `yaml:"silenceWindowMs"`        // Analysis window size (default: 10)
	PauseToleranceMS       int     `yaml:"pauseToleranceMs"`       // Accepted deviation from target pause (default: 60)
	UseSpliceReview        bool    `yaml:"useSpliceReview"`        // Consult the language model on borderline pauses
	ReviewThresholdSeconds float64 `yaml:"reviewThresholdSeconds"` // Deviation that triggers splice review (default: 0.2)
	AdjustBoundSeconds     float64 `yaml:"adjustBoundSeconds"`     // Max validator adjustment around the target (default: 0.1)
	SpliceReviewPrompt     string  `yaml:"spliceReviewPrompt"`     // Optional path to a prompt template file

	// Stitching
	CrossfadeMS        int     `yaml:"crossfadeMs"`        // Fade length at scene boundaries (default: 100)
	NormalizePeakDBFS  float64 `yaml:"normalizePeakDbfs"`  // Master peak normalization target (default: -1)
	DisableNormalize   bool    `yaml:"disableNormalize"`   // Skip the final normalization pass
	ScenePauseFallback float64 `yaml:"scenePauseFallback"` // Scene boundary silence when no annotation (default: 0)

	// Concurrency and retries
	MaxConcurrent   int `yaml:"maxConcurrent"`   // Parallel synthesis calls within a scene (default: 4)
	RateLimitPerMin int `yaml:"rateLimitPerMin"` // Provider requests per minute (default: 60)
	MaxRetries      int `yaml:"maxRetries"`      // Attempts per provider call (default: 3)
}

// Default returns a configuration populated with the built-in defaults
func Default() *Config {
	return &Config{
		ModelID:                "eleven_multilingual_v2",
		SampleRate:             22050,
		AudioFormat:            "wav",
		SynthTimeoutMS:         240000,
		DefaultPauseSeconds:    1.5,
		CommaPauseSeconds:      0.5,
		MaxHeaderLength:        60,
		SegmentationModel:      "gpt-4o",
		LLMTimeoutMS:           120000,
		SilenceThresholdDBFS:   -40,
		SilenceWindowMS:        10,
		PauseToleranceMS:       60,
		ReviewThresholdSeconds: 0.2,
		AdjustBoundSeconds:     0.1,
		CrossfadeMS:            100,
		NormalizePeakDBFS:      -1,
		MaxConcurrent:          4,
		RateLimitPerMin:        60,
		MaxRetries:             3,
	}
}

// Load reads a YAML job file and merges it over the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sampleRate must be positive, got %d", c.SampleRate)
	}
	if c.AudioFormat != "wav" {
		return fmt.Errorf("unsupported audio format %q (only \"wav\" is built in)", c.AudioFormat)
	}
	if c.SilenceWindowMS <= 0 {
		return fmt.Errorf("silenceWindowMs must be positive, got %d", c.SilenceWindowMS)
	}
	if c.PauseToleranceMS < 0 {
		return fmt.Errorf("pauseToleranceMs must not be negative, got %d", c.PauseToleranceMS)
	}
	if c.DefaultPauseSeconds < 0 || c.CommaPauseSeconds < 0 {
		return fmt.Errorf("pause defaults must not be negative")
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("maxConcurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("rateLimitPerMin must be positive, got %d", c.RateLimitPerMin)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("maxRetries must be positive, got %d", c.MaxRetries)
	}
	if c.AdjustBoundSeconds < 0 {
		return fmt.Errorf("adjustBoundSeconds must not be negative")
	}
	return nil
}

// PauseToleranceSeconds returns the splice tolerance in seconds
func (c *Config) PauseToleranceSeconds() float64 {
	return float64(c.PauseToleranceMS) / 1000.0
}
