package longform

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/narraflow/narraflow/internal/config"
)

// manifestDoc is the on-disk manifest layout.
type manifestDoc struct {
	RequestID            string        `yaml:"requestId"`
	CreatedAt            string        `yaml:"createdAt"`
	State                State         `yaml:"state"`
	Failure              string        `yaml:"failure,omitempty"`
	SampleRate           int           `yaml:"sampleRate"`
	MasterPath           string        `yaml:"masterPath,omitempty"`
	TotalDurationSeconds float64       `yaml:"totalDurationSeconds"`
	Warnings             []string      `yaml:"warnings,omitempty"`
	Scenes               []SceneResult `yaml:"scenes"`
}

// writeManifest records the request outcome as YAML next to the audio
// artifacts.
func writeManifest(res *Result, cfg *config.Config) error {
	doc := manifestDoc{
		RequestID:            res.RequestID,
		CreatedAt:            time.Now().UTC().Format(time.RFC3339),
		State:                res.State,
		Failure:              res.Failure,
		SampleRate:           cfg.SampleRate,
		MasterPath:           res.MasterPath,
		TotalDurationSeconds: res.TotalDuration,
		Warnings:             res.Warnings,
		Scenes:               res.Scenes,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := filepath.Join(res.OutputDir, "manifest.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
