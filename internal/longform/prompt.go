package longform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadPromptTemplate reads a prompt override from disk. YAML files carry
// the text under a top-level "prompt" key; any other extension is used
// verbatim. An empty path means no override.
func loadPromptTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var promptData struct {
			Prompt string `yaml:"prompt"`
		}
		if err := yaml.Unmarshal(data, &promptData); err != nil {
			return "", fmt.Errorf("failed to parse prompt template: %w", err)
		}
		if strings.TrimSpace(promptData.Prompt) == "" {
			return "", fmt.Errorf("prompt template %s has no prompt field", path)
		}
		return promptData.Prompt, nil
	}

	return string(data), nil
}
