package script

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// structuredScript is the YAML layout for pre-split scene input. It
// bypasses the header heuristic; scene boundaries are explicit.
type structuredScript struct {
	Scenes []struct {
		ID         string  `yaml:"id"`
		Title      string  `yaml:"title"`
		Text       string  `yaml:"text"`
		PauseAfter float64 `yaml:"pauseAfter"`
	} `yaml:"scenes"`
}

// LoadScenesYAML reads a structured scene file. Each scene's text goes
// through the same normalization as plain-script scenes, so trailing pause
// annotations behave identically in both input modes.
func LoadScenesYAML(path string) ([]Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenes file: %w", err)
	}

	var doc structuredScript
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenes file: %w", err)
	}

	var scenes []Scene
	for i, s := range doc.Scenes {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		id := strings.TrimSpace(s.ID)
		if id == "" {
			id = sceneID(s.Title, i+1)
		}
		scene, err := BuildScene(id, s.Title, s.Text)
		if err != nil {
			return nil, err
		}
		// An explicit pauseAfter wins over a trailing annotation.
		if s.PauseAfter > 0 {
			scene.PauseAfter = s.PauseAfter
		}
		if scene.RawText == "" && scene.PauseAfter == 0 {
			continue
		}
		scenes = append(scenes, scene)
	}

	if len(scenes) == 0 {
		return nil, ErrEmptyScript
	}
	return scenes, nil
}
