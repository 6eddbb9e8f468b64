package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrEmptyScript is returned when a script contains no narration at all
// (header-only or whitespace-only input).
var ErrEmptyScript = errors.New("script contains no narration content")

// Scene is a named unit of narration. RawText still carries clause-level
// pause annotations; the trailing scene-level annotation has already been
// lifted into PauseAfter.
type Scene struct {
	ID         string
	Title      string
	RawText    string
	PauseAfter float64
}

var sceneIDSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// sceneID derives a stable identifier from a header, falling back to the
// scene's position for headerless content.
func sceneID(title string, position int) string {
	slug := sceneIDSanitizeRe.ReplaceAllString(strings.ToLower(title), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return fmt.Sprintf("scene_%d", position)
	}
	return slug
}

// isSceneHeader reports whether a line starts a new scene. A header is
// non-blank, reasonably short, does not end in a sentence terminator, and
// is not a pause annotation.
func isSceneHeader(line string, maxLen int) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return false
	}
	if utf8.RuneCountInString(stripped) > maxLen {
		return false
	}
	if HasPauseAnnotation(stripped) {
		return false
	}
	return !EndsWithSentenceTerminator(stripped)
}

// SplitScenes partitions a raw script into ordered Scene records. Blank
// lines inside a scene are preserved as paragraph boundaries; they never
// start a new scene. A trailing pause annotation that sits on its own line,
// or ends an unterminated final line, becomes the scene's PauseAfter.
func SplitScenes(scriptText string, maxHeaderLen int) ([]Scene, error) {
	if err := checkAnnotations(scriptText); err != nil {
		return nil, err
	}

	var (
		scenes       []Scene
		currentTitle string
		currentLines []string
		haveScene    bool
	)

	flush := func() error {
		if !haveScene {
			return nil
		}
		body := strings.TrimSpace(strings.Join(currentLines, "\n"))
		if body == "" {
			return nil
		}
		scene, err := BuildScene(sceneID(currentTitle, len(scenes)+1), currentTitle, body)
		if err != nil {
			return err
		}
		scenes = append(scenes, scene)
		return nil
	}

	for _, rawLine := range strings.Split(scriptText, "\n") {
		line := strings.TrimSpace(rawLine)

		if line == "" {
			if haveScene && len(currentLines) > 0 {
				currentLines = append(currentLines, "")
			}
			continue
		}

		if isSceneHeader(line, maxHeaderLen) {
			if err := flush(); err != nil {
				return nil, err
			}
			currentTitle = line
			currentLines = nil
			haveScene = true
			continue
		}

		if !haveScene {
			// Headerless leading narration still forms a scene.
			currentTitle = ""
			haveScene = true
		}
		currentLines = append(currentLines, line)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	if len(scenes) == 0 {
		return nil, ErrEmptyScript
	}

	return scenes, nil
}

// BuildScene normalizes one scene's text, lifting a trailing scene-level
// pause annotation out of the narration. Structured scene input uses this
// too, so both input modes behave identically downstream.
func BuildScene(id, title, text string) (Scene, error) {
	if err := checkAnnotations(text); err != nil {
		return Scene{}, err
	}

	lines := strings.Split(strings.TrimRight(text, " \t\n"), "\n")
	pauseAfter := 0.0

	// Scan backward past blank lines to the last narration line.
	idx := len(lines) - 1
	for idx >= 0 && strings.TrimSpace(lines[idx]) == "" {
		idx--
	}

	if idx >= 0 {
		last := strings.TrimSpace(lines[idx])
		if IsPauseAnnotationOnly(last) {
			// The whole line is an annotation: scene-level pause.
			pauseAfter = lastAnnotationSeconds(last)
			lines = lines[:idx]
		} else if seconds, rest, ok := trailingAnnotation(last); ok && !containsSentenceTerminator(rest) {
			// Line-final annotation with no terminated clause before it on
			// the same line is attributed to the scene, not a clause.
			pauseAfter = seconds
			lines[idx] = rest
		}
	}

	raw := strings.TrimSpace(strings.Join(lines, "\n"))
	return Scene{
		ID:         id,
		Title:      title,
		RawText:    raw,
		PauseAfter: pauseAfter,
	}, nil
}

// trailingAnnotation splits a line into its final pause annotation and the
// preceding text, if the line ends with one.
func trailingAnnotation(line string) (seconds float64, rest string, ok bool) {
	locs := pauseAnnotationRe.FindAllStringSubmatchIndex(line, -1)
	if len(locs) == 0 {
		return 0, line, false
	}
	last := locs[len(locs)-1]
	if strings.TrimSpace(line[last[1]:]) != "" {
		return 0, line, false
	}
	return annotationSeconds(line, last), strings.TrimSpace(line[:last[0]]), true
}

// lastAnnotationSeconds returns the duration of the final annotation in a
// line known to contain at least one.
func lastAnnotationSeconds(line string) float64 {
	locs := pauseAnnotationRe.FindAllStringSubmatchIndex(line, -1)
	last := locs[len(locs)-1]
	return annotationSeconds(line, last)
}

func containsSentenceTerminator(text string) bool {
	return strings.ContainsAny(text, sentenceEndings)
}
