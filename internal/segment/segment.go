// Package segment breaks a scene's narration into ordered clauses, each
// carrying the pause that should follow it. A language-model plan is used
// when available and valid; a deterministic sentence split is the always
// available fallback.
package segment

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/narraflow/narraflow/internal/script"
)

// ErrUnrecoverable is returned when neither segmentation strategy produced
// any clauses for non-empty scene text. The deterministic fallback is total,
// so this guards against programming errors rather than input.
var ErrUnrecoverable = errors.New("segmentation produced no clauses for non-empty scene text")

// Clause is the atomic unit of synthesis: spoken text plus the silence that
// follows it. Order is the clause's position within its scene.
type Clause struct {
	Text       string  `json:"text"`
	PauseAfter float64 `json:"pause_after_seconds"`
	Order      int     `json:"-"`
}

// Defaults are the pause durations assigned when no explicit annotation is
// present.
type Defaults struct {
	SentencePause float64 // After ".", "?", "!" or "।"
	CommaPause    float64 // After a trailing comma
}

const sentenceTerminators = ".?!।"

// boundary marks a clause split point in the cleaned scene text.
type boundary struct {
	offset  int     // rune offset, exclusive end of the clause
	pause   float64 // annotation value, when explicit
	hasMark bool
}

// Fallback splits scene text into clauses on sentence terminators and
// explicit pause annotations. An annotation always ends a clause at that
// point; its value overrides the terminator default for that clause.
func Fallback(sceneText string, d Defaults) ([]Clause, error) {
	clean, marks, err := script.ParsePauseAnnotations(sceneText)
	if err != nil {
		return nil, err
	}

	runes := []rune(clean)
	bounds := terminatorBoundaries(runes)
	bounds = mergeMarks(runes, bounds, marks)

	var clauses []Clause
	start := 0
	for _, b := range bounds {
		text := strings.TrimSpace(string(runes[start:b.offset]))
		start = b.offset
		if text == "" {
			// An annotation with no preceding text applies its pause to
			// the previous clause; adjacent annotations keep the last one.
			if b.hasMark && len(clauses) > 0 {
				clauses[len(clauses)-1].PauseAfter = b.pause
			}
			continue
		}
		clauses = append(clauses, Clause{
			Text:       text,
			PauseAfter: clausePause(text, b, d),
		})
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		clauses = append(clauses, Clause{
			Text:       rest,
			PauseAfter: clausePause(rest, boundary{}, d),
		})
	}

	for i := range clauses {
		clauses[i].Order = i
	}
	return clauses, nil
}

// terminatorBoundaries returns a boundary after every run of sentence
// terminators.
func terminatorBoundaries(runes []rune) []boundary {
	var bounds []boundary
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(sentenceTerminators, runes[i]) {
			continue
		}
		for i+1 < len(runes) && strings.ContainsRune(sentenceTerminators, runes[i+1]) {
			i++
		}
		bounds = append(bounds, boundary{offset: i + 1})
	}
	return bounds
}

// mergeMarks folds annotation positions into the boundary list. A mark that
// directly follows a terminator boundary (whitespace only between) sets that
// boundary's pause instead of opening a zero-length clause; a mark in open
// text becomes its own boundary.
func mergeMarks(runes []rune, bounds []boundary, marks []script.PauseMark) []boundary {
	for _, mark := range marks {
		attached := false
		for i := range bounds {
			if onlyWhitespaceBetween(runes, bounds[i].offset, mark.Offset) {
				// Multiple annotations adjacent to the same sentence: the
				// last one found wins.
				bounds[i].pause = mark.Seconds
				bounds[i].hasMark = true
				attached = true
				break
			}
		}
		if !attached {
			bounds = append(bounds, boundary{offset: mark.Offset, pause: mark.Seconds, hasMark: true})
		}
	}

	sort.Slice(bounds, func(i, j int) bool { return bounds[i].offset < bounds[j].offset })
	return bounds
}

// onlyWhitespaceBetween reports whether the rune span [from, to) holds
// nothing but whitespace.
func onlyWhitespaceBetween(runes []rune, from, to int) bool {
	if from > to || to > len(runes) {
		return false
	}
	for _, r := range runes[from:to] {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// clausePause selects the pause for a clause: explicit annotation first,
// then the terminator default, then the comma default, otherwise zero.
func clausePause(text string, b boundary, d Defaults) float64 {
	if b.hasMark {
		return b.pause
	}
	runes := []rune(text)
	last := runes[len(runes)-1]
	if strings.ContainsRune(sentenceTerminators, last) {
		return d.SentencePause
	}
	if last == ',' {
		return d.CommaPause
	}
	return 0
}
