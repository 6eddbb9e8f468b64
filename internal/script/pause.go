// Package script turns raw narration scripts into Scene records: it strips
// inline pause annotations and partitions the text into named scenes.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// sentenceEndings are the characters that terminate a spoken sentence,
// including the Devanagari danda.
const sentenceEndings = ".?!।"

// pauseLabelPattern matches the unit word of a pause annotation.
const pauseLabelPattern = `(?:sec(?:onds?)?|secs?|s)`

var (
	// pauseAnnotationRe matches a full pause annotation such as "(5 sec)",
	// "(10 seconds)" or "*(2.5 sec)*". The duration may precede or follow
	// the unit word.
	pauseAnnotationRe = regexp.MustCompile(
		`(?i)\*?\(\s*(?:(?P<pause>\d+(?:\.\d+)?)\s*` + pauseLabelPattern +
			`\b|` + pauseLabelPattern + `\s+(?P<pauseAlt>\d+(?:\.\d+)?))\s*\)\*?`)

	// pauseCandidateRe matches anything that is shaped like a pause
	// annotation, including ones whose duration token is not a valid
	// number. Used to reject malformed durations instead of silently
	// passing them to the synthesizer.
	pauseCandidateRe = regexp.MustCompile(
		`(?i)\*?\(\s*(?:(?P<tok>[0-9][0-9.]*)\s*` + pauseLabelPattern +
			`\b|` + pauseLabelPattern + `\s+(?P<tokAlt>[0-9][0-9.]*))\s*\)\*?`)
)

// PauseMark records a pause annotation found in narration text. Offset is
// the rune position in the cleaned text where the annotation used to sit.
type PauseMark struct {
	Offset  int
	Seconds float64
}

// MalformedAnnotationError reports a pause annotation whose duration token
// could not be parsed as a number.
type MalformedAnnotationError struct {
	Token  string
	Offset int
}

func (e *MalformedAnnotationError) Error() string {
	return fmt.Sprintf("malformed pause annotation %q at offset %d", e.Token, e.Offset)
}

// ParsePauseAnnotations removes every recognized pause annotation from text
// and reports where each one occurred and what duration it specified.
// Bracketed content that does not look like a pause annotation is left
// untouched. A pause-shaped annotation with an invalid duration token is an
// error, never a silent default.
func ParsePauseAnnotations(text string) (string, []PauseMark, error) {
	if err := checkAnnotations(text); err != nil {
		return "", nil, err
	}

	var (
		clean strings.Builder
		marks []PauseMark
		last  int
	)

	for _, loc := range pauseAnnotationRe.FindAllStringSubmatchIndex(text, -1) {
		clean.WriteString(text[last:loc[0]])
		seconds := annotationSeconds(text, loc)
		marks = append(marks, PauseMark{
			Offset:  len([]rune(clean.String())),
			Seconds: seconds,
		})
		last = loc[1]
	}
	clean.WriteString(text[last:])

	return clean.String(), marks, nil
}

// checkAnnotations rejects pause-shaped annotations whose duration token is
// numerically invalid (e.g. "(1.2.3 sec)").
func checkAnnotations(text string) error {
	for _, loc := range pauseCandidateRe.FindAllStringSubmatchIndex(text, -1) {
		token := submatch(text, loc, 1)
		if token == "" {
			token = submatch(text, loc, 2)
		}
		if token == "" {
			continue
		}
		if _, err := strconv.ParseFloat(token, 64); err != nil {
			return &MalformedAnnotationError{Token: text[loc[0]:loc[1]], Offset: loc[0]}
		}
	}
	return nil
}

// annotationSeconds extracts the duration from a matched annotation.
// checkAnnotations has already guaranteed the token parses.
func annotationSeconds(text string, loc []int) float64 {
	token := submatch(text, loc, 1)
	if token == "" {
		token = submatch(text, loc, 2)
	}
	seconds, _ := strconv.ParseFloat(token, 64)
	return seconds
}

// submatch returns the n-th capture group of a FindAllStringSubmatchIndex
// entry, or "" when the group did not participate in the match.
func submatch(text string, loc []int, n int) string {
	start, end := loc[2*n], loc[2*n+1]
	if start < 0 || end < 0 {
		return ""
	}
	return text[start:end]
}

// HasPauseAnnotation reports whether text contains a recognized pause
// annotation.
func HasPauseAnnotation(text string) bool {
	return pauseAnnotationRe.MatchString(text)
}

// IsPauseAnnotationOnly reports whether text consists solely of a pause
// annotation (plus surrounding whitespace).
func IsPauseAnnotationOnly(text string) bool {
	stripped := strings.TrimSpace(pauseAnnotationRe.ReplaceAllString(text, ""))
	return stripped == "" && HasPauseAnnotation(text)
}

// EndsWithSentenceTerminator reports whether the last non-space rune of text
// is one of the sentence-terminating characters.
func EndsWithSentenceTerminator(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	return strings.ContainsRune(sentenceEndings, runes[len(runes)-1])
}
