package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/narraflow/narraflow/internal/script"
	chatgpt "github.com/narraflow/narraflow/internal/services/chatgpt"
	"github.com/narraflow/narraflow/internal/utils"
)

// defaultSegmentationPrompt instructs the model to split without rewriting.
const defaultSegmentationPrompt = `You segment meditation narration into clauses for speech synthesis.
You receive a JSON payload with scene_text and a fallback_segments plan.
Split the scene text into clauses at natural spoken boundaries. Preserve
every word exactly: never add, drop, reorder or rephrase anything. Report
the pause in seconds that should follow each clause, honoring any pause
hints present in the fallback plan. Respond with a JSON object of the form
{"segments": [{"text": "...", "pause_after_seconds": 1.5}]} and nothing else.`

// markupNormalizeRe strips whitespace and lightweight markup so two texts
// can be compared word-for-word.
var markupNormalizeRe = regexp.MustCompile("[\\s*_`~\u200b\u200c\u200d]+")

// Segmenter produces clause plans for scenes. When a ChatGPT service is
// configured it is tried first; its output must pass the reconstruction
// check or the deterministic fallback plan is used instead.
type Segmenter struct {
	llm      chatgpt.ChatGPTServicer
	model    string
	prompt   string
	timeout  int
	defaults Defaults
}

// Plan is the accepted clause list for one scene plus which strategy
// produced it.
type Plan struct {
	Clauses []Clause
	Source  string // "agent" or "fallback"
}

// segmentationPlan mirrors the JSON schema the model must return.
type segmentationPlan struct {
	Segments []Clause `json:"segments"`
}

// NewSegmenter creates a segmenter. llm may be nil, in which case only the
// deterministic strategy runs. prompt overrides the built-in instruction
// when non-empty.
func NewSegmenter(llm chatgpt.ChatGPTServicer, model, prompt string, timeoutMS int, defaults Defaults) *Segmenter {
	if prompt == "" {
		prompt = defaultSegmentationPrompt
	}
	return &Segmenter{
		llm:      llm,
		model:    model,
		prompt:   prompt,
		timeout:  timeoutMS,
		defaults: defaults,
	}
}

// Segment returns the clause plan for a scene. The returned plan always
// satisfies the reconstruction invariant against the scene's narration.
func (s *Segmenter) Segment(ctx context.Context, scene script.Scene) (Plan, error) {
	fallback, err := Fallback(scene.RawText, s.defaults)
	if err != nil {
		return Plan{}, err
	}

	if len(fallback) == 0 {
		if strings.TrimSpace(scene.RawText) == "" {
			return Plan{Source: "fallback"}, nil
		}
		return Plan{}, fmt.Errorf("scene %s: %w", scene.ID, ErrUnrecoverable)
	}

	if s.llm == nil {
		return Plan{Clauses: fallback, Source: "fallback"}, nil
	}

	candidate, err := s.requestPlan(ctx, scene, fallback)
	if err != nil {
		utils.LogWarning("Clause segmentation agent failed for scene %s: %v", scene.ID, err)
		return Plan{Clauses: fallback, Source: "fallback"}, nil
	}

	if !planMatches(fallback, candidate) {
		utils.LogWarning("Clause agent altered text content for scene %s; using fallback", scene.ID)
		return Plan{Clauses: fallback, Source: "fallback"}, nil
	}

	for i := range candidate {
		candidate[i].Order = i
	}
	return Plan{Clauses: candidate, Source: "agent"}, nil
}

// requestPlan asks the model for a clause plan and decodes its JSON reply.
func (s *Segmenter) requestPlan(ctx context.Context, scene script.Scene, fallback []Clause) ([]Clause, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"scene_id":          scene.ID,
		"scene_text":        scene.RawText,
		"fallback_segments": fallback,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scene payload: %w", err)
	}

	messages := []chatgpt.ChatMessage{
		{Role: "system", Content: s.prompt},
		{Role: "user", Content: string(payload)},
	}

	content, err := s.llm.GetContent(ctx, messages, chatgpt.CompletionOptions{
		Model:            s.model,
		Temperature:      0,
		RequestTimeoutMS: s.timeout,
		JSONResponse:     true,
	})
	if err != nil {
		return nil, err
	}

	var plan segmentationPlan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil, fmt.Errorf("agent output was not valid JSON: %w", err)
	}
	if len(plan.Segments) == 0 {
		return nil, fmt.Errorf("agent returned no segments")
	}

	return plan.Segments, nil
}

// planMatches checks the reconstruction invariant: the candidate's
// concatenated text must reproduce the fallback's, modulo whitespace and
// markup, and no pause may be negative.
func planMatches(expected, candidate []Clause) bool {
	if normalizedText(candidate) != normalizedText(expected) {
		return false
	}
	for _, clause := range candidate {
		if clause.PauseAfter < 0 {
			return false
		}
	}
	return true
}

// normalizedText joins clause texts and strips whitespace and markup for
// word-for-word comparison.
func normalizedText(clauses []Clause) string {
	var combined strings.Builder
	for _, clause := range clauses {
		combined.WriteString(strings.TrimSpace(clause.Text))
	}
	return markupNormalizeRe.ReplaceAllString(combined.String(), "")
}
