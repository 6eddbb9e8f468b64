package longform

import (
	"context"
	"encoding/json"
	"math"

	"github.com/narraflow/narraflow/internal/audio"
	"github.com/narraflow/narraflow/internal/segment"
	chatgpt "github.com/narraflow/narraflow/internal/services/chatgpt"
	"github.com/narraflow/narraflow/internal/utils"
)

// defaultReviewPrompt instructs the model to propose pause adjustments for
// flagged clauses only.
const defaultReviewPrompt = `You review pause timing in synthesized meditation narration.
You receive a JSON payload listing clauses whose measured trailing pause
deviates noticeably from its target. For each listed clause decide the
pause, in seconds, that will sound most natural, staying close to the
target. Respond with a JSON object of the form
{"adjustments": [{"clause_index": 0, "desired_pause_seconds": 1.4}]}
and nothing else. Clauses you leave out keep their target pause.`

// pauseUpdateEpsilon ignores adjustments too small to matter.
const pauseUpdateEpsilon = 1e-3

// Reviewer consults the language model about clauses whose measured pause
// deviates from its target by more than the review threshold. The model may
// only nudge a pause within the configured bound; everything else keeps the
// literal target.
type Reviewer struct {
	llm       chatgpt.ChatGPTServicer
	model     string
	prompt    string
	timeout   int
	threshold float64
	bound     float64
}

// clauseMetric is one flagged clause in the review payload.
type clauseMetric struct {
	ClauseIndex          int     `json:"clause_index"`
	Text                 string  `json:"text"`
	TargetPauseSeconds   float64 `json:"target_pause_seconds"`
	ObservedPauseSeconds float64 `json:"observed_pause_seconds"`
}

// reviewReply mirrors the JSON schema the model must return.
type reviewReply struct {
	Adjustments []struct {
		ClauseIndex         int     `json:"clause_index"`
		DesiredPauseSeconds float64 `json:"desired_pause_seconds"`
	} `json:"adjustments"`
}

// NewReviewer creates a reviewer. prompt overrides the built-in instruction
// when non-empty.
func NewReviewer(llm chatgpt.ChatGPTServicer, model, prompt string, timeoutMS int, threshold, bound float64) *Reviewer {
	if prompt == "" {
		prompt = defaultReviewPrompt
	}
	return &Reviewer{
		llm:       llm,
		model:     model,
		prompt:    prompt,
		timeout:   timeoutMS,
		threshold: threshold,
		bound:     bound,
	}
}

// Review returns the per-clause pause targets to correct toward. It starts
// from the configured targets and folds in clamped model adjustments for
// clauses whose observed pause deviates beyond the threshold. Review is
// advisory: any failure falls back to the unmodified targets.
func (r *Reviewer) Review(ctx context.Context, sceneID string, clauses []segment.Clause, targets, observed []float64) []float64 {
	adjusted := make([]float64, len(targets))
	copy(adjusted, targets)

	flagged := make(map[int]bool)
	var metrics []clauseMetric
	for i := range targets {
		if math.Abs(observed[i]-targets[i]) < r.threshold {
			continue
		}
		flagged[i] = true
		metrics = append(metrics, clauseMetric{
			ClauseIndex:          i,
			Text:                 clauses[i].Text,
			TargetPauseSeconds:   targets[i],
			ObservedPauseSeconds: observed[i],
		})
	}
	if len(metrics) == 0 {
		return adjusted
	}

	utils.LogVerbose("Splice review for scene %s: %d clause(s) flagged", sceneID, len(metrics))

	payload, err := json.Marshal(map[string]interface{}{
		"scene_id": sceneID,
		"clauses":  metrics,
	})
	if err != nil {
		utils.LogWarning("Splice review skipped for scene %s: %v", sceneID, err)
		return adjusted
	}

	messages := []chatgpt.ChatMessage{
		{Role: "system", Content: r.prompt},
		{Role: "user", Content: string(payload)},
	}

	content, err := r.llm.GetContent(ctx, messages, chatgpt.CompletionOptions{
		Model:            r.model,
		Temperature:      0,
		RequestTimeoutMS: r.timeout,
		JSONResponse:     true,
	})
	if err != nil {
		utils.LogWarning("Splice review failed for scene %s: %v", sceneID, err)
		return adjusted
	}

	var reply reviewReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		utils.LogWarning("Splice review for scene %s returned invalid JSON: %v", sceneID, err)
		return adjusted
	}

	for _, adj := range reply.Adjustments {
		i := adj.ClauseIndex
		if i < 0 || i >= len(adjusted) || !flagged[i] {
			continue
		}
		clamped := audio.ClampAdjustment(targets[i], adj.DesiredPauseSeconds, r.bound)
		if math.Abs(clamped-targets[i]) <= pauseUpdateEpsilon {
			continue
		}
		utils.LogVerbose("Scene %s clause %d: pause target %.3fs -> %.3fs", sceneID, i, targets[i], clamped)
		adjusted[i] = clamped
	}

	return adjusted
}
