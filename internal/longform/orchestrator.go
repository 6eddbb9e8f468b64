// Package longform drives the narration pipeline end to end: clause
// segmentation, per-clause synthesis, pause correction and track stitching.
// One Run call turns a list of scenes into a master WAV plus a manifest
// describing every intermediate decision.
package longform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/narraflow/narraflow/internal/audio"
	"github.com/narraflow/narraflow/internal/config"
	"github.com/narraflow/narraflow/internal/script"
	"github.com/narraflow/narraflow/internal/segment"
	chatgpt "github.com/narraflow/narraflow/internal/services/chatgpt"
	"github.com/narraflow/narraflow/internal/services/elevenlabs"
	"github.com/narraflow/narraflow/internal/utils"
)

// State tracks a request through the pipeline.
type State string

// Request states, in pipeline order.
const (
	StateReceived     State = "received"
	StateSplit        State = "split"
	StateSegmenting   State = "segmenting"
	StateSynthesizing State = "synthesizing"
	StateCorrecting   State = "correcting"
	StateStitching    State = "stitching"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Failure categories.
const (
	FailureInvalidInput = "invalid_input"
	FailureProvider     = "provider_unavailable"
	FailureInternal     = "internal"
)

// PipelineError locates a failure within the request: its category, the
// scene it happened in and, for synthesis failures, the clause index.
type PipelineError struct {
	Category    string
	SceneID     string
	ClauseIndex int // -1 when the failure is not clause-scoped
	Err         error
}

func (e *PipelineError) Error() string {
	where := "request"
	if e.SceneID != "" {
		where = "scene " + e.SceneID
	}
	if e.ClauseIndex >= 0 {
		where = fmt.Sprintf("%s clause %d", where, e.ClauseIndex)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, where, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func failure(category, sceneID string, clauseIndex int, err error) *PipelineError {
	return &PipelineError{Category: category, SceneID: sceneID, ClauseIndex: clauseIndex, Err: err}
}

// stateRank orders the states so progress tracking can tell a later stage
// from an earlier one.
var stateRank = map[State]int{
	StateReceived:     0,
	StateSplit:        1,
	StateSegmenting:   2,
	StateSynthesizing: 3,
	StateCorrecting:   4,
	StateStitching:    5,
	StateDone:         6,
	StateFailed:       7,
}

// Result is the outcome of one narration request. Its scene and clause
// records double as the manifest content.
type Result struct {
	RequestID     string
	State         State
	Failure       string
	OutputDir     string
	MasterPath    string
	TotalDuration float64
	Warnings      []string
	Scenes        []SceneResult
}

// advance moves the request state forward. Later scenes re-enter earlier
// stages, so the recorded state keeps the furthest stage reached and never
// slides back.
func (r *Result) advance(s State) {
	if stateRank[s] > stateRank[r.State] {
		r.State = s
	}
}

// SceneResult describes one stitched scene track.
type SceneResult struct {
	SceneID           string         `yaml:"id"`
	Title             string         `yaml:"title,omitempty"`
	Segmentation      string         `yaml:"segmentation"`
	Path              string         `yaml:"path"`
	StartSeconds      float64        `yaml:"startSeconds"`
	DurationSeconds   float64        `yaml:"durationSeconds"`
	PauseAfterSeconds float64        `yaml:"pauseAfterSeconds"`
	Clauses           []ClauseResult `yaml:"clauses"`
}

// ClauseResult describes one synthesized and corrected clause. Offsets are
// relative to the scene start and include the trailing pause.
type ClauseResult struct {
	Index                int     `yaml:"index"`
	Text                 string  `yaml:"text"`
	StartSeconds         float64 `yaml:"startSeconds"`
	EndSeconds           float64 `yaml:"endSeconds"`
	TargetPauseSeconds   float64 `yaml:"targetPauseSeconds"`
	ObservedPauseSeconds float64 `yaml:"observedPauseSeconds"`
	FinalPauseSeconds    float64 `yaml:"finalPauseSeconds"`
	Action               string  `yaml:"action"`
	ClipPath             string  `yaml:"clip,omitempty"`
}

// Orchestrator owns the pipeline stages and their shared rate limiter.
// Synthesis runs concurrently within a scene; scenes run in order.
type Orchestrator struct {
	cfg       *config.Config
	tts       elevenlabs.Synthesizer
	segmenter *segment.Segmenter
	reviewer  *Reviewer
	limiter   *rate.Limiter
}

// New builds an orchestrator from the job configuration. llm may be nil;
// segmentation then always uses the deterministic strategy and splice
// review is disabled.
func New(cfg *config.Config, tts elevenlabs.Synthesizer, llm chatgpt.ChatGPTServicer) (*Orchestrator, error) {
	segPrompt, err := loadPromptTemplate(cfg.SegmentationPrompt)
	if err != nil {
		return nil, err
	}
	reviewPrompt, err := loadPromptTemplate(cfg.SpliceReviewPrompt)
	if err != nil {
		return nil, err
	}

	defaults := segment.Defaults{
		SentencePause: cfg.DefaultPauseSeconds,
		CommaPause:    cfg.CommaPauseSeconds,
	}
	var segLLM chatgpt.ChatGPTServicer
	if cfg.UseLLMSegmentation {
		segLLM = llm
	}

	o := &Orchestrator{
		cfg:       cfg,
		tts:       tts,
		segmenter: segment.NewSegmenter(segLLM, cfg.SegmentationModel, segPrompt, cfg.LLMTimeoutMS, defaults),
		limiter:   rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMin)/60.0), 1),
	}
	if cfg.UseSpliceReview && llm != nil {
		o.reviewer = NewReviewer(llm, cfg.SegmentationModel, reviewPrompt, cfg.LLMTimeoutMS,
			cfg.ReviewThresholdSeconds, cfg.AdjustBoundSeconds)
	}
	return o, nil
}

// Run executes the full pipeline over pre-split scenes and writes the
// master track, per-scene tracks and the manifest under outputDir. A
// failed request never leaves a partial master behind.
func (o *Orchestrator) Run(ctx context.Context, scenes []script.Scene, outputDir string) (*Result, error) {
	res := &Result{
		RequestID: uuid.New().String(),
		State:     StateReceived,
		OutputDir: outputDir,
	}
	utils.LogInfo("Starting narration request %s (%d scenes)", res.RequestID, len(scenes))

	if len(scenes) == 0 {
		return o.fail(res, failure(FailureInvalidInput, "", -1, script.ErrEmptyScript))
	}
	uniqueSceneIDs(scenes)

	if err := os.MkdirAll(filepath.Join(outputDir, "scenes"), 0755); err != nil {
		return o.fail(res, failure(FailureInternal, "", -1, err))
	}
	if o.cfg.RetainClips {
		if err := os.MkdirAll(filepath.Join(outputDir, "clips"), 0755); err != nil {
			return o.fail(res, failure(FailureInternal, "", -1, err))
		}
	}
	res.advance(StateSplit)

	tracks := make([]audio.SceneTrack, 0, len(scenes))
	offset := 0.0
	for _, scene := range scenes {
		sceneRes, track, perr := o.processScene(ctx, res, scene)
		if perr != nil {
			return o.fail(res, perr)
		}
		sceneRes.StartSeconds = offset
		offset += sceneRes.DurationSeconds
		res.Scenes = append(res.Scenes, sceneRes)
		tracks = append(tracks, track)
	}

	res.advance(StateStitching)
	utils.LogStage("stitch", "combining %d scene tracks into the master", len(tracks))
	master, err := audio.StitchMaster(tracks, o.cfg.CrossfadeMS, o.cfg.NormalizePeakDBFS, !o.cfg.DisableNormalize)
	if err != nil {
		return o.fail(res, failure(FailureInternal, "", -1, err))
	}

	masterPath := filepath.Join(outputDir, "master.wav")
	if err := audio.WriteWAV(masterPath, master.Buffer); err != nil {
		return o.fail(res, failure(FailureInternal, "", -1, err))
	}
	res.MasterPath = masterPath
	res.TotalDuration = master.TotalDuration
	res.advance(StateDone)

	if err := writeManifest(res, o.cfg); err != nil {
		return o.fail(res, failure(FailureInternal, "", -1, err))
	}

	utils.LogSuccess("Narration request %s complete: %.2fs master at %s",
		res.RequestID, res.TotalDuration, masterPath)
	return res, nil
}

// fail marks the request failed, records a best-effort manifest and returns
// the pipeline error.
func (o *Orchestrator) fail(res *Result, perr *PipelineError) (*Result, error) {
	res.State = StateFailed
	res.Failure = perr.Category
	utils.LogError("Narration request %s failed: %v", res.RequestID, perr)
	if werr := writeManifest(res, o.cfg); werr != nil {
		utils.LogWarning("Failed to write manifest for failed request: %v", werr)
	}
	return res, perr
}

// processScene runs segmentation, synthesis, pause correction and scene
// stitching for one scene.
func (o *Orchestrator) processScene(ctx context.Context, res *Result, scene script.Scene) (SceneResult, audio.SceneTrack, *PipelineError) {
	res.advance(StateSegmenting)
	utils.LogStage("segment", "scene %s", scene.ID)

	plan, err := o.segmenter.Segment(ctx, scene)
	if err != nil {
		return SceneResult{}, audio.SceneTrack{}, failure(segmentationCategory(err), scene.ID, -1, err)
	}
	if len(plan.Clauses) == 0 {
		return SceneResult{}, audio.SceneTrack{},
			failure(FailureInvalidInput, scene.ID, -1, fmt.Errorf("scene has no narration"))
	}
	utils.LogVerbose("Scene %s plan source: %s", scene.ID, plan.Source)

	res.advance(StateSynthesizing)
	utils.LogStage("synthesize", "scene %s: %d clauses", scene.ID, len(plan.Clauses))
	clips := make([]*gaudio.IntBuffer, len(plan.Clauses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrent)
	for i, clause := range plan.Clauses {
		i, clause := i, clause
		g.Go(func() error {
			raw, err := o.synthesize(gctx, clause.Text)
			if err != nil {
				return failure(synthesisCategory(err), scene.ID, i, err)
			}
			buf, err := audio.FromPCM16(raw, o.cfg.SampleRate)
			if err != nil {
				return failure(FailureProvider, scene.ID, i, err)
			}
			clips[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var perr *PipelineError
		if errors.As(err, &perr) {
			return SceneResult{}, audio.SceneTrack{}, perr
		}
		return SceneResult{}, audio.SceneTrack{}, failure(FailureInternal, scene.ID, -1, err)
	}

	res.advance(StateCorrecting)
	utils.LogStage("correct", "scene %s", scene.ID)
	silence := audio.SilenceParams{
		ThresholdDBFS: o.cfg.SilenceThresholdDBFS,
		WindowMS:      o.cfg.SilenceWindowMS,
	}
	targets := make([]float64, len(plan.Clauses))
	observed := make([]float64, len(clips))
	for i := range plan.Clauses {
		targets[i] = plan.Clauses[i].PauseAfter
		observed[i] = audio.TrailingSilence(clips[i], silence)
	}
	if o.reviewer != nil {
		targets = o.reviewer.Review(ctx, scene.ID, plan.Clauses, targets, observed)
	}

	tolerance := o.cfg.PauseToleranceSeconds()
	corrected := make([]*gaudio.IntBuffer, len(clips))
	clauseResults := make([]ClauseResult, len(clips))
	for i := range clips {
		buf, c := audio.CorrectPause(clips[i], targets[i], silence, tolerance)
		if c.Warning != "" {
			msg := fmt.Sprintf("scene %s clause %d: %s", scene.ID, i, c.Warning)
			utils.LogWarning("%s", msg)
			res.Warnings = append(res.Warnings, msg)
		}
		corrected[i] = buf
		clauseResults[i] = ClauseResult{
			Index:                i,
			Text:                 plan.Clauses[i].Text,
			TargetPauseSeconds:   c.Target,
			ObservedPauseSeconds: c.Observed,
			FinalPauseSeconds:    c.Final,
			Action:               c.Action,
		}
		if o.cfg.RetainClips {
			clipPath := filepath.Join(res.OutputDir, "clips", fmt.Sprintf("%s_%03d.wav", scene.ID, i))
			if err := audio.WriteWAV(clipPath, buf); err != nil {
				return SceneResult{}, audio.SceneTrack{}, failure(FailureInternal, scene.ID, i, err)
			}
			clauseResults[i].ClipPath = clipPath
		}
	}

	scenePause := scene.PauseAfter
	if scenePause == 0 {
		scenePause = o.cfg.ScenePauseFallback
	}
	track, err := audio.StitchScene(scene.ID, corrected, scenePause)
	if err != nil {
		return SceneResult{}, audio.SceneTrack{}, failure(FailureInternal, scene.ID, -1, err)
	}
	for i, s := range clauseSpans(track) {
		clauseResults[i].StartSeconds = s.start
		clauseResults[i].EndSeconds = s.end
	}

	scenePath := filepath.Join(res.OutputDir, "scenes", scene.ID+".wav")
	if err := audio.WriteWAV(scenePath, track.Buffer); err != nil {
		return SceneResult{}, audio.SceneTrack{}, failure(FailureInternal, scene.ID, -1, err)
	}

	return SceneResult{
		SceneID:           scene.ID,
		Title:             scene.Title,
		Segmentation:      plan.Source,
		Path:              scenePath,
		DurationSeconds:   audio.Duration(track.Buffer),
		PauseAfterSeconds: scenePause,
		Clauses:           clauseResults,
	}, track, nil
}

// synthesize performs one rate-limited synthesis call with retries. The
// backoff doubles per attempt.
func (o *Orchestrator) synthesize(ctx context.Context, text string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<attempt) * time.Second
			utils.LogVerbose("Retrying synthesis in %s (attempt %d/%d)", delay, attempt+1, o.cfg.MaxRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		raw, err := o.tts.Synthesize(ctx, text, o.cfg.VoiceID)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryableSynthesis(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// retryableSynthesis reports whether a synthesis error is worth retrying:
// rate limiting, server errors and transport failures are; other provider
// rejections and context cancellation are not.
func retryableSynthesis(err error) bool {
	var synthErr *elevenlabs.SynthesisError
	if errors.As(err, &synthErr) {
		return synthErr.StatusCode == http.StatusTooManyRequests || synthErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// synthesisCategory maps a synthesis error to a failure category.
func synthesisCategory(err error) string {
	var synthErr *elevenlabs.SynthesisError
	if errors.As(err, &synthErr) {
		if synthErr.StatusCode == http.StatusBadRequest {
			return FailureInvalidInput
		}
		return FailureProvider
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureInternal
	}
	return FailureProvider
}

// segmentationCategory maps a segmentation error to a failure category.
func segmentationCategory(err error) string {
	var malformed *script.MalformedAnnotationError
	if errors.As(err, &malformed) {
		return FailureInvalidInput
	}
	return FailureInternal
}

// uniqueSceneIDs disambiguates duplicate scene identifiers in place so
// artifact paths never collide.
func uniqueSceneIDs(scenes []script.Scene) {
	seen := make(map[string]int, len(scenes))
	for i := range scenes {
		id := scenes[i].ID
		seen[id]++
		if seen[id] > 1 {
			scenes[i].ID = fmt.Sprintf("%s_%d", id, seen[id])
		}
	}
}
