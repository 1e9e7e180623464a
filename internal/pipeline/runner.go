package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumochan15/agentworkflow/internal/progress"
	"github.com/sumochan15/agentworkflow/internal/scenario"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

// prewarmTimeout bounds the wrestler-reading warmup; it is advisory and a
// timeout never fails the job.
var prewarmTimeout = 15 * time.Second

// Fetcher resolves a URL or passes raw text through.
type Fetcher interface {
	Content(ctx context.Context, input string) (string, error)
}

// ScenarioGenerator turns content into a scenario.
type ScenarioGenerator interface {
	Generate(ctx context.Context, content string) (*scenario.Scenario, error)
}

// Prewarmer resolves proper-noun readings ahead of audio synthesis so the
// per-scene loop hits a warm cache.
type Prewarmer interface {
	Normalize(ctx context.Context, text string) string
}

// ImageGenerator renders one image per scene.
type ImageGenerator interface {
	GenerateAll(ctx context.Context, scenes []scenario.Scene, referenceImagePath, outputDir string) ([]string, error)
}

// AudioGenerator produces verified narration audio per scene. An empty
// voiceID uses the configured default voice.
type AudioGenerator interface {
	GenerateAll(ctx context.Context, scenes []scenario.Scene, outputDir, voiceID string) ([]string, error)
}

// VideoAssembler joins assets and mixes background music.
type VideoAssembler interface {
	Assemble(ctx context.Context, imagePaths, audioPaths []string) (string, error)
	AddBackgroundMusic(ctx context.Context, videoPath, bgmPath string) (string, error)
}

// EmitFunc receives every progress event, including the terminal one.
type EmitFunc func(event progress.Event)

// Request describes one video generation run.
type Request struct {
	JobID     string
	Input     string
	OutputDir string

	// Scenario skips generation when the client supplied one.
	Scenario *scenario.Scenario

	ReferenceImagePath string
	BGMPath            string
	VoiceID            string
}

// Runner drives one job through the full pipeline, reporting progress at
// fixed percent bands per stage.
type Runner struct {
	fetcher   Fetcher
	scenarios ScenarioGenerator
	prewarmer Prewarmer
	images    ImageGenerator
	audio     AudioGenerator

	// newAssembler builds the per-job assembler bound to its output dir
	newAssembler func(outputDir string) VideoAssembler
}

func NewRunner(
	fetcher Fetcher,
	scenarios ScenarioGenerator,
	prewarmer Prewarmer,
	images ImageGenerator,
	audio AudioGenerator,
	newAssembler func(outputDir string) VideoAssembler,
) *Runner {
	return &Runner{
		fetcher:      fetcher,
		scenarios:    scenarios,
		prewarmer:    prewarmer,
		images:       images,
		audio:        audio,
		newAssembler: newAssembler,
	}
}

// Run executes the pipeline and returns the final video path. The terminal
// event (complete at 100, or error at 0) is always emitted before returning.
func (r *Runner) Run(ctx context.Context, req Request, emit EmitFunc) (string, error) {
	videoPath, err := r.run(ctx, req, emit)
	if err != nil {
		emit(progress.Event{
			Step:     progress.StepComplete,
			Status:   progress.StatusError,
			Progress: 0,
			Message:  err.Error(),
		})
		return "", err
	}

	emit(progress.Event{
		Step:     progress.StepComplete,
		Status:   progress.StatusCompleted,
		Progress: 100,
		Message:  "Video generation complete",
		Data:     map[string]any{"videoPath": videoPath},
	})
	return videoPath, nil
}

func (r *Runner) run(ctx context.Context, req Request, emit EmitFunc) (string, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return "", WrapError(err, ErrStore, "create output dir").WithContext("jobId", req.JobID)
	}

	sc, err := r.resolveScenario(ctx, req, emit)
	if err != nil {
		return "", err
	}

	if err := r.saveScenario(req.OutputDir, sc); err != nil {
		log.Warn("Failed to save scenario for job %s: %v", req.JobID, err)
	}

	r.prewarmReadings(ctx, sc)

	emit(progress.Event{
		Step: progress.StepImages, Status: progress.StatusInProgress, Progress: 30,
		Message: fmt.Sprintf("Generating images (0/%d)...", len(sc.Scenes)),
	})
	imagePaths, err := r.images.GenerateAll(ctx, sc.Scenes, req.ReferenceImagePath, req.OutputDir)
	if err != nil {
		return "", WrapError(err, ErrImageSynthesis, "image generation failed").WithContext("jobId", req.JobID)
	}
	emit(progress.Event{
		Step: progress.StepImages, Status: progress.StatusCompleted, Progress: 50,
		Message: fmt.Sprintf("All images generated (%d)", len(imagePaths)),
	})

	emit(progress.Event{
		Step: progress.StepAudio, Status: progress.StatusInProgress, Progress: 55,
		Message: fmt.Sprintf("Generating audio (0/%d)...", len(sc.Scenes)),
	})
	audioPaths, err := r.audio.GenerateAll(ctx, sc.Scenes, req.OutputDir, req.VoiceID)
	if err != nil {
		return "", WrapError(err, ErrAudioSynthesis, "audio generation failed").WithContext("jobId", req.JobID)
	}
	emit(progress.Event{
		Step: progress.StepAudio, Status: progress.StatusCompleted, Progress: 75,
		Message: fmt.Sprintf("All audio generated (%d)", len(audioPaths)),
	})

	if len(imagePaths) != len(audioPaths) {
		return "", NewError(ErrAssetCountMismatch, "generated asset counts do not match").
			WithContext("images", len(imagePaths)).
			WithContext("audio", len(audioPaths))
	}

	asm := r.newAssembler(req.OutputDir)

	emit(progress.Event{
		Step: progress.StepAssembly, Status: progress.StatusInProgress, Progress: 80,
		Message: "Assembling video...",
	})
	videoPath, err := asm.Assemble(ctx, imagePaths, audioPaths)
	if err != nil {
		return "", WrapError(err, ErrAssembly, "video assembly failed").WithContext("jobId", req.JobID)
	}
	emit(progress.Event{
		Step: progress.StepAssembly, Status: progress.StatusCompleted, Progress: 90,
		Message: "Video assembled",
	})

	emit(progress.Event{
		Step: progress.StepBgm, Status: progress.StatusInProgress, Progress: 92,
		Message: "Adding background music...",
	})
	mixedPath, err := asm.AddBackgroundMusic(ctx, videoPath, req.BGMPath)
	if err != nil {
		// a failed mix degrades to the narration-only video, it never
		// fails the job
		bgmErr := WrapError(err, ErrBgmMix, "background music mix failed").WithContext("jobId", req.JobID)
		log.Warn("%v; keeping narration-only video", bgmErr)
		emit(progress.Event{
			Step: progress.StepBgm, Status: progress.StatusCompleted, Progress: 95,
			Message: "Background music skipped",
		})
		return videoPath, nil
	}
	emit(progress.Event{
		Step: progress.StepBgm, Status: progress.StatusCompleted, Progress: 95,
		Message: "Background music added",
	})

	return mixedPath, nil
}

func (r *Runner) resolveScenario(ctx context.Context, req Request, emit EmitFunc) (*scenario.Scenario, error) {
	if req.Scenario != nil {
		if err := req.Scenario.Validate(); err != nil {
			return nil, WrapError(err, ErrScenarioGeneration, "supplied scenario is invalid")
		}
		sc := req.Scenario.Clone()
		emit(progress.Event{
			Step: progress.StepScenario, Status: progress.StatusCompleted, Progress: 25,
			Message: "Using pre-generated scenario",
			Data:    map[string]any{"scenario": sc},
		})
		return sc, nil
	}

	emit(progress.Event{
		Step: progress.StepScenario, Status: progress.StatusInProgress, Progress: 5,
		Message: "Generating scenario...",
	})

	content, err := r.fetcher.Content(ctx, req.Input)
	if err != nil {
		return nil, WrapError(err, ErrContentFetch, "content fetch failed").WithContext("input", req.Input)
	}

	sc, err := r.scenarios.Generate(ctx, content)
	if err != nil {
		return nil, WrapError(err, ErrScenarioGeneration, "scenario generation failed")
	}

	emit(progress.Event{
		Step: progress.StepScenario, Status: progress.StatusCompleted, Progress: 25,
		Message: "Scenario generated",
		Data:    map[string]any{"scenario": sc},
	})
	return sc, nil
}

func (r *Runner) saveScenario(outputDir string, sc *scenario.Scenario) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "scenario.json"), data, 0o644)
}

// prewarmReadings runs the normalizer over the whole narration so wrestler
// readings are cached before per-scene synthesis. Bounded and best-effort.
func (r *Runner) prewarmReadings(ctx context.Context, sc *scenario.Scenario) {
	if r.prewarmer == nil {
		return
	}

	texts := make([]string, 0, len(sc.Scenes))
	for _, scene := range sc.Scenes {
		texts = append(texts, scene.Text)
	}
	allText := strings.Join(texts, " ")

	warmCtx, cancel := context.WithTimeout(ctx, prewarmTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.prewarmer.Normalize(warmCtx, allText)
	}()

	select {
	case <-done:
		log.Info("Wrestler readings pre-warmed")
	case <-warmCtx.Done():
		log.Warn("Skipping wrestler reading warmup: %v", warmCtx.Err())
	}
}
