package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumochan15/agentworkflow/internal/progress"
	"github.com/sumochan15/agentworkflow/internal/scenario"
)

type fakeFetcher struct {
	content string
	err     error
}

func (f *fakeFetcher) Content(ctx context.Context, input string) (string, error) {
	return f.content, f.err
}

type fakeScenarios struct {
	scenario *scenario.Scenario
	err      error
	calls    int
}

func (f *fakeScenarios) Generate(ctx context.Context, content string) (*scenario.Scenario, error) {
	f.calls++
	return f.scenario, f.err
}

type fakePrewarmer struct {
	delay time.Duration
	calls int
}

func (f *fakePrewarmer) Normalize(ctx context.Context, text string) string {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return text
}

type fakeImages struct {
	err error
}

func (f *fakeImages) GenerateAll(ctx context.Context, scenes []scenario.Scene, ref, dir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	paths := make([]string, len(scenes))
	for i := range scenes {
		paths[i] = filepath.Join(dir, "scene_"+string(rune('0'+i))+".png")
	}
	return paths, nil
}

type fakeAudio struct {
	err   error
	extra int
}

func (f *fakeAudio) GenerateAll(ctx context.Context, scenes []scenario.Scene, dir, voiceID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	paths := make([]string, len(scenes)+f.extra)
	for i := range paths {
		paths[i] = filepath.Join(dir, "scene_"+string(rune('0'+i))+".mp3")
	}
	return paths, nil
}

type fakeAssembler struct {
	assembleErr error
	bgmErr      error
	bgmPath     string
}

func (f *fakeAssembler) Assemble(ctx context.Context, images, audio []string) (string, error) {
	if f.assembleErr != nil {
		return "", f.assembleErr
	}
	return "/out/sumo_news.mp4", nil
}

func (f *fakeAssembler) AddBackgroundMusic(ctx context.Context, video, bgm string) (string, error) {
	f.bgmPath = bgm
	if f.bgmErr != nil {
		return "", f.bgmErr
	}
	return "/out/sumo_news_with_bgm.mp4", nil
}

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Title: "大の里優勝",
		Scenes: []scenario.Scene{
			{Text: "大の里が優勝しました", ImagePrompt: "喜ぶ力士"},
			{Text: "来場所にも期待です", ImagePrompt: "土俵"},
		},
	}
}

type runnerFixture struct {
	runner    *Runner
	fetcher   *fakeFetcher
	scenarios *fakeScenarios
	prewarmer *fakePrewarmer
	assembler *fakeAssembler
	images    *fakeImages
	audio     *fakeAudio
}

func newFixture() *runnerFixture {
	f := &runnerFixture{
		fetcher:   &fakeFetcher{content: "ニュース内容"},
		scenarios: &fakeScenarios{scenario: testScenario()},
		prewarmer: &fakePrewarmer{},
		assembler: &fakeAssembler{},
		images:    &fakeImages{},
		audio:     &fakeAudio{},
	}
	f.runner = NewRunner(f.fetcher, f.scenarios, f.prewarmer, f.images, f.audio,
		func(string) VideoAssembler { return f.assembler })
	return f
}

func collectEvents(events *[]progress.Event) EmitFunc {
	return func(e progress.Event) { *events = append(*events, e) }
}

func TestRun_FullPipeline(t *testing.T) {
	f := newFixture()
	dir := t.TempDir()

	var events []progress.Event
	videoPath, err := f.runner.Run(context.Background(), Request{
		JobID:     "job-1",
		Input:     "https://example.com/news",
		OutputDir: dir,
		BGMPath:   "/assets/bgm.mp3",
	}, collectEvents(&events))

	require.NoError(t, err)
	assert.Equal(t, "/out/sumo_news_with_bgm.mp4", videoPath)
	assert.Equal(t, 1, f.prewarmer.calls)
	assert.Equal(t, "/assets/bgm.mp3", f.assembler.bgmPath)

	wantBands := []struct {
		step     progress.Step
		status   progress.EventStatus
		progress int
	}{
		{progress.StepScenario, progress.StatusInProgress, 5},
		{progress.StepScenario, progress.StatusCompleted, 25},
		{progress.StepImages, progress.StatusInProgress, 30},
		{progress.StepImages, progress.StatusCompleted, 50},
		{progress.StepAudio, progress.StatusInProgress, 55},
		{progress.StepAudio, progress.StatusCompleted, 75},
		{progress.StepAssembly, progress.StatusInProgress, 80},
		{progress.StepAssembly, progress.StatusCompleted, 90},
		{progress.StepBgm, progress.StatusInProgress, 92},
		{progress.StepBgm, progress.StatusCompleted, 95},
		{progress.StepComplete, progress.StatusCompleted, 100},
	}
	require.Len(t, events, len(wantBands))
	for i, want := range wantBands {
		assert.Equal(t, want.step, events[i].Step, "event %d", i)
		assert.Equal(t, want.status, events[i].Status, "event %d", i)
		assert.Equal(t, want.progress, events[i].Progress, "event %d", i)
	}

	// scenario snapshot is saved into the job dir
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	require.NoError(t, err)
	var saved scenario.Scenario
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "大の里優勝", saved.Title)
}

func TestRun_PreGeneratedScenarioSkipsGeneration(t *testing.T) {
	f := newFixture()

	var events []progress.Event
	_, err := f.runner.Run(context.Background(), Request{
		JobID:     "job-1",
		OutputDir: t.TempDir(),
		Scenario:  testScenario(),
	}, collectEvents(&events))

	require.NoError(t, err)
	assert.Zero(t, f.scenarios.calls)
	assert.Equal(t, progress.StepScenario, events[0].Step)
	assert.Equal(t, progress.StatusCompleted, events[0].Status)
	assert.Equal(t, 25, events[0].Progress)
	assert.Equal(t, "Using pre-generated scenario", events[0].Message)
}

func TestRun_FetchFailure(t *testing.T) {
	f := newFixture()
	f.fetcher.err = errors.New("dns failure")

	var events []progress.Event
	_, err := f.runner.Run(context.Background(), Request{
		JobID: "job-1", Input: "https://example.com", OutputDir: t.TempDir(),
	}, collectEvents(&events))

	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrContentFetch))

	last := events[len(events)-1]
	assert.Equal(t, progress.StepComplete, last.Step)
	assert.Equal(t, progress.StatusError, last.Status)
	assert.Equal(t, 0, last.Progress)
}

func TestRun_ImageFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.images.err = errors.New("image API status 500")

	var events []progress.Event
	_, err := f.runner.Run(context.Background(), Request{
		JobID: "job-1", Input: "text", OutputDir: t.TempDir(),
	}, collectEvents(&events))

	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrImageSynthesis))
	assert.Equal(t, progress.StatusError, events[len(events)-1].Status)
}

func TestRun_AssetCountMismatch(t *testing.T) {
	f := newFixture()
	f.audio.extra = 1

	_, err := f.runner.Run(context.Background(), Request{
		JobID: "job-1", Input: "text", OutputDir: t.TempDir(),
	}, func(progress.Event) {})

	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrAssetCountMismatch))
}

func TestRun_BgmFailureDegradesToNarration(t *testing.T) {
	f := newFixture()
	f.assembler.bgmErr = errors.New("amix failed")

	var events []progress.Event
	videoPath, err := f.runner.Run(context.Background(), Request{
		JobID: "job-1", Input: "text", OutputDir: t.TempDir(), BGMPath: "/assets/bgm.mp3",
	}, collectEvents(&events))

	require.NoError(t, err)
	assert.Equal(t, "/out/sumo_news.mp4", videoPath)

	last := events[len(events)-1]
	assert.Equal(t, progress.StepComplete, last.Step)
	assert.Equal(t, progress.StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Progress)

	bgmDone := events[len(events)-2]
	assert.Equal(t, progress.StepBgm, bgmDone.Step)
	assert.Equal(t, progress.StatusCompleted, bgmDone.Status)
	assert.Equal(t, 95, bgmDone.Progress)
	assert.Equal(t, "Background music skipped", bgmDone.Message)
}

func TestRun_PrewarmTimeoutIsSwallowed(t *testing.T) {
	orig := prewarmTimeout
	prewarmTimeout = 50 * time.Millisecond
	t.Cleanup(func() { prewarmTimeout = orig })

	f := newFixture()
	f.prewarmer.delay = time.Minute // well past the warmup timeout

	dir := t.TempDir()
	start := time.Now()
	_, err := f.runner.Run(context.Background(), Request{
		JobID: "job-1", Input: "text", OutputDir: dir,
	}, func(progress.Event) {})

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRun_InvalidSuppliedScenario(t *testing.T) {
	f := newFixture()

	_, err := f.runner.Run(context.Background(), Request{
		JobID:     "job-1",
		OutputDir: t.TempDir(),
		Scenario:  &scenario.Scenario{Title: "empty"},
	}, func(progress.Event) {})

	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrScenarioGeneration))
}
