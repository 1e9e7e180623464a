package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumochan15/agentworkflow/internal/jobs"
	"github.com/sumochan15/agentworkflow/internal/pipeline"
	"github.com/sumochan15/agentworkflow/internal/progress"
	"github.com/sumochan15/agentworkflow/internal/scenario"
	"github.com/sumochan15/agentworkflow/pkg/file"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

// maxUploadBytes bounds the multipart form (reference image + bgm).
const maxUploadBytes = 32 << 20

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	input := strings.TrimSpace(r.FormValue("input"))
	if input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	provider := r.FormValue("provider")
	if provider == "" {
		provider = "elevenlabs"
	}
	voiceID := r.FormValue("voiceId")

	var pre *scenario.Scenario
	if raw := r.FormValue("scenario"); raw != "" {
		pre = &scenario.Scenario{}
		if err := json.Unmarshal([]byte(raw), pre); err != nil {
			writeError(w, http.StatusBadRequest, "invalid scenario JSON: "+err.Error())
			return
		}
	}

	job, err := s.manager.Create(r.Context(), input, provider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	outputDir, err := s.manager.ArtifactDir(job.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	refPath, err := s.saveUpload(r, "referenceImage", outputDir, "reference.png", s.defaults.ReferenceImagePath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bgmPath, err := s.saveUpload(r, "bgm", outputDir, "bgm.mp3", s.defaults.BGMPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := pipeline.Request{
		JobID:              job.ID,
		Input:              input,
		OutputDir:          outputDir,
		Scenario:           pre,
		ReferenceImagePath: refPath,
		BGMPath:            bgmPath,
		VoiceID:            voiceID,
	}

	go s.runJob(req)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":  job.ID,
		"status": jobs.StatusPending,
	})
}

// runJob drives the pipeline for one job in the background, mirroring every
// progress event onto the job record and the live stream.
func (s *Server) runJob(req pipeline.Request) {
	ctx := context.Background()
	broadcaster := s.hub.Open(req.JobID)

	if err := s.manager.Update(ctx, req.JobID, func(j *jobs.Job) {
		j.Status = jobs.StatusProcessing
	}); err != nil {
		log.Error("Failed to mark job %s processing: %v", req.JobID, err)
	}

	emit := func(event progress.Event) {
		if err := s.manager.Update(ctx, req.JobID, func(j *jobs.Job) {
			applyEvent(j, event)
		}); err != nil {
			log.Error("Failed to record progress for job %s: %v", req.JobID, err)
		}
		broadcaster.Publish(event)
	}

	if _, err := s.pipeline.Run(ctx, req, emit); err != nil {
		log.Error("Job %s failed: %v", req.JobID, err)
	}

	s.hub.CloseAndRemove(req.JobID)
	s.manager.ScheduleCleanup(req.JobID, s.cleanupAfter)
}

// applyEvent mirrors a progress event onto the job record so polling
// clients see the same state as stream subscribers.
func applyEvent(j *jobs.Job, event progress.Event) {
	j.CurrentStep = string(event.Step)
	j.CurrentProgress = event.Progress
	j.CurrentMessage = event.Message

	if sc, ok := event.Data["scenario"].(*scenario.Scenario); ok {
		j.Scenario = sc
	}

	if !event.Terminal() {
		return
	}

	now := time.Now()
	j.CompletedAt = &now
	if event.Status == progress.StatusError {
		j.Status = jobs.StatusError
		j.Error = event.Message
		return
	}
	j.Status = jobs.StatusCompleted
	if path, ok := event.Data["videoPath"].(string); ok {
		j.OutputPath = path
	}
}

// saveUpload stores an optional multipart file into the job dir, falling
// back to the configured default path when the field is absent.
func (s *Server) saveUpload(r *http.Request, field, dir, name, fallback string) (string, error) {
	src, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s upload: %w", field, err)
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	if err := writeUpload(src, path); err != nil {
		return "", fmt.Errorf("save %s upload: %w", field, err)
	}
	return path, nil
}

func writeUpload(src multipart.File, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/video/status/"), "/")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := s.manager.Get(r.Context(), jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	broadcaster := s.hub.Get(jobID)
	wantsJSON := strings.Contains(r.Header.Get("Accept"), "application/json")
	if wantsJSON || broadcaster == nil {
		writeJSON(w, http.StatusOK, snapshotEvent(job))
		return
	}

	events, cancel := broadcaster.Subscribe()
	defer cancel()
	progress.ServeSSE(w, r, events)
}

// snapshotEvent synthesizes the one-shot frame polling clients get: the
// terminal frame for finished jobs, else the latest recorded progress.
func snapshotEvent(job *jobs.Job) progress.Event {
	switch job.Status {
	case jobs.StatusCompleted:
		return progress.Event{
			Step:     progress.StepComplete,
			Status:   progress.StatusCompleted,
			Progress: 100,
			Message:  "Video generation complete",
			Data:     map[string]any{"downloadUrl": "/api/video/download/" + job.ID},
		}
	case jobs.StatusError:
		return progress.Event{
			Step:     progress.StepComplete,
			Status:   progress.StatusError,
			Progress: 0,
			Message:  job.Error,
		}
	default:
		step := progress.Step(job.CurrentStep)
		if job.CurrentStep == "" {
			step = progress.StepScenario
		}
		return progress.Event{
			Step:     step,
			Status:   progress.StatusInProgress,
			Progress: job.CurrentProgress,
			Message:  job.CurrentMessage,
		}
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/video/download/"), "/")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := s.manager.Get(r.Context(), jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if job.Status != jobs.StatusCompleted || job.OutputPath == "" {
		writeError(w, http.StatusConflict, "video not ready")
		return
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		writeError(w, http.StatusNotFound, "video file no longer available")
		return
	}

	filename := filepath.Base(job.OutputPath)
	if job.Scenario != nil && job.Scenario.Title != "" {
		filename = file.SanitizeName(job.Scenario.Title, 40) + ".mp4"
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, job.OutputPath)
}

func (s *Server) handleDebugJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	all, err := s.manager.GetAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(all),
		"jobs":  all,
	})
}

func (s *Server) handleDebugJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/debug/jobs/"), "/")
	if jobID == "" {
		s.handleDebugJobs(w, r)
		return
	}

	job, err := s.manager.Get(r.Context(), jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}
