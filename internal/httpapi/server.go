package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sumochan15/agentworkflow/internal/jobs"
	"github.com/sumochan15/agentworkflow/internal/pipeline"
	"github.com/sumochan15/agentworkflow/internal/progress"
)

// Pipeline runs one video generation job end to end.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request, emit pipeline.EmitFunc) (string, error)
}

// Defaults are the fallback media assets when a request uploads none.
type Defaults struct {
	ReferenceImagePath string
	BGMPath            string
}

type Server struct {
	manager      *jobs.Manager
	hub          *progress.Hub
	pipeline     Pipeline
	defaults     Defaults
	cleanupAfter time.Duration

	mux    *http.ServeMux
	server *http.Server
}

func NewServer(manager *jobs.Manager, hub *progress.Hub, pipe Pipeline, defaults Defaults, cleanupAfter time.Duration) *Server {
	s := &Server{
		manager:      manager,
		hub:          hub,
		pipeline:     pipe,
		defaults:     defaults,
		cleanupAfter: cleanupAfter,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/video/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/video/status/", s.handleStatus)
	s.mux.HandleFunc("/api/video/download/", s.handleDownload)
	s.mux.HandleFunc("/api/debug/jobs", s.handleDebugJobs)
	s.mux.HandleFunc("/api/debug/jobs/", s.handleDebugJob)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
