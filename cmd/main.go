package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/sumochan15/agentworkflow/internal/assembler"
	"github.com/sumochan15/agentworkflow/internal/config"
	"github.com/sumochan15/agentworkflow/internal/fetch"
	"github.com/sumochan15/agentworkflow/internal/httpapi"
	"github.com/sumochan15/agentworkflow/internal/imagegen"
	"github.com/sumochan15/agentworkflow/internal/jobs"
	"github.com/sumochan15/agentworkflow/internal/llm"
	"github.com/sumochan15/agentworkflow/internal/normalizer"
	"github.com/sumochan15/agentworkflow/internal/persistence"
	"github.com/sumochan15/agentworkflow/internal/pipeline"
	"github.com/sumochan15/agentworkflow/internal/progress"
	"github.com/sumochan15/agentworkflow/internal/scenario"
	"github.com/sumochan15/agentworkflow/internal/speech"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

const fetchTimeout = 30 * time.Second

// cronRunner is the subset of cron.Cron the run loop needs.
type cronRunner interface {
	Start()
	Stop() context.Context
}

// httpServer is the subset of httpapi.Server the run loop needs.
type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	// a .env file is optional; deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	log.InitLogger(log.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize: %v", err)
		os.Exit(1)
	}
	defer app.close()

	if err := runWithComponents(ctx, cfg.HTTP.Addr, app.cron, app.server); err != nil {
		log.Error("Server exited: %v", err)
		os.Exit(1)
	}
}

// runWithComponents starts the janitor and the HTTP server and blocks until
// the context is cancelled, then shuts both down.
func runWithComponents(ctx context.Context, addr string, cronEngine cronRunner, srv httpServer) error {
	cronEngine.Start()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", addr)
		errCh <- srv.ListenAndServe(addr)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown: %v", err)
		}
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	cronEngine.Stop()

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}

type app struct {
	server  *httpapi.Server
	cron    *cron.Cron
	manager *jobs.Manager
	terms   *persistence.TermStore
}

func (a *app) close() {
	a.manager.StopCleanupTimers()
	if err := a.terms.Close(); err != nil {
		log.Warn("Closing term cache: %v", err)
	}
}

// buildApp wires every component from configuration. Redis backs the job
// store when reachable; otherwise records fall back to the filesystem with
// a cron janitor standing in for key expiry.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, janitor := newJobStore(ctx, cfg)

	terms, err := persistence.NewTermStore(cfg.Store.TermCacheDB)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	norm := normalizer.New(
		normalizer.NewLLMExtractor(client, cfg.LLM.ReadingModel),
		normalizer.NewReadingLookup(cfg.Asset.ReadingLookupURL, fetchTimeout),
		terms,
	)

	verifier := speech.NewVerifier(
		speech.NewSynthesizer(cfg.TTS.APIKey, cfg.TTS.APIURL, cfg.TTS.VoiceID),
		speech.NewTranscriber(cfg.LLM.APIKey, cfg.TTS.TranscribeURL),
		norm,
		speech.NewKanaConverter(client, cfg.LLM.KanaModel),
	)

	runner := pipeline.NewRunner(
		fetch.NewFetcher(fetchTimeout),
		scenario.NewGenerator(client, cfg.LLM.Model),
		norm,
		imagegen.NewSynthesizer(cfg.Image.APIKey, cfg.Image.APIURL, cfg.Image.Model),
		verifier,
		func(outputDir string) pipeline.VideoAssembler { return assembler.New(outputDir) },
	)

	manager := jobs.NewManager(store, filepath.Join(cfg.Store.JobsDir, "artifacts"))

	server := httpapi.NewServer(manager, progress.NewHub(), runner, httpapi.Defaults{
		ReferenceImagePath: cfg.Asset.ReferenceImagePath,
		BGMPath:            cfg.Asset.BGMPath,
	}, time.Duration(cfg.Store.CleanupAfterMinutes)*time.Minute)

	c := cron.New()
	if _, err := c.AddFunc(cfg.Store.JanitorCron, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if janitor != nil {
			janitor.Sweep(sweepCtx)
		}
		manager.SweepArtifacts(sweepCtx)
	}); err != nil {
		return nil, err
	}

	return &app{server: server, cron: c, manager: manager, terms: terms}, nil
}

// newJobStore picks redis when configured and reachable. The returned
// FileStore is non-nil only when the filesystem fallback is in use and a
// janitor sweep is needed.
func newJobStore(ctx context.Context, cfg *config.Config) (jobs.Store, *jobs.FileStore) {
	if cfg.Store.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Store.RedisAddr,
			DB:   cfg.Store.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info("Using redis job store at %s", cfg.Store.RedisAddr)
			return jobs.NewRedisStore(client), nil
		}
		log.Warn("Redis unreachable (%v), falling back to file store", err)
		_ = client.Close()
	}

	fs, err := jobs.NewFileStore(filepath.Join(cfg.Store.JobsDir, "records"))
	if err != nil {
		log.Error("Failed to create file job store: %v", err)
		os.Exit(1)
	}
	log.Info("Using file job store under %s", cfg.Store.JobsDir)
	return fs, fs
}
