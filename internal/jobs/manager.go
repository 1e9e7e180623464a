package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

// Manager owns job records and their delayed cleanup. Cleanup removes both
// the record and the job's artifact directory.
type Manager struct {
	store        Store
	artifactRoot string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewManager(store Store, artifactRoot string) *Manager {
	return &Manager{
		store:        store,
		artifactRoot: artifactRoot,
		timers:       make(map[string]*time.Timer),
	}
}

// Create registers a new pending job and returns it.
func (m *Manager) Create(ctx context.Context, input, provider string) (*Job, error) {
	job := &Job{
		ID:        NewID(),
		Status:    StatusPending,
		Input:     input,
		Provider:  provider,
		CreatedAt: time.Now(),
	}
	if err := m.store.Set(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	log.Info("Job %s created", job.ID)
	return job, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) GetAll(ctx context.Context) ([]*Job, error) {
	return m.store.List(ctx)
}

// Update applies mutate to the stored record and writes it back. The write
// refreshes the record TTL.
func (m *Manager) Update(ctx context.Context, id string, mutate func(*Job)) error {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	mutate(job)
	return m.store.Set(ctx, job)
}

// ArtifactDir returns the directory holding the job's generated files,
// creating it if needed.
func (m *Manager) ArtifactDir(id string) (string, error) {
	dir := filepath.Join(m.artifactRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	return dir, nil
}

// ScheduleCleanup arranges for the job record and artifacts to be removed
// after the delay. Rescheduling replaces any earlier timer.
func (m *Manager) ScheduleCleanup(id string, after time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[id]; ok {
		t.Stop()
	}
	m.timers[id] = time.AfterFunc(after, func() {
		m.cleanup(id)
	})
}

// StopCleanupTimers cancels all pending cleanups, for shutdown.
func (m *Manager) StopCleanupTimers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

// SweepArtifacts removes artifact directories whose job record no longer
// exists. Cleanup timers do not survive a restart, so expired records can
// leave their directories behind; the janitor calls this periodically.
func (m *Manager) SweepArtifacts(ctx context.Context) int {
	entries, err := os.ReadDir(m.artifactRoot)
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		_, err := m.store.Get(ctx, entry.Name())
		if !errors.Is(err, ErrNotFound) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.artifactRoot, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		log.Info("Janitor removed %d orphaned artifact dirs", removed)
	}
	return removed
}

func (m *Manager) cleanup(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := filepath.Join(m.artifactRoot, id)
	if err := os.RemoveAll(dir); err != nil {
		log.Error("Failed to remove artifacts for job %s: %v", id, err)
	}

	if err := m.store.Delete(ctx, id); err != nil {
		log.Error("Failed to delete job record %s: %v", id, err)
	} else {
		log.Info("Job %s cleaned up", id)
	}

	m.mu.Lock()
	delete(m.timers, id)
	m.mu.Unlock()
}
