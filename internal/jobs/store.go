package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

// recordTTL is how long a job record lives without updates.
const recordTTL = time.Hour

// redisKeyPrefix namespaces job records in redis.
const redisKeyPrefix = "job:"

// ErrNotFound is returned when no record exists for the id.
var ErrNotFound = errors.New("job not found")

// Store persists job records. Every write refreshes the record TTL.
type Store interface {
	Set(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Job, error)
}

// RedisStore keeps job records in redis with a native per-key TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Set(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, s.key(job.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]*Job, error) {
	var jobs []*Job
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), redisKeyPrefix)
		job, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return jobs, nil
}

// FileStore keeps job records as <root>/<id>.json. It has no native TTL;
// Sweep restores expiry semantics and is driven by a cron janitor.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, id+".json")
}

func (s *FileStore) Set(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := os.WriteFile(s.path(job.ID), data, 0o644); err != nil {
		return fmt.Errorf("write job file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) List(ctx context.Context) ([]*Job, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir: %w", err)
	}

	var jobs []*Job
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		job, err := s.Get(ctx, id)
		if err != nil {
			log.Warn("Skipping unreadable job file %s: %v", entry.Name(), err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Sweep deletes records whose file has not been written for longer than the
// record TTL, mirroring the redis expiry the fallback lacks.
func (s *FileStore) Sweep(ctx context.Context) int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		log.Warn("Janitor sweep failed: %v", err)
		return 0
	}

	removed := 0
	cutoff := time.Now().Add(-recordTTL)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		log.Info("Janitor removed %d expired job records", removed)
	}
	return removed
}
