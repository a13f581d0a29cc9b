// Package batch runs asynchronous bulk encode jobs backed by Redis.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/arjunmehra/digipin-gateway/internal/cache/keys"
	"github.com/arjunmehra/digipin-gateway/internal/hotness"
	"github.com/arjunmehra/digipin-gateway/internal/model"
	"github.com/arjunmehra/digipin-gateway/internal/observability"
	"github.com/arjunmehra/digipin-gateway/pkg/digipin"
)

const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

type Item struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type ItemResult struct {
	ID    string `json:"id"`
	Pin   string `json:"pin,omitempty"`
	Error string `json:"error,omitempty"`
}

// Job is the record stored in Redis for the lifetime of a batch. It is
// what GET /v1/batch/jobs/{id} returns verbatim.
type Job struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	SubmittedAt time.Time    `json:"submitted_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Total       int          `json:"total"`
	OK          int          `json:"ok"`
	Failed      int          `json:"failed"`
	Results     []ItemResult `json:"results,omitempty"`
}

var (
	ErrEmpty = errors.New("batch has no items")
	ErrBusy  = errors.New("batch queue is full")
)

type TooLargeError struct {
	Items int
	Max   int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("batch has %d items (max %d)", e.Items, e.Max)
}

// Store is the slice of the Redis client the manager needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type Config struct {
	MaxItems  int
	Workers   int
	QueueSize int
	JobTTL    time.Duration
	OpTimeout time.Duration
	PrefixLen int
}

type queued struct {
	job   Job
	items []Item
}

type Manager struct {
	cfg    Config
	store  Store
	hot    hotness.Interface
	log    zerolog.Logger
	recent *recentJobs

	jobs chan queued
	wg   sync.WaitGroup
}

// recentJobs remembers job ids this instance created so duplicate
// submissions can be answered without a Redis write.
type recentJobs struct {
	mu  sync.Mutex
	lru *lru.Cache[string, struct{}]
}

func newRecentJobs(size int) *recentJobs {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, struct{}](size)
	return &recentJobs{lru: c}
}

// returns true the first time an id is seen
func (r *recentJobs) firstSeen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lru.Get(id); ok {
		return false
	}
	r.lru.Add(id, struct{}{})
	return true
}

func New(cfg Config, store Store, hot hotness.Interface, log zerolog.Logger) *Manager {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 24 * time.Hour
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if cfg.PrefixLen <= 0 {
		cfg.PrefixLen = 3
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		hot:    hot,
		log:    log,
		recent: newRecentJobs(0),
		jobs:   make(chan queued, cfg.QueueSize),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled;
// Stop waits for in-flight jobs to finish.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(m.cfg.Workers)
	for range m.cfg.Workers {
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case q := <-m.jobs:
					m.process(ctx, q.job, q.items)
				}
			}
		}()
	}
}

func (m *Manager) Stop() {
	m.wg.Wait()
}

// Submit registers a batch and enqueues it for processing. The job id is
// a digest of the canonical payload, so resubmitting the same items
// yields the same id with Duplicate set instead of a second run.
func (m *Manager) Submit(ctx context.Context, items []Item) (model.BatchAccepted, error) {
	if len(items) == 0 {
		return model.BatchAccepted{}, ErrEmpty
	}
	if len(items) > m.cfg.MaxItems {
		observability.IncBatchJob("rejected")
		return model.BatchAccepted{}, &TooLargeError{Items: len(items), Max: m.cfg.MaxItems}
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return model.BatchAccepted{}, fmt.Errorf("marshal batch: %w", err)
	}
	id := keys.JobID(payload)

	if !m.recent.firstSeen(id) {
		// Seen before on this instance. The record may still have expired
		// out of Redis, in which case we create it again.
		if job, ok, err := m.Lookup(ctx, id); err == nil && ok {
			observability.IncBatchJob("duplicate")
			return model.BatchAccepted{JobID: id, Status: job.Status, Items: job.Total, Duplicate: true}, nil
		}
	}

	job := Job{
		ID:          id,
		Status:      StatusQueued,
		SubmittedAt: time.Now().UTC(),
		Total:       len(items),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return model.BatchAccepted{}, fmt.Errorf("marshal job %s: %w", id, err)
	}

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	defer cancel()
	created, err := m.store.SetNX(opCtx, keys.JobKey(id), raw, m.cfg.JobTTL)
	if err != nil {
		return model.BatchAccepted{}, err
	}
	if !created {
		// Another instance got there first.
		if job, ok, err := m.Lookup(ctx, id); err == nil && ok {
			observability.IncBatchJob("duplicate")
			return model.BatchAccepted{JobID: id, Status: job.Status, Items: job.Total, Duplicate: true}, nil
		}
		observability.IncBatchJob("duplicate")
		return model.BatchAccepted{JobID: id, Status: StatusQueued, Items: len(items), Duplicate: true}, nil
	}

	select {
	case m.jobs <- queued{job: job, items: items}:
	default:
		// Queue full. Drop the record so a retry can start clean.
		delCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
		defer cancel()
		_ = m.store.Del(delCtx, keys.JobKey(id))
		return model.BatchAccepted{}, ErrBusy
	}

	observability.IncBatchJob("accepted")
	m.log.Info().Str("job_id", id).Int("items", len(items)).Msg("batch job accepted")
	return model.BatchAccepted{JobID: id, Status: StatusQueued, Items: len(items)}, nil
}

// Lookup fetches a job record by id.
func (m *Manager) Lookup(ctx context.Context, id string) (Job, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	defer cancel()
	raw, ok, err := m.store.Get(opCtx, keys.JobKey(id))
	if err != nil || !ok {
		return Job{}, false, err
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, false, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, true, nil
}

func (m *Manager) process(ctx context.Context, job Job, items []Item) {
	job.Status = StatusRunning
	if err := m.writeJob(ctx, job); err != nil {
		m.fail(ctx, job, err)
		return
	}

	results := make([]ItemResult, 0, len(items))
	okN, failN := 0, 0
	for _, it := range items {
		pin, err := digipin.Encode(it.Latitude, it.Longitude)
		if err != nil {
			failN++
			results = append(results, ItemResult{ID: it.ID, Error: err.Error()})
			continue
		}
		okN++
		results = append(results, ItemResult{ID: it.ID, Pin: pin})
		if m.hot != nil {
			m.hot.Inc(hotness.RegionOf(pin, m.cfg.PrefixLen))
		}
	}

	now := time.Now().UTC()
	job.Status = StatusDone
	job.CompletedAt = &now
	job.OK = okN
	job.Failed = failN
	job.Results = results
	if err := m.writeJob(ctx, job); err != nil {
		m.fail(ctx, job, err)
		return
	}

	observability.IncBatchJob("done")
	observability.AddBatchItems("ok", okN)
	observability.AddBatchItems("failed", failN)
	m.log.Info().
		Str("job_id", job.ID).
		Int("total", job.Total).
		Int("ok", okN).
		Int("failed", failN).
		Msg("batch job done")
}

// fail marks the job failed. The write is best effort; if Redis is the
// thing that failed the record simply ages out at its TTL.
func (m *Manager) fail(ctx context.Context, job Job, cause error) {
	now := time.Now().UTC()
	job.Status = StatusFailed
	job.CompletedAt = &now
	_ = m.writeJob(ctx, job)
	observability.IncBatchJob("failed")
	m.log.Error().Err(cause).Str("job_id", job.ID).Msg("batch job failed")
}

func (m *Manager) writeJob(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	opCtx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	defer cancel()
	return m.store.Set(opCtx, keys.JobKey(job.ID), raw, m.cfg.JobTTL)
}
