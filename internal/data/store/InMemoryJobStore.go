package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem Store")

type storedJob struct {
	job       jobModel.Job
	expiresAt time.Time
}

// InMemoryJobStore mirrors the redis job ttl so both backends forget jobs alike
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]storedJob
	ttl  time.Duration
	now  func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

func NewInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{jobs: make(map[string]storedJob), ttl: ttl, now: now}
}

func (s *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Id] = storedJob{job: job, expiresAt: s.now().Add(s.ttl)}
	inMemLogger.ForRequest(ctx).Debug("Saved job to store", "jobId", job.Id, "status", job.Status)
	return nil
}

func (s *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	s.mu.RLock()
	entry, found := s.jobs[jobId]
	s.mu.RUnlock()
	if !found {
		return jobModel.Job{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		s.evict(jobId)
		return jobModel.Job{}, false
	}
	return entry.job, true
}

// evict rechecks under the write lock so a job saved again meanwhile survives
func (s *InMemoryJobStore) evict(jobId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, found := s.jobs[jobId]; found && !s.now().Before(entry.expiresAt) {
		delete(s.jobs, jobId)
	}
}

func (s *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}
