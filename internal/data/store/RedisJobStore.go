package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/redisStore"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

type RedisJobStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisJobStore returns nil when redis is offline
func GetRedisJobStore(ctx context.Context) *RedisJobStore {
	rs := redisStore.GetRedisStore(ctx, config.RedisJobStore)
	if rs == nil {
		return nil
	}
	return NewRedisJobStore(rs)
}

func NewRedisJobStore(rs *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  rs,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := s.logger.ForRequest(ctx).With("jobId", job.Id)
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, jobKey(job.Id), data, config.RedisJobStoreTTL)
	if err == nil {
		log.Debug("Saved job to Redis", "status", job.Status)
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	log := s.logger.ForRequest(ctx).With("jobId", jobId)
	val, err := s.store.Get(ctx, jobKey(jobId))
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("Error reading job", "error", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("Error unmarshalling job", "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobKey(jobID)); err != nil {
		s.logger.Error("Error deleting job from Redis", "jobId", jobID, "error", err)
		return
	}
	s.logger.Debug("Job deleted from Redis", "jobId", jobID)
}
