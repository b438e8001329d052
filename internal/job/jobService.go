package job

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/metrics"
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
	}
}

// Enqueue saves the queued job so status polls find it, then hands it to the pool.
// The send blocks while the buffer is full so callers feel the backpressure; ctx bounds the wait.
func (s *Service) Enqueue(ctx context.Context, job jobModel.Job) error {
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		return err
	}

	select {
	case s.JobChannel <- job:
	case <-ctx.Done():
		job.Status = jobModel.JobStatusError
		job.Error = jobModel.JobError{Code: http.StatusServiceUnavailable, Message: "Job queue is full, please retry", Retry: true}
		_ = s.JobStore.SaveJob(context.WithoutCancel(ctx), job)
		return ctx.Err()
	}
	metrics.IncrementJobsInQueue()

	//a new worker every RequestsPerNewWorkerCount requests, idle ones retire on their own
	accurateCount := atomic.AddInt64(&s.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 {
		metrics.StartDispatcherSignalCount()
		select {
		case s.DispatcherChannel <- true:
		default:
			//dispatcher already has a pending signal
		}
	}
	return nil
}
