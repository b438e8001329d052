package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	jobmodel "github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/metrics"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctxTrace = context.WithValue(ctxTrace, config.OWNER_ID_KEY, job.OwnerId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	jobLogger := logger.ForRequest(ctx).With("jobId", job.Id)
	jobLogger.Debug("Processing job")

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job, jobLogger)

	job = processQuery(ctx, job, jobLogger)

	job.CurrentStep = jobmodel.RedisCall
	if job.Status != jobmodel.JobStatusError {
		if err := _jobService.MessageStore.TrySaveChat(ctx, job.ChatId, job.JobPayload); err != nil {
			jobLogger.Error("Failed to save chat history", "err", err)
		}
	}

	job.Status = finalStatus(job.Status)
	job.CurrentStep = finalStep(job)
	job.EndTime = time.Now()
	saveJobState(context.WithoutCancel(ctx), job, jobLogger)
	metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
}

// rejected and failed jobs keep their status, everything else finished normally
func finalStatus(status jobmodel.JobStatus) jobmodel.JobStatus {
	switch status {
	case jobmodel.JobStatusError, jobmodel.JobStatusRejected:
		return status
	default:
		return jobmodel.JobStatusComplete
	}
}

func finalStep(job jobmodel.Job) jobmodel.InternalStatus {
	if job.Status == jobmodel.JobStatusError {
		return jobmodel.Error
	}
	return jobmodel.Complete
}

// removeWorker expects the caller to have already taken the worker off currentWorkerCount
func removeWorker(reason string) {
	workerWaitGroup.Done()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}

func processQuery(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	err, messageHistory := _jobService.MessageStore.GetMessageHistory(ctx, job.ChatId)
	if err != nil {
		log.Error("Failed to get message history", "err", err)
	}
	return _ragService.ProcessRequest(ctx, job, messageHistory)
}

func saveJobState(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to update job status", "err", err, "status", job.Status)
	}
}
