package rag

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/metrics"
	"github.com/akolanti/CyberScholar/internal/rag/safety"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.JobPayload.Allowed = true
	job.CurrentStep = jobModel.Complete
	return job
}

// a rejection is an answer, not an error: the gate's message goes back verbatim
func rejectOutput(job jobModel.Job, message string) jobModel.Job {
	job.JobPayload.Answer = message
	job.JobPayload.Allowed = false
	job.JobPayload.Sources = nil
	job.Status = jobModel.JobStatusRejected
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusBadGateway,
		Message: "The answer could not be generated, please retry",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

func (s *service) executeSafetyStep(log *logger_i.Logger, job *jobModel.Job) safety.Verdict {
	*job = logOutput(*job, jobModel.SafetyCall, log)

	verdict := s.gate.FilterQuery(job.JobPayload.Question)
	if !verdict.Allowed {
		metrics.IncrementSafetyRejections(verdict.Reason)
		log.Warn("Query rejected by safety gate", "reason", verdict.Reason, "tables", s.gate.Version())
	}
	return verdict
}

func (s *service) executeRetrievalStep(log *logger_i.Logger, job *jobModel.Job) []string {
	*job = logOutput(*job, jobModel.RetrievalCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	records := s.index.Query(job.OwnerId, job.JobPayload.Question, config.DefaultRetrievalCount)
	matches := make([]string, 0, len(records))
	for _, r := range records {
		matches = append(matches, r.Chunk.Content)
	}
	job.JobPayload.Sources = uniqueSources(records)
	return matches
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, matches []string, history []string) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, job.JobPayload.Question, matches, history)
}

func (s *service) executeDisclaimerStep(log *logger_i.Logger, job *jobModel.Job, answer string) string {
	*job = logOutput(*job, jobModel.DisclaimerCall, log)
	return s.gate.AddDisclaimer(answer, job.JobPayload.Question)
}

func uniqueSources(records []commonModels.RetrievalRecord) []string {
	seen := make(map[string]struct{}, len(records))
	sources := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Chunk.Source]; ok {
			continue
		}
		seen[r.Chunk.Source] = struct{}{}
		sources = append(sources, r.Chunk.Source)
	}
	return sources
}

// preview keeps the first ContentPreviewSize characters without splitting a rune
func preview(text string) string {
	if utf8.RuneCountInString(text) <= config.ContentPreviewSize {
		return text
	}
	runes := []rune(text)
	return string(runes[:config.ContentPreviewSize])
}

func resolveDocType(filename, declared string) (commonModels.DocType, error) {
	fromName, err := commonModels.DocTypeFromFilename(filename)
	if err != nil {
		return "", err
	}
	if declared == "" {
		return fromName, nil
	}
	return commonModels.ParseDocType(declared)
}

func (s *service) removeFile(log *logger_i.Logger, path string) {
	if err := s.files.Remove(path); err != nil {
		log.Error("Failed to remove stored file", "path", path, "error", err)
	}
}

// audit is best effort; the caller's result never depends on it
func (s *service) recordEvent(ctx context.Context, event commonModels.SecurityEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordEvent(ctx, event); err != nil {
		s.logger.ForRequest(ctx).Error("Failed to record security event", "event", event.EventType, "error", err)
	}
}
