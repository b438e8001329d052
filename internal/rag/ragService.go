package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/CyberScholar/internal/adapter/utils"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/fileStore"
	"github.com/akolanti/CyberScholar/internal/metrics"
	"github.com/akolanti/CyberScholar/internal/rag/checksum"
	"github.com/akolanti/CyberScholar/internal/rag/ingest"
	"github.com/akolanti/CyberScholar/internal/rag/llm"
	"github.com/akolanti/CyberScholar/internal/rag/safety"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB"
	"github.com/akolanti/CyberScholar/pkg/keyedMutex"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

/*
Service is the public contract; service holds the index, the llm and the stores.
Handlers and the worker only ever see the interface, so tests swap in mocks without
touching callers.
*/

// QueryService is all the worker needs
type QueryService interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []string) jobModel.Job
}

type Service interface {
	QueryService
	IngestDocument(ctx context.Context, ownerId, filename, declaredType string, data []byte) (commonModels.IngestResult, error)
	Retrieve(ctx context.Context, ownerId, query string, k int) ([]commonModels.RetrievalRecord, error)
	VerifyIntegrity(ctx context.Context, ownerId, source string) (commonModels.IntegrityReport, error)
	ListDocuments(ctx context.Context, ownerId string) ([]commonModels.Document, error)
	DeleteDocument(ctx context.Context, ownerId, source string) error
	Reindex(ctx context.Context, ownerId string) (int, error)
	FilterQuery(text string) safety.Verdict
}

// FileStore is the byte store uploads land in
type FileStore interface {
	Write(ownerId, name string, data []byte) (string, error)
	Remove(path string) error
}

type ServiceConfig struct {
	Index     vectorDB.Index
	LLM       llm.Provider
	Gate      *safety.Gate
	Documents commonModels.DocumentStore
	Audit     commonModels.AuditStore
	Files     FileStore
	Now       func() time.Time
}

type service struct {
	index       vectorDB.Index
	llmProvider llm.Provider
	gate        *safety.Gate
	documents   commonModels.DocumentStore
	audit       commonModels.AuditStore
	files       FileStore
	now         func() time.Time
	logger      *logger_i.Logger
	// one owner's index and record changes never interleave
	owners *keyedMutex.KeyedMutex
}

func NewService(cfg ServiceConfig) Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{
		index:       cfg.Index,
		llmProvider: cfg.LLM,
		gate:        cfg.Gate,
		documents:   cfg.Documents,
		audit:       cfg.Audit,
		files:       cfg.Files,
		now:         cfg.Now,
		logger:      logger_i.NewLogger("RAG Service"),
		owners:      keyedMutex.New(),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, messageHistory []string) jobModel.Job {
	inMethodLogger := s.logger.ForRequest(ctx).With("jobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, config.ProcessRequestTimeout)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall

	verdict := s.executeSafetyStep(inMethodLogger, &jobt)
	if !verdict.Allowed {
		return rejectOutput(jobt, verdict.Payload)
	}

	matches := s.executeRetrievalStep(inMethodLogger, &jobt)

	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, matches, messageHistory)
	if err != nil {
		return s.jobError(jobt, &coreErrors.GenerationFailedError{Cause: err}, "LLM_GENERATION_FAILURE", true)
	}

	answer = s.executeDisclaimerStep(inMethodLogger, &jobt, answer)
	return returnOutput(jobt, answer)
}

func (s *service) FilterQuery(text string) safety.Verdict {
	return s.gate.FilterQuery(text)
}

func (s *service) IngestDocument(ctx context.Context, ownerId, filename, declaredType string, data []byte) (commonModels.IngestResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()
	log := s.logger.ForRequest(ctx).With("filename", filename)

	result, err := s.ingest(ctx, log, ownerId, filename, declaredType, data)
	if err != nil {
		metrics.IncrementDocumentsIngested("failed")
		log.Warn("Ingestion failed", "error", err)
		return result, err
	}
	metrics.IncrementDocumentsIngested("ok")
	log.Info("Document ingested", "source", result.Source, "chunks", result.ChunkCount)
	return result, nil
}

func (s *service) ingest(ctx context.Context, log *logger_i.Logger, ownerId, filename, declaredType string, data []byte) (commonModels.IngestResult, error) {
	if int64(len(data)) > config.MaxUploadSize {
		return commonModels.IngestResult{}, coreErrors.ErrSizeExceeded
	}
	if len(data) == 0 {
		return commonModels.IngestResult{}, coreErrors.ErrEmptyFile
	}
	docType, err := resolveDocType(filename, declaredType)
	if err != nil {
		return commonModels.IngestResult{}, err
	}

	source := fileStore.UploadName(filename, utils.GetNewUUID())
	path, err := s.files.Write(ownerId, source, data)
	if err != nil {
		return commonModels.IngestResult{}, err
	}

	var (
		digest string
		chunks []string
		text   string
	)
	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		digest, err = checksum.DigestOfFile(path)
		return err
	})
	group.Go(func() error {
		var err error
		chunks, text, err = ingest.ProcessDocument(path, docType)
		if err == nil && len(chunks) == 0 {
			err = &coreErrors.ExtractionFailedError{Cause: errors.New("document has no extractable text")}
		}
		return err
	})
	if err := group.Wait(); err != nil {
		s.removeFile(log, path)
		return commonModels.IngestResult{}, err
	}

	mime := fileStore.DetectMime(data)
	if docType == commonModels.PDF && mime != "application/pdf" {
		log.Warn("Declared type does not match content", "declared", docType, "detected", mime)
	}

	unlock := s.owners.Lock(ownerId)
	defer unlock()
	s.index.DeleteSource(ownerId, source)
	s.index.Add(ownerId, source, chunks, map[string]any{
		"filename": filename,
		"doc_type": string(docType),
	})

	doc := commonModels.Document{
		OwnerId:        ownerId,
		Source:         source,
		Filename:       filename,
		ContentType:    docType,
		MimeType:       mime,
		Size:           int64(len(data)),
		Digest:         digest,
		ChunkCount:     len(chunks),
		ContentPreview: preview(text),
		StoragePath:    path,
		IngestedAt:     s.now().UTC(),
	}
	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		s.index.DeleteSource(ownerId, source)
		s.removeFile(log, path)
		return commonModels.IngestResult{}, fmt.Errorf("saving document record: %w", err)
	}

	return commonModels.IngestResult{
		Source:     source,
		ChunkCount: len(chunks),
		Digest:     digest,
		Size:       doc.Size,
	}, nil
}

// Retrieve clamps k into [1, MaxRetrievalCount]; k <= 0 means the default
func (s *service) Retrieve(ctx context.Context, ownerId, query string, k int) ([]commonModels.RetrievalRecord, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	if k <= 0 {
		k = config.DefaultRetrievalCount
	}
	k = min(k, config.MaxRetrievalCount)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.index.Query(ownerId, query, k), nil
}

func (s *service) VerifyIntegrity(ctx context.Context, ownerId, source string) (commonModels.IntegrityReport, error) {
	report := commonModels.IntegrityReport{Source: source, Status: commonModels.IntegrityUnknown}
	log := s.logger.ForRequest(ctx).With("source", source)

	doc, found, err := s.documents.GetDocument(ctx, ownerId, source)
	if err != nil {
		return report, err
	}
	if !found {
		return report, nil
	}

	current, err := checksum.DigestOfFile(doc.StoragePath)
	switch {
	case errors.Is(err, coreErrors.ErrFileNotFound):
		report.Status = commonModels.IntegrityFileMissing
		log.Warn("Stored file is missing")
		return report, nil
	case errors.Is(err, coreErrors.ErrEmptyFile):
		// a file truncated to nothing is tampering like any other change
		current = ""
	case err != nil:
		return report, err
	}

	if strings.EqualFold(current, doc.Digest) {
		report.Status = commonModels.IntegrityOk
		report.Verified = true
		return report, nil
	}

	report.Status = commonModels.IntegrityMismatch
	metrics.IncrementIntegrityMismatches()
	log.Warn("Integrity mismatch", "expected", doc.Digest, "actual", current)
	s.recordEvent(ctx, commonModels.SecurityEvent{
		OwnerId:     ownerId,
		EventType:   commonModels.EventIntegrityMismatch,
		Description: "Stored document digest no longer matches",
		Metadata:    map[string]any{"source": source, "expected": doc.Digest, "actual": current},
		CreatedAt:   s.now().UTC(),
	})
	return report, nil
}

func (s *service) ListDocuments(ctx context.Context, ownerId string) ([]commonModels.Document, error) {
	return s.documents.ListDocuments(ctx, ownerId)
}

// DeleteDocument drops the chunks, the file and the record, in that order
func (s *service) DeleteDocument(ctx context.Context, ownerId, source string) error {
	log := s.logger.ForRequest(ctx).With("source", source)
	unlock := s.owners.Lock(ownerId)
	defer unlock()

	doc, found, err := s.documents.GetDocument(ctx, ownerId, source)
	if err != nil {
		return err
	}
	if !found {
		return coreErrors.ErrNotFound
	}

	removed := s.index.DeleteSource(ownerId, source)
	s.removeFile(log, doc.StoragePath)
	if err := s.documents.DeleteDocument(ctx, ownerId, source); err != nil {
		return fmt.Errorf("deleting document record: %w", err)
	}
	log.Info("Document deleted", "chunks", removed)
	return nil
}

// Reindex rebuilds the owner's chunks from the stored files; the index itself does not survive a restart.
// A file that is missing or no longer matches its digest is skipped, tampered text never reaches retrieval.
func (s *service) Reindex(ctx context.Context, ownerId string) (int, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("reindex", time.Since(start)) }()
	log := s.logger.ForRequest(ctx).With("ownerId", ownerId)

	docs, err := s.documents.ListDocuments(ctx, ownerId)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		ok, err := s.reindexDocument(ctx, log.With("source", doc.Source), ownerId, doc.Source)
		if err != nil {
			return indexed, err
		}
		if ok {
			indexed++
		}
	}
	log.Info("Reindexed documents", "indexed", indexed, "stored", len(docs))
	return indexed, nil
}

// reindexDocument re-reads the record under the owner lock, so a document deleted since the listing stays deleted
func (s *service) reindexDocument(ctx context.Context, log *logger_i.Logger, ownerId, source string) (bool, error) {
	unlock := s.owners.Lock(ownerId)
	defer unlock()

	doc, found, err := s.documents.GetDocument(ctx, ownerId, source)
	if err != nil {
		return false, err
	}
	if !found {
		log.Debug("Document deleted before reindex")
		return false, nil
	}

	ok, err := checksum.VerifyFile(doc.StoragePath, doc.Digest)
	if err != nil || !ok {
		log.Warn("Skipping document on reindex", "verified", ok, "error", err)
		return false, nil
	}
	chunks, _, err := ingest.ProcessDocument(doc.StoragePath, doc.ContentType)
	if err != nil {
		log.Warn("Skipping document on reindex", "error", err)
		return false, nil
	}

	s.index.DeleteSource(ownerId, doc.Source)
	s.index.Add(ownerId, doc.Source, chunks, map[string]any{
		"filename": doc.Filename,
		"doc_type": string(doc.ContentType),
	})
	return true, nil
}
