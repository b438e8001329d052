package commonModels

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
)

// Document is one upload. Source is unique per upload and never changes once chunks are indexed.
type Document struct {
	OwnerId        string    `json:"owner_id"`
	Source         string    `json:"source"`
	Filename       string    `json:"filename"`
	ContentType    DocType   `json:"content_type"`
	MimeType       string    `json:"mime_type,omitempty"`
	Size           int64     `json:"size"`
	Digest         string    `json:"digest"`
	ChunkCount     int       `json:"chunk_count"`
	ContentPreview string    `json:"content_preview"`
	StoragePath    string    `json:"storage_path"`
	IngestedAt     time.Time `json:"ingested_at"`
}

type DocChunk struct {
	Id       string         `json:"chunk_id"`
	Source   string         `json:"source"`
	Position int            `json:"position"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// RetrievalRecord ranks a chunk against a query. Never persisted.
type RetrievalRecord struct {
	Chunk    DocChunk
	Score    float64
	Distance float64
}

type DocType string

const (
	PDF  DocType = "pdf"
	TXT  DocType = "txt"
	MD   DocType = "md"
	JSON DocType = "json"
)

var supportedTypes = map[DocType]bool{PDF: true, TXT: true, MD: true, JSON: true}

// ParseDocType normalises a declared type ("PDF", ".md") and rejects anything unsupported.
func ParseDocType(declared string) (DocType, error) {
	t := DocType(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(declared)), "."))
	if !supportedTypes[t] {
		return "", coreErrors.ErrUnsupportedType
	}
	return t, nil
}

// DocTypeFromFilename reads the declared type off the filename extension.
func DocTypeFromFilename(filename string) (DocType, error) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "", coreErrors.ErrUnsupportedType
	}
	return ParseDocType(filename[idx+1:])
}

type IntegrityStatus string

const (
	IntegrityOk          IntegrityStatus = "ok"
	IntegrityMismatch    IntegrityStatus = "mismatch"
	IntegrityFileMissing IntegrityStatus = "file_missing"
	IntegrityUnknown     IntegrityStatus = "unknown"
)

type IntegrityReport struct {
	Source   string          `json:"source"`
	Verified bool            `json:"verified"`
	Status   IntegrityStatus `json:"status"`
}

type IngestResult struct {
	Source     string `json:"source"`
	ChunkCount int    `json:"chunk_count"`
	Digest     string `json:"digest"`
	Size       int64  `json:"size"`
}

type SecurityEvent struct {
	OwnerId     string         `json:"owner_id"`
	EventType   string         `json:"event_type"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

const (
	EventIntegrityMismatch    = "integrity_mismatch"
	EventChatPasswordSet      = "chat_password_set"
	EventChatPasswordChanged  = "chat_password_changed"
	EventChatPasswordFailed   = "chat_password_failed"
	EventChatLocked           = "chat_locked"
	EventChatSecurityDisabled = "chat_security_disabled"
)

type DocumentStore interface {
	SaveDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, ownerId string, source string) (Document, bool, error)
	ListDocuments(ctx context.Context, ownerId string) ([]Document, error)
	DeleteDocument(ctx context.Context, ownerId string, source string) error
}

type AuditStore interface {
	RecordEvent(ctx context.Context, event SecurityEvent) error
	ListEvents(ctx context.Context, ownerId string) ([]SecurityEvent, error)
}
