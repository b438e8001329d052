package rag_test

import (
	"context"

	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB/lexicalDB"
)

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, query string, matches []string, history []string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, q string, mth []string, hist []string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, q, mth, hist)
	}
	return "mocked llm response", nil
}

// RecordingIndex is the real lexical index with the last requested k kept around
type RecordingIndex struct {
	*lexicalDB.Store
	LastK int
}

func (r *RecordingIndex) Query(ownerId string, text string, k int) []commonModels.RetrievalRecord {
	r.LastK = k
	return r.Store.Query(ownerId, text, k)
}

// MockDocumentStore wraps a real store and lets a test fail writes or act during a listing
type MockDocumentStore struct {
	commonModels.DocumentStore
	OnSaveDocument  func(ctx context.Context, doc commonModels.Document) error
	OnListDocuments func(ctx context.Context, ownerId string) ([]commonModels.Document, error)
}

func (m *MockDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	if m.OnSaveDocument != nil {
		return m.OnSaveDocument(ctx, doc)
	}
	return m.DocumentStore.SaveDocument(ctx, doc)
}

func (m *MockDocumentStore) ListDocuments(ctx context.Context, ownerId string) ([]commonModels.Document, error) {
	if m.OnListDocuments != nil {
		return m.OnListDocuments(ctx, ownerId)
	}
	return m.DocumentStore.ListDocuments(ctx, ownerId)
}
