package vectorDB

import (
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
)

// Index is the owner scoped retrieval store. Any replacement (a real embedding index)
// must keep this contract: ranked top-k, exact metadata filtering, idempotent delete.
type Index interface {
	Add(ownerId string, source string, chunks []string, extra map[string]any) int
	Query(ownerId string, text string, k int) []commonModels.RetrievalRecord
	GetByMetadata(ownerId string, filter map[string]any) []commonModels.DocChunk
	Delete(ownerId string, ids []string)
	DeleteSource(ownerId string, source string) int
}

const (
	MetaSource   = "source"
	MetaPosition = "position"
	MetaOwner    = "owner_id"
)
