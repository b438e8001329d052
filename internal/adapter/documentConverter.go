package adapter

import (
	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
)

// ToDocumentResponse leaves out the storage path; it never leaves the server
func ToDocumentResponse(doc commonModels.Document) api.DocumentResponse {
	return api.DocumentResponse{
		Source:         doc.Source,
		Filename:       doc.Filename,
		ContentType:    string(doc.ContentType),
		MimeType:       doc.MimeType,
		Size:           doc.Size,
		Digest:         doc.Digest,
		ChunkCount:     doc.ChunkCount,
		ContentPreview: doc.ContentPreview,
		IngestedAt:     doc.IngestedAt,
	}
}

func ToDocumentListResponse(docs []commonModels.Document) api.DocumentListResponse {
	res := api.DocumentListResponse{Documents: make([]api.DocumentResponse, 0, len(docs))}
	for _, d := range docs {
		res.Documents = append(res.Documents, ToDocumentResponse(d))
	}
	return res
}

func ToIngestResponse(r commonModels.IngestResult) api.IngestResponse {
	return api.IngestResponse{
		Source:     r.Source,
		ChunkCount: r.ChunkCount,
		Digest:     r.Digest,
		Size:       r.Size,
	}
}

func ToIntegrityResponse(r commonModels.IntegrityReport) api.IntegrityResponse {
	return api.IntegrityResponse{
		Source:   r.Source,
		Verified: r.Verified,
		Status:   string(r.Status),
	}
}

func ToRetrieveResponse(query string, records []commonModels.RetrievalRecord) api.RetrieveResponse {
	res := api.RetrieveResponse{Query: query, Results: make([]api.RetrievalResult, 0, len(records))}
	for _, r := range records {
		res.Results = append(res.Results, api.RetrievalResult{
			ChunkId:  r.Chunk.Id,
			Source:   r.Chunk.Source,
			Content:  r.Chunk.Content,
			Score:    r.Score,
			Distance: r.Distance,
		})
	}
	return res
}
