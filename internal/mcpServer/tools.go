package mcpServer

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to match against uploaded documents"`
	K     int    `json:"k,omitempty" jsonschema:"number of chunks to return (default 5, max 50)"`
}

type RetrieveOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

type ChunkOutput struct {
	ChunkId string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type FilterInput struct {
	Text string `json:"text" jsonschema:"the query to classify"`
}

type FilterOutput struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	// the query itself when allowed, otherwise the refusal text
	Payload string `json:"payload"`
}

type ListInput struct{}

type DocumentOutput struct {
	Source     string `json:"source"`
	Filename   string `json:"filename"`
	Type       string `json:"content_type"`
	ChunkCount int    `json:"chunk_count"`
	IngestedAt string `json:"ingested_at"`
}

type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
}

var errEmptyQuery = errors.New("query must not be empty")

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the uploaded document chunks that best match a query",
	}, s.handleRetrieve)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "filter_query",
		Description: "Check whether a query is in scope for the assistant and free of banned intent",
	}, s.handleFilter)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents, newest first",
	}, s.handleList)
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, RetrieveOutput{}, errEmptyQuery
	}
	k := input.K
	if k <= 0 {
		k = config.DefaultRetrievalCount
	}

	records, err := s.documents.Retrieve(ctx, s.ownerId, query, k)
	if err != nil {
		s.logger.Error("Retrieve failed", "error", err)
		return nil, RetrieveOutput{}, err
	}
	out := RetrieveOutput{Results: make([]ChunkOutput, len(records)), Count: len(records)}
	for i, r := range records {
		out.Results[i] = ChunkOutput{ChunkId: r.Chunk.Id, Source: r.Chunk.Source, Content: r.Chunk.Content, Score: r.Score}
	}
	return nil, out, nil
}

func (s *Server) handleFilter(_ context.Context, _ *mcp.CallToolRequest, input FilterInput) (*mcp.CallToolResult, FilterOutput, error) {
	v := s.documents.FilterQuery(input.Text)
	return nil, FilterOutput{Allowed: v.Allowed, Reason: v.Reason, Payload: v.Payload}, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	out, err := s.listDocuments(ctx)
	return nil, out, err
}

func (s *Server) listDocuments(ctx context.Context) (ListOutput, error) {
	docs, err := s.documents.ListDocuments(ctx, s.ownerId)
	if err != nil {
		return ListOutput{}, err
	}
	out := ListOutput{Documents: make([]DocumentOutput, len(docs))}
	for i, d := range docs {
		out.Documents[i] = DocumentOutput{
			Source:     d.Source,
			Filename:   d.Filename,
			Type:       string(d.ContentType),
			ChunkCount: d.ChunkCount,
			IngestedAt: d.IngestedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return out, nil
}
