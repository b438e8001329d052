package mcpServer

import (
	"context"
	"errors"

	"github.com/akolanti/CyberScholar/internal/rag"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

var (
	ErrMissingService = errors.New("mcp: rag service is required")
	ErrMissingOwner   = errors.New("mcp: owner id is required")
)

// Server exposes one owner's documents to an MCP client.
// Every tool runs with the owner it was started for, the client cannot pick another.
type Server struct {
	documents rag.Service
	ownerId   string
	server    *mcp.Server
	logger    *logger_i.Logger
}

func NewServer(documents rag.Service, ownerId string) (*Server, error) {
	if documents == nil {
		return nil, ErrMissingService
	}
	if ownerId == "" {
		return nil, ErrMissingOwner
	}

	s := &Server{
		documents: documents,
		ownerId:   ownerId,
		server:    mcp.NewServer(&mcp.Implementation{Name: "cyberscholar", Version: Version}, nil),
		logger:    logger_i.NewLogger("MCP").With("ownerId", ownerId),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run rebuilds the owner's index, then serves over stdio until ctx is cancelled or the client hangs up
func (s *Server) Run(ctx context.Context) error {
	indexed, err := s.documents.Reindex(ctx, s.ownerId)
	if err != nil {
		return err
	}
	s.logger.Info("Serving MCP over stdio", "documents", indexed)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
