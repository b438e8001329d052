package mcpServer

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const documentsURI = "cyberscholar://documents"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Uploaded documents of the served owner",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)
}

func (s *Server) handleDocumentsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(out.Documents)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
