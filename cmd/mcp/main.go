package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/CyberScholar/internal/api"
	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/store"
	"github.com/akolanti/CyberScholar/internal/fileStore"
	"github.com/akolanti/CyberScholar/internal/mcpServer"
	"github.com/akolanti/CyberScholar/internal/rag"
	"github.com/akolanti/CyberScholar/internal/rag/safety"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB/lexicalDB"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

// stdout belongs to the protocol, logs go to stderr
func main() {
	var ownerId string
	flag.StringVar(&ownerId, "owner", os.Getenv("CYBERSCHOLAR_OWNER"), "owner whose documents are served")
	flag.Parse()

	logger_i.InitWriter(os.Stderr)
	logger := logger_i.NewLogger("mcp")

	if err := api.ValidateOwnerId(ownerId); err != nil {
		logger.Error("Invalid owner id", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores := store.Open(ctx)
	files, err := fileStore.New(config.UploadDir)
	if err != nil {
		logger.Error("Upload dir unavailable", "dir", config.UploadDir, "error", err)
		os.Exit(1)
	}
	gate, err := safety.NewGate()
	if err != nil {
		logger.Error("Safety patterns failed to load", "error", err)
		os.Exit(1)
	}

	ragService := rag.NewService(rag.ServiceConfig{
		Index:     lexicalDB.NewStore(),
		Gate:      gate,
		Documents: stores.Documents,
		Audit:     stores.Audit,
		Files:     files,
	})

	server, err := mcpServer.NewServer(ragService, ownerId)
	if err != nil {
		logger.Error("Could not build MCP server", "error", err)
		os.Exit(1)
	}
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", "error", err)
		os.Exit(1)
	}
}
