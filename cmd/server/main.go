// ABOUTME: Main entry point for the classifier MCP server with stdio transport
// ABOUTME: Loads configuration and serves classify_text, estimate_tokens and list_tasks
package main

import (
	"context"
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/logging"
	"github.com/harper/comment-classifier/internal/mcp"
)

var version = "dev"

func main() {
	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Writer: os.Stderr,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	server, _, err := mcp.NewServer(context.Background(), cfg, version, logger)
	if err != nil {
		return err
	}

	logger.Info("classifier MCP server starting on stdio")
	return mcpserver.ServeStdio(server)
}
