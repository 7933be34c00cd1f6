// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents like Claude classify comments via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the classifier as an MCP (Model Context Protocol) server, so
LLM agents like Claude can classify single comments, estimate their
token cost and list the available tasks via stdio.

Provider, model and task file come from the same CLASSIFY_*
environment variables as the run command. Logs go to stderr.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  classify mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "classify": {
  #       "command": "classify",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout belongs to the protocol
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, _, err := mcp.NewServer(ctx, cfg, versionInfo.Version, logger)
	if err != nil {
		return err
	}

	logger.Info("classifier MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
