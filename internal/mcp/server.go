// ABOUTME: Builds the classifier MCP server from environment configuration
// ABOUTME: Shared by the `classify mcp` command and the standalone server binary
package mcp

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/llm"
	"github.com/harper/comment-classifier/internal/logging"
)

// ServerName is reported to MCP clients during initialization
const ServerName = "Comment Classifier"

// NewServer loads the task catalogue, connects the provider when an API key
// is configured and registers every tool. Without a key the server still
// starts; classify_text then answers with an error result.
func NewServer(ctx context.Context, cfg *config.Config, version string, logger *log.Logger) (*mcpserver.MCPServer, *Handlers, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	tasks, err := config.Tasks(cfg.TaskFile)
	if err != nil {
		return nil, nil, err
	}

	var provider llm.Provider
	if cfg.APIKey != "" {
		provider, err = llm.NewProvider(ctx, llm.ProviderConfig{
			Provider: cfg.Provider,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.Provider, err)
		}
	} else {
		logger.Warn("no API key set; classify_text will be unavailable", "provider", cfg.Provider)
	}

	server := mcpserver.NewMCPServer(ServerName, version)
	handlers := RegisterTools(server, cfg, tasks, provider, logger)
	logger.Debug("registered MCP tools", "tasks", len(tasks), "provider", cfg.Provider)
	return server, handlers, nil
}
