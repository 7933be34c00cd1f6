// ABOUTME: MCP tool definitions and registration for the classifier server
// ABOUTME: Exposes classify_text, estimate_tokens and list_tasks over stdio
package mcp

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/engine"
	"github.com/harper/comment-classifier/internal/llm"
	"github.com/harper/comment-classifier/internal/logging"
)

// RegisterTools registers all MCP tools with the server. provider may be nil,
// in which case classify_text reports that no API key is configured.
func RegisterTools(server *mcpserver.MCPServer, cfg *config.Config, tasks map[string]*config.Task, provider llm.Provider, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	handlers := &Handlers{
		config:   cfg,
		tasks:    tasks,
		provider: provider,
		logger:   logger,
		engines:  make(map[string]*engine.Engine),
		mu:       &sync.Mutex{},
	}

	// 1. classify_text - chunk, classify and vote on one comment
	server.AddTool(mcp.Tool{
		Name:        "classify_text",
		Description: "Classify one public-consultation comment with a task's closed label set. Long text is chunked and the chunk labels are combined by majority vote.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Comment text to classify",
				},
				"task": map[string]interface{}{
					"type":        "string",
					"description": "Task name (see list_tasks); defaults to " + config.DefaultTask,
				},
				"comment_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional id echoed in the result",
				},
			},
			Required: []string{"text"},
		},
	}, handlers.ClassifyText)

	// 2. estimate_tokens - dry-run cost of one comment
	server.AddTool(mcp.Tool{
		Name:        "estimate_tokens",
		Description: "Estimate chunk count and input tokens for a comment without calling any model.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Comment text to estimate",
				},
				"task": map[string]interface{}{
					"type":        "string",
					"description": "Task name; its instruction counts toward prompt tokens",
				},
			},
			Required: []string{"text"},
		},
	}, handlers.EstimateTokens)

	// 3. list_tasks - available classification tasks
	server.AddTool(mcp.Tool{
		Name:        "list_tasks",
		Description: "List the classification tasks with their label column and categories.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListTasks)

	return handlers
}
