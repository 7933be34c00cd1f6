// ABOUTME: MCP tool handler implementations for the classifier server
// ABOUTME: Tool failures are returned as tool error results, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/engine"
	"github.com/harper/comment-classifier/internal/llm"
	"github.com/harper/comment-classifier/internal/models"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	config   *config.Config
	tasks    map[string]*config.Task
	provider llm.Provider
	logger   *log.Logger

	mu      *sync.Mutex
	engines map[string]*engine.Engine // by task name
}

// engineFor builds (once) the engine for a task
func (h *Handlers) engineFor(name string) (*engine.Engine, error) {
	if name == "" {
		name = config.DefaultTask
	}
	task, ok := h.tasks[name]
	if !ok {
		return nil, fmt.Errorf("unknown task %q (available: %v)", name, config.TaskNames(h.tasks))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.engines[name]; ok {
		return e, nil
	}

	e, err := engine.New(engine.Options{
		Config:   h.config,
		Task:     task,
		Provider: h.provider,
		Logger:   h.logger.With("task", name),
	})
	if err != nil {
		return nil, err
	}
	h.engines[name] = e
	return e, nil
}

// ClassifyText handles the classify_text tool
func (h *Handlers) ClassifyText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	if h.provider == nil {
		return mcp.NewToolResultError("no API key configured for " + h.config.Provider), nil
	}

	e, err := h.engineFor(request.GetString("task", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := request.GetString("comment_id", "")
	if id == "" {
		id = uuid.New().String()
	}

	result, err := e.Pipeline.ClassifyComment(ctx, models.Comment{ID: id, Text: text})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
	}
	h.logger.Info("classified", "comment", id, "task", e.Task.Name, "label", result.FinalLabel)

	votes := make(map[string]int, len(result.VoteCounts))
	for c, n := range result.VoteCounts {
		votes[string(c)] = n
	}
	response := map[string]interface{}{
		"comment_id":         result.CommentID,
		"task":               e.Task.Name,
		"model":              e.Model,
		"label":              string(result.FinalLabel),
		"votes":              votes,
		"unparseable_chunks": result.UnparseableChunks,
		"chunk_count":        result.ChunkCount,
		"tied":               result.Tied,
		"state":              string(result.State),
	}
	return jsonResult(response)
}

// EstimateTokens handles the estimate_tokens tool
func (h *Handlers) EstimateTokens(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	e, err := h.engineFor(request.GetString("task", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := e.Pipeline.Estimate(ctx, []models.Comment{{ID: "text", Text: text}})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("estimate failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"task":          e.Task.Name,
		"estimator":     report.Estimator,
		"chunks":        report.Chunks,
		"chunk_tokens":  report.ChunkTokens,
		"prompt_tokens": report.PromptTokens,
		"total_tokens":  report.TotalTokens(),
		"cost":          report.Cost(),
	}
	return jsonResult(response)
}

// ListTasks handles the list_tasks tool
func (h *Handlers) ListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks := make([]map[string]interface{}, 0, len(h.tasks))
	for _, name := range config.TaskNames(h.tasks) {
		t := h.tasks[name]
		tasks = append(tasks, map[string]interface{}{
			"name":         t.Name,
			"description":  t.Description,
			"label_column": t.Column(),
			"categories":   t.Categories,
		})
	}
	return jsonResult(map[string]interface{}{"tasks": tasks})
}

func jsonResult(response map[string]interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
