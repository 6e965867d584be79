package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/models"
	"github.com/datasage-io/datasage-engine/pkg/schemaindex"
)

// Answerer runs one question through the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (*models.Answer, error)
}

// ToolDeps contains dependencies for the engine's MCP tools.
type ToolDeps struct {
	Pipeline Answerer
	Catalog  *schemaindex.Catalog
	Logger   *zap.Logger
}

// RegisterTools registers ask_database and list_tables on the server.
func RegisterTools(s *server.MCPServer, deps *ToolDeps) {
	registerAskDatabaseTool(s, deps)
	registerListTablesTool(s, deps)
}

// askDatabaseResult is the JSON envelope ask_database returns.
type askDatabaseResult struct {
	Narrative string                `json:"narrative"`
	SQL       *string               `json:"sql,omitempty"`
	Columns   []string              `json:"columns,omitempty"`
	Rows      []models.Row          `json:"rows,omitempty"`
	Metadata  models.AnswerMetadata `json:"metadata"`
}

func registerAskDatabaseTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"ask_database",
		mcp.WithDescription(
			"Ask a natural-language analytics question against the configured databases. "+
				"The engine classifies the question, retrieves relevant schemas, generates and "+
				"validates a read-only SQL statement, executes it under resource limits, and "+
				"returns a narrated answer with the executed SQL and result rows. "+
				"The metadata.outcome field reports whether the question was answered or why not "+
				"(e.g. clarification_needed, no_tables_found, security_rejected).",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The analytics question in natural language, e.g. 'How many orders did we get last month?'"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, askDatabaseHandler(deps))
}

func askDatabaseHandler(deps *ToolDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, fmt.Errorf("question parameter is required: %w", err)
		}

		answer, err := deps.Pipeline.Answer(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("failed to process question: %w", err)
		}

		deps.Logger.Info("MCP question processed",
			zap.String("request_id", answer.Metadata.RequestID),
			zap.String("outcome", answer.Metadata.Outcome))

		jsonResult, err := json.Marshal(askDatabaseResult{
			Narrative: answer.Narrative,
			SQL:       answer.SQL,
			Columns:   answer.Columns,
			Rows:      answer.Rows,
			Metadata:  answer.Metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	}
}

// tableSummary is one catalog entry in the list_tables response.
type tableSummary struct {
	Database    string   `json:"database"`
	Table       string   `json:"table"`
	Description string   `json:"description,omitempty"`
	Columns     []string `json:"columns"`
}

func registerListTablesTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"list_tables",
		mcp.WithDescription(
			"List the tables the engine can answer questions about, with their database, "+
				"description, and column names. Use this to see what data is available before asking.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, listTablesHandler(deps))
}

func listTablesHandler(deps *ToolDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		descriptors := deps.Catalog.Descriptors()
		tables := make([]tableSummary, len(descriptors))
		for i, d := range descriptors {
			columns := make([]string, len(d.Columns))
			for j, c := range d.Columns {
				columns[j] = c.Name
			}
			tables[i] = tableSummary{
				Database:    d.Database,
				Table:       d.Table,
				Description: d.Description,
				Columns:     columns,
			}
		}

		jsonResult, err := json.Marshal(map[string]any{"tables": tables})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	}
}
