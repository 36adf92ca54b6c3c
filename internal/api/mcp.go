package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/orgkb/graphchat/internal/directory"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

// MCPSearcher abstracts vector search for the MCP layer.
type MCPSearcher interface {
	Search(ctx context.Context, collection, text string, topK int) ([]vectorindex.Result, error)
}

// MCPDirectory is the subset of graph lookups exposed over MCP.
type MCPDirectory interface {
	SearchEmployeesByName(ctx context.Context, name string) ([]directory.Employee, error)
}

// MCPDeps holds dependencies for the MCP server. Collection names the vector
// collection semantic_search runs against; empty uses the ingestion default.
type MCPDeps struct {
	Orchestrator QueryProcessor
	Directory    MCPDirectory
	Searcher     MCPSearcher
	Collection   string
}

// NewMCPServer registers the chatbot tools for MCP clients (stdio transport).
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Collection == "" {
		deps.Collection = vectorindex.DefaultCollection
	}
	s := server.NewMCPServer(
		"graphchat",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("graphchat — company knowledge graph assistant: employees, departments, skills, projects."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the company knowledge assistant a natural-language question (Vietnamese or English)."),
			mcp.WithString("question", mcp.Description("The question to ask"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("search_employees",
			mcp.WithDescription("Find employees by (partial) name."),
			mcp.WithString("name", mcp.Description("Name to search for"), mcp.Required()),
		),
		mcpSearchEmployees(deps),
	)

	s.AddTool(
		mcp.NewTool("semantic_search",
			mcp.WithDescription("Semantically search the knowledge base and return scored snippets."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSemanticSearch(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		resp := deps.Orchestrator.Process(ctx, question, "", "mcp")
		return mcpText(resp.Response), nil
	}
}

func mcpSearchEmployees(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		employees, err := deps.Directory.SearchEmployeesByName(ctx, name)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		type employeeResult struct {
			Name       string `json:"name"`
			Position   string `json:"position,omitempty"`
			Department string `json:"department,omitempty"`
			Email      string `json:"email,omitempty"`
		}
		results := make([]employeeResult, len(employees))
		for i, e := range employees {
			results[i] = employeeResult{
				Name:       e.Name,
				Position:   e.Position,
				Department: e.Department,
				Email:      e.Email,
			}
		}
		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSemanticSearch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		hits, err := deps.Searcher.Search(ctx, deps.Collection, query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		type hitResult struct {
			ID      string  `json:"id"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
			Name    string  `json:"name,omitempty"`
		}
		results := make([]hitResult, len(hits))
		for i, h := range hits {
			results[i] = hitResult{ID: h.ID, Content: h.Content, Score: h.Score, Name: h.Metadata["name"]}
		}
		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
