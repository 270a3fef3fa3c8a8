package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
)

const (
	toolAnswer      = "answer_legal_question"
	toolAnswerBatch = "answer_legal_questions"
	toolSystemInfo  = "system_info"
)

// NewServer exposes the query service as MCP tools.
func NewServer(version string, queries ports.QueryService) *server.MCPServer {
	s := server.NewMCPServer(
		"legal-rag",
		version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(answerTool(), handleAnswer(queries))
	s.AddTool(answerBatchTool(), handleAnswerBatch(queries))
	s.AddTool(systemInfoTool(), handleSystemInfo(queries))
	return s
}

func systemArgument() mcp.ToolOption {
	return mcp.WithString("system",
		mcp.Description(`Execution mode: "single-agent" or "multi-agent" (default)`),
	)
}

func answerTool() mcp.Tool {
	return mcp.NewTool(toolAnswer,
		mcp.WithDescription("Answer a legal question from the per-jurisdiction legal corpus, with sources and coverage"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Legal question in natural language"),
		),
		systemArgument(),
	)
}

func answerBatchTool() mcp.Tool {
	return mcp.NewTool(toolAnswerBatch,
		mcp.WithDescription("Answer several legal questions; failed questions are reported inline"),
		mcp.WithArray("questions",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Questions, answered in order"),
		),
		systemArgument(),
	)
}

func systemInfoTool() mcp.Tool {
	return mcp.NewTool(toolSystemInfo,
		mcp.WithDescription("Describe the active models, vector stores and retrieval settings"),
	)
}

func handleAnswer(queries ports.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError("question parameter is required"), nil
		}
		result, err := queries.Answer(ctx, question, request.GetString("system", ""))
		if err != nil {
			return failureResult(toolAnswer, err), nil
		}
		return jsonResult(result)
	}
}

func handleAnswerBatch(queries ports.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		questions := request.GetStringSlice("questions", nil)
		if questions == nil {
			return mcp.NewToolResultError("questions parameter is required"), nil
		}
		result, err := queries.AnswerBatch(ctx, questions, request.GetString("system", ""))
		if err != nil {
			return failureResult(toolAnswerBatch, err), nil
		}
		return jsonResult(result)
	}
}

func handleSystemInfo(queries ports.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := queries.SystemInfo(ctx)
		if err != nil {
			return failureResult(toolSystemInfo, err), nil
		}
		return jsonResult(info)
	}
}

func failureResult(tool string, err error) *mcp.CallToolResult {
	failure := domain.NewFailure(err)
	slog.Error("mcp_tool_failed", "tool", tool, "type", failure.Kind, "error", err)
	return mcp.NewToolResultError(failure.String())
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(strings.TrimSpace(b.String())), nil
}
