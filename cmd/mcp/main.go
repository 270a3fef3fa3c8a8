package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/legal-rag-api/internal/adapters/mcp"
	"github.com/kirillkom/legal-rag-api/internal/bootstrap"
	"github.com/kirillkom/legal-rag-api/internal/config"
	"github.com/kirillkom/legal-rag-api/internal/observability/logging"
)

const version = "1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewStderrJSONLogger("mcp", cfg.LogLevel))

	// Async batch jobs are an HTTP concern.
	cfg.BatchJobsEnabled = false
	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := server.ServeStdio(mcpadapter.NewServer(version, app.Queries)); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
