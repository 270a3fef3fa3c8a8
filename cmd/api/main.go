package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/kirillkom/legal-rag-api/internal/adapters/http"
	"github.com/kirillkom/legal-rag-api/internal/bootstrap"
	"github.com/kirillkom/legal-rag-api/internal/config"
	"github.com/kirillkom/legal-rag-api/internal/observability/logging"
	"github.com/kirillkom/legal-rag-api/internal/observability/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		host        string
		port        string
		singleAgent bool
	)

	cmd := &cobra.Command{
		Use:           "legal-rag-api",
		Short:         "Serve legal questions over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "config error: %v\n", err)
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.APIHost = host
			}
			if cmd.Flags().Changed("port") {
				cfg.APIPort = port
			}
			if singleAgent {
				cfg.RAG.MultiAgent = false
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to listen on")
	cmd.Flags().StringVar(&port, "port", "8000", "port to listen on (defaults to API_PORT)")
	cmd.Flags().BoolVar(&singleAgent, "single-agent", false, "report single-agent as the default mode")
	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		QueryObserver:      httpMetrics,
		ResilienceObserver: httpMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		return err
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Queries:        app.Queries,
		BatchJobs:      app.BatchJobs,
		BatchJobReader: app.BatchJobReader,
		Metrics:        httpMetrics,
	})
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		return err
	}

	addr := net.JoinHostPort(cfg.APIHost, cfg.APIPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listening",
			"addr", addr,
			"backend", cfg.RAGBackend,
			"multi_agent", cfg.RAG.MultiAgent,
			"batch_jobs", cfg.BatchJobsEnabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			logger.Error("api_server_failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
		return err
	}
	logger.Info("api_stopped")
	return nil
}
