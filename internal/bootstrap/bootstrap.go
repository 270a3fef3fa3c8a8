package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kirillkom/legal-rag-api/internal/config"
	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
	"github.com/kirillkom/legal-rag-api/internal/core/usecase"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/backend/local"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/backend/remote"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/llm/openai"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/queue/nats"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/vectorstore"
)

const (
	backendRemote = "remote"
	backendLocal  = "local"

	providerOllama = "ollama"
	providerOpenAI = "openai"
)

// Options carries the observers each entrypoint plugs in.
type Options struct {
	QueryObserver      ports.QueryObserver
	ResilienceObserver resilience.Observer
	QueueLagObserver   func(time.Duration)
	// FS backs vector store discovery; nil means the OS filesystem.
	FS afero.Fs
}

type App struct {
	Config config.Config

	Queries        ports.QueryService
	BatchJobs      ports.BatchJobSubmitter
	BatchJobReader ports.BatchJobReader
	BatchProcessor ports.BatchJobProcessor
	Queue          ports.MessageQueue

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	executor := resilience.NewExecutor(
		resilience.FromSettings(cfg.ResilienceBreakerEnabled, cfg.ResilienceRetryMaxAttempts),
		opts.ResilienceObserver,
	)

	backend, err := buildBackend(cfg, executor)
	if err != nil {
		return nil, err
	}

	configs := usecase.NewConfigStore(cfg.RAGDefaults(), vectorstore.NewLocator(opts.FS))
	queries := usecase.NewQueryUseCase(configs, backend, opts.QueryObserver)

	app := &App{
		Config:  cfg,
		Queries: queries,
	}
	if !cfg.BatchJobsEnabled {
		return app, nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewBatchJobRepository(db)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		QueueLagObserver:   opts.QueueLagObserver,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	app.Queue = queue
	app.BatchJobs = usecase.NewSubmitBatchJobUseCase(repo, queue, cfg.BatchJobMaxQuestions)
	app.BatchJobReader = repo
	app.BatchProcessor = usecase.NewProcessBatchJobUseCase(repo, queries)
	app.closeFn = func() {
		queue.Close()
		_ = db.Close()
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildBackend(cfg config.Config, executor *resilience.Executor) (ports.AnsweringBackend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.RAGBackend)) {
	case backendRemote, "":
		timeout := time.Duration(cfg.RemoteTimeoutSeconds) * time.Second
		return remote.New(cfg.RemoteURL, timeout, executor), nil
	case backendLocal:
		embedder, err := buildEmbedder(cfg, executor)
		if err != nil {
			return nil, err
		}
		generator, err := buildGenerator(cfg, executor)
		if err != nil {
			return nil, err
		}
		return local.New(embedder, qdrant.New(cfg.QdrantURL, executor), generator), nil
	default:
		return nil, unsupported("answering backend", cfg.RAGBackend)
	}
}

func buildEmbedder(cfg config.Config, executor *resilience.Executor) (ports.QueryEmbedder, error) {
	selection := cfg.RAG.Embeddings
	switch strings.ToLower(selection.Provider) {
	case providerOllama:
		return ollama.NewEmbedder(ollama.New(cfg.OllamaURL, executor), selection.Model), nil
	case providerOpenAI:
		return openai.NewEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, selection.Model, executor), nil
	default:
		return nil, unsupported("embeddings provider", selection.Provider)
	}
}

func buildGenerator(cfg config.Config, executor *resilience.Executor) (ports.TextGenerator, error) {
	selection := cfg.RAG.LLM
	switch strings.ToLower(selection.Provider) {
	case providerOllama:
		return ollama.NewGenerator(ollama.New(cfg.OllamaURL, executor), selection.Model), nil
	case providerOpenAI:
		return openai.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, selection.Model, executor), nil
	default:
		return nil, unsupported("llm provider", selection.Provider)
	}
}

func unsupported(what, value string) error {
	return domain.WrapError(domain.ErrConfiguration, "bootstrap", fmt.Errorf("unsupported %s %q", what, value))
}
