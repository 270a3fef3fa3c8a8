package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
)

// ConfigStore owns the process-wide RAG configuration. The base record is
// frozen on first resolution; callers only ever receive copies.
type ConfigStore struct {
	defaults domain.RAGConfig
	locator  ports.VectorStoreLocator

	once sync.Once
	base domain.RAGConfig
}

func NewConfigStore(defaults domain.RAGConfig, locator ports.VectorStoreLocator) *ConfigStore {
	return &ConfigStore{
		defaults: defaults.Clone(),
		locator:  locator,
	}
}

// Resolve returns a snapshot of the base configuration with the vector store
// directories discovered at call time.
func (s *ConfigStore) Resolve(ctx context.Context) (domain.RAGConfig, error) {
	s.once.Do(func() {
		s.base = s.defaults.Clone()
	})

	cfg := s.base.Clone()
	dirs, err := s.discover(ctx, cfg.VectorStoreBaseDir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return domain.RAGConfig{}, err
		}
		return domain.RAGConfig{}, domain.WrapError(domain.ErrConfiguration, "discover vector stores", err)
	}
	if len(dirs) == 0 {
		dirs = []string{cfg.DefaultVectorStoreDir}
	}
	cfg.VectorStoreDirs = dirs
	return cfg, nil
}

func (s *ConfigStore) discover(ctx context.Context, baseDir string) ([]string, error) {
	if s.locator == nil || baseDir == "" {
		return nil, nil
	}
	return s.locator.Discover(ctx, baseDir)
}
