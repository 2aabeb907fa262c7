package core

import (
	"fmt"
	"path/filepath"

	"github.com/oceanbase/powerpersona-go/pkg/embedder"
	hashEmbedder "github.com/oceanbase/powerpersona-go/pkg/embedder/hash"
	ollamaEmbedder "github.com/oceanbase/powerpersona-go/pkg/embedder/ollama"
	openaiEmbedder "github.com/oceanbase/powerpersona-go/pkg/embedder/openai"
	"github.com/oceanbase/powerpersona-go/pkg/llm"
	anthropicLLM "github.com/oceanbase/powerpersona-go/pkg/llm/anthropic"
	ollamaLLM "github.com/oceanbase/powerpersona-go/pkg/llm/ollama"
	openaiLLM "github.com/oceanbase/powerpersona-go/pkg/llm/openai"
	"github.com/oceanbase/powerpersona-go/pkg/storage"
	"github.com/oceanbase/powerpersona-go/pkg/storage/oceanbase"
	postgresStore "github.com/oceanbase/powerpersona-go/pkg/storage/postgres"
	sqliteStore "github.com/oceanbase/powerpersona-go/pkg/storage/sqlite"
)

// SQLitePath returns the database file of a persona: <persistence_path>/<persistence_id>_mem.db.
func SQLitePath(cfg StoreConfig, persistenceID string) string {
	return filepath.Join(cfg.PersistencePath, persistenceID+"_mem.db")
}

// NewDocumentStore opens the persistence backend of one persona.
func NewDocumentStore(cfg StoreConfig, persistenceID string) (storage.DocumentStore, error) {
	if persistenceID == "" {
		return nil, NewPersonaError("NewDocumentStore", wrapf(ErrInvalidInput, "empty persistence id"))
	}

	table := cfg.Table
	if table == "" && cfg.Provider != "sqlite" {
		table = storage.TableName(persistenceID)
	}

	var (
		store storage.DocumentStore
		err   error
	)
	switch cfg.Provider {
	case "sqlite":
		store, err = sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: SQLitePath(cfg, persistenceID),
			Table:  table,
		})
	case "postgres":
		store, err = postgresStore.NewClient(&postgresStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			Table:    table,
			SSLMode:  cfg.SSLMode,
		})
	case "oceanbase":
		store, err = oceanbase.NewClient(&oceanbase.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			Table:    table,
		})
	default:
		return nil, NewPersonaError("NewDocumentStore", wrapf(ErrInvalidConfig, "unknown store provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, NewPersonaError("NewDocumentStore", fmt.Errorf("%w: %w", ErrPersistence, err))
	}
	return store, nil
}

// NewLLM initializes the LLM provider.
func NewLLM(cfg LLMConfig) (llm.Provider, error) {
	var (
		p   llm.Provider
		err error
	)
	switch cfg.Provider {
	case "openai":
		p, err = openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "anthropic":
		p, err = anthropicLLM.NewClient(&anthropicLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		p, err = ollamaLLM.NewClient(&ollamaLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, NewPersonaError("NewLLM", wrapf(ErrInvalidConfig, "unknown llm provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, NewPersonaError("NewLLM", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return p, nil
}

// NewEmbedder initializes the embedding provider, wrapped in a query cache
// unless CacheSize is negative.
func NewEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	var (
		p   embedder.Provider
		err error
	)
	switch cfg.Provider {
	case "openai":
		p, err = openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "ollama":
		p, err = ollamaEmbedder.NewClient(&ollamaEmbedder.Config{
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "hash":
		p = hashEmbedder.New(cfg.Dimensions)
	default:
		return nil, NewPersonaError("NewEmbedder", wrapf(ErrInvalidConfig, "unknown embedder provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, NewPersonaError("NewEmbedder", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	if cfg.CacheSize < 0 {
		return p, nil
	}
	size := cfg.CacheSize
	if size == 0 {
		size = 1024
	}
	cached, err := embedder.NewCached(p, size)
	if err != nil {
		_ = p.Close()
		return nil, NewPersonaError("NewEmbedder", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return cached, nil
}
