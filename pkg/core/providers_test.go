package core_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/embedder"
	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

func TestNewDocumentStoreSQLite(t *testing.T) {
	cfg := core.DefaultConfig().Store
	cfg.PersistencePath = t.TempDir()

	store, err := core.NewDocumentStore(cfg, "gamer")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.FileExists(t, filepath.Join(cfg.PersistencePath, "gamer_mem.db"))

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, []*storage.Document{
		{ID: 1, Text: "hello", Embedding: []float64{1, 0}, Kind: "MEMORY", Timestamp: time.Unix(10, 0)},
	}))
	docs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello", docs[0].Text)
}

func TestNewDocumentStoreErrors(t *testing.T) {
	cfg := core.DefaultConfig().Store
	cfg.PersistencePath = t.TempDir()

	_, err := core.NewDocumentStore(cfg, "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	cfg.Provider = "redis"
	_, err = core.NewDocumentStore(cfg, "gamer")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestSQLitePath(t *testing.T) {
	cfg := core.StoreConfig{PersistencePath: "data"}
	assert.Equal(t, filepath.Join("data", "run_gamer_mem.db"), core.SQLitePath(cfg, "run_gamer"))
}

func TestNewLLM(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "ollama"} {
		t.Run(provider, func(t *testing.T) {
			p, err := core.NewLLM(core.LLMConfig{Provider: provider, APIKey: "test-key"})
			require.NoError(t, err)
			assert.NoError(t, p.Close())
		})
	}

	_, err := core.NewLLM(core.LLMConfig{Provider: "deepseek"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestNewEmbedder(t *testing.T) {
	p, err := core.NewEmbedder(core.EmbedderConfig{Provider: "hash", Dimensions: 16})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()
	_, cached := p.(*embedder.Cached)
	assert.True(t, cached)
	assert.Equal(t, 16, p.Dimensions())

	raw, err := core.NewEmbedder(core.EmbedderConfig{Provider: "hash", CacheSize: -1})
	require.NoError(t, err)
	_, cached = raw.(*embedder.Cached)
	assert.False(t, cached)

	_, err = core.NewEmbedder(core.EmbedderConfig{Provider: "qwen"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
