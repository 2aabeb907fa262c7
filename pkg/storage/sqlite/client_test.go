package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/pkg/storage"
	sqliteStore "github.com/oceanbase/powerpersona-go/pkg/storage/sqlite"
)

func setupSQLiteTest(t *testing.T) (*sqliteStore.Client, string) {
	path := filepath.Join(t.TempDir(), "nested", "gamer_mem.db")
	client, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, path
}

func docs(texts ...string) []*storage.Document {
	out := make([]*storage.Document, len(texts))
	for i, text := range texts {
		out[i] = &storage.Document{
			ID:        int64(100 + i),
			Text:      text,
			Embedding: []float64{float64(i), 1},
			Kind:      "MEMORY",
			Timestamp: time.Unix(1700000000+int64(i), 500),
		}
	}
	return out
}

func TestSQLiteLoadEmpty(t *testing.T) {
	client, _ := setupSQLiteTest(t)

	loaded, err := client.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	client, _ := setupSQLiteTest(t)

	require.NoError(t, client.Save(ctx, docs("a", "b", "c")))

	loaded, err := client.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, d := range loaded {
		assert.Equal(t, i, d.Position)
		assert.Equal(t, int64(100+i), d.ID)
		assert.Equal(t, []float64{float64(i), 1}, d.Embedding)
		assert.True(t, d.Timestamp.Equal(time.Unix(1700000000+int64(i), 500)))
	}
	assert.Equal(t, "a", loaded[0].Text)
	assert.Equal(t, "c", loaded[2].Text)
}

func TestSQLiteSaveReplacesCollection(t *testing.T) {
	ctx := context.Background()
	client, _ := setupSQLiteTest(t)

	require.NoError(t, client.Save(ctx, docs("a", "b", "c")))
	require.NoError(t, client.Save(ctx, docs("x")))

	loaded, err := client.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "x", loaded[0].Text)
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	client, path := setupSQLiteTest(t)
	require.NoError(t, client.Save(ctx, docs("kept")))
	require.NoError(t, client.Close())

	reopened, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: path})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "kept", loaded[0].Text)
}

func TestSQLiteSaveCancelledLeavesData(t *testing.T) {
	client, _ := setupSQLiteTest(t)
	require.NoError(t, client.Save(context.Background(), docs("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, client.Save(ctx, docs("b", "c")))

	loaded, err := client.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a", loaded[0].Text)
}
