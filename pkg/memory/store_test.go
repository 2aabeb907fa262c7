package memory_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/memory"
	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

var vocabulary = []string{"ramen", "games", "cats", "music"}

// topicEmbedder counts vocabulary words, so texts about the same topics have
// identical directions.
type topicEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (e *topicEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail {
		return nil, errors.New("embedding service down")
	}
	v := make([]float64, len(vocabulary))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for i, topic := range vocabulary {
			if w == topic {
				v[i]++
			}
		}
	}
	return v, nil
}

func (e *topicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *topicEmbedder) Dimensions() int { return len(vocabulary) }
func (e *topicEmbedder) Close() error    { return nil }

func (e *topicEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// memoryBackend is an in-memory storage.DocumentStore.
type memoryBackend struct {
	mu    sync.Mutex
	docs  []*storage.Document
	saves int
	fail  bool
}

func (b *memoryBackend) Load(context.Context) ([]*storage.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*storage.Document(nil), b.docs...), nil
}

func (b *memoryBackend) Save(_ context.Context, docs []*storage.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("disk full")
	}
	b.saves++
	b.docs = append([]*storage.Document(nil), docs...)
	return nil
}

func (b *memoryBackend) Close() error { return nil }

func newStore(t *testing.T, capacity int) (*memory.Store, *memoryBackend, *topicEmbedder) {
	t.Helper()
	backend := &memoryBackend{}
	emb := &topicEmbedder{}
	s, err := memory.New(context.Background(), backend, emb, memory.WithMaxDocuments(capacity))
	require.NoError(t, err)
	return s, backend, emb
}

func at(sec int) time.Time {
	return time.Unix(int64(1700000000+sec), 0)
}

func TestAddDocumentBelowCapacity(t *testing.T) {
	ctx := context.Background()
	s, backend, _ := newStore(t, 10)

	for i := 0; i < 7; i++ {
		require.NoError(t, s.AddDocument(ctx, fmt.Sprintf("doc %d", i), core.KindMemory, at(i)))
	}

	snap := s.GetAllDocuments()
	assert.Equal(t, 7, snap.Len())
	assert.Len(t, snap.Embeddings, 7)
	assert.Len(t, snap.Metadata, 7)
	assert.Equal(t, 7, s.Len())
	assert.Equal(t, 7, backend.saves)
	assert.Len(t, backend.docs, 7)
}

func TestAddDocumentEvictsOldestFirst(t *testing.T) {
	ctx := context.Background()
	s, backend, _ := newStore(t, 5)

	for i := 0; i < 8; i++ {
		require.NoError(t, s.AddDocument(ctx, fmt.Sprintf("doc %d", i), core.KindMemory, at(i)))
	}

	snap := s.GetAllDocuments()
	require.Equal(t, 5, snap.Len())
	assert.Len(t, snap.Embeddings, 5)
	assert.Len(t, snap.Metadata, 5)
	// Survivors keep their insertion order.
	assert.Equal(t, []string{"doc 3", "doc 4", "doc 5", "doc 6", "doc 7"}, snap.Documents)
	for i, m := range snap.Metadata {
		assert.Equal(t, at(i+3), m.Timestamp)
	}

	require.Len(t, backend.docs, 5)
	for i, d := range backend.docs {
		assert.Equal(t, i, d.Position)
		assert.Equal(t, snap.Documents[i], d.Text)
	}
}

func TestAddDocumentAssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 10)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddDocument(ctx, "x", core.KindMemory, time.Time{}))
	}

	seen := map[int64]bool{}
	for _, m := range s.GetAllDocuments().Metadata {
		assert.False(t, seen[m.ID])
		seen[m.ID] = true
		assert.False(t, m.Timestamp.IsZero())
	}
}

func TestAddDocumentErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid kind", func(t *testing.T) {
		s, _, emb := newStore(t, 5)
		err := s.AddDocument(ctx, "x", core.DocumentKind("NOTE"), at(0))
		assert.ErrorIs(t, err, core.ErrInvalidKind)
		assert.Zero(t, emb.Calls())
	})

	t.Run("embedding failure", func(t *testing.T) {
		s, backend, emb := newStore(t, 5)
		emb.fail = true
		err := s.AddDocument(ctx, "x", core.KindMemory, at(0))
		assert.ErrorIs(t, err, core.ErrEmbeddingFailed)
		assert.Zero(t, s.Len())
		assert.Zero(t, backend.saves)
	})

	t.Run("persistence failure leaves the store unchanged", func(t *testing.T) {
		s, backend, _ := newStore(t, 2)
		require.NoError(t, s.AddDocument(ctx, "first", core.KindMemory, at(0)))
		require.NoError(t, s.AddDocument(ctx, "second", core.KindMemory, at(1)))

		backend.fail = true
		err := s.AddDocument(ctx, "third", core.KindMemory, at(2))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrPersistence)

		var pe *core.PersonaError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "AddDocument", pe.Op)

		assert.Equal(t, []string{"first", "second"}, s.GetAllDocuments().Documents)

		backend.fail = false
		require.NoError(t, s.AddDocument(ctx, "third", core.KindMemory, at(2)))
		assert.Equal(t, []string{"second", "third"}, s.GetAllDocuments().Documents)
	})
}

func TestQueryMultipleEmpty(t *testing.T) {
	ctx := context.Background()
	s, _, emb := newStore(t, 5)

	got, err := s.QueryMultiple(ctx, []string{"ramen"}, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, s.AddDocument(ctx, "ramen night", core.KindMemory, at(0)))
	calls := emb.Calls()

	got, err = s.QueryMultiple(ctx, nil, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, calls, emb.Calls())
}

func TestQueryMultipleRanking(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 10)

	require.NoError(t, s.AddDocument(ctx, "cats are great", core.KindMemory, at(0)))
	require.NoError(t, s.AddDocument(ctx, "ramen with cats", core.KindMemory, at(1)))
	require.NoError(t, s.AddDocument(ctx, "best ramen ever", core.KindMemory, at(2)))
	require.NoError(t, s.AddDocument(ctx, "music all day", core.KindMemory, at(3)))

	got, err := s.QueryMultiple(ctx, []string{"ramen"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"best ramen ever", "ramen with cats"}, got)
}

func TestQueryMultipleConcatenatesWithoutDedup(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 10)

	require.NoError(t, s.AddDocument(ctx, "ramen and games", core.KindMemory, at(0)))
	require.NoError(t, s.AddDocument(ctx, "music", core.KindMemory, at(1)))

	got, err := s.QueryMultiple(ctx, []string{"ramen", "games"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ramen and games", "ramen and games"}, got)
}

func TestQueryMultipleTieBreaksOnRecency(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 10)

	// Inserted newest first so insertion order cannot explain the result.
	require.NoError(t, s.AddDocument(ctx, "ramen (new)", core.KindMemory, at(200)))
	require.NoError(t, s.AddDocument(ctx, "ramen (old)", core.KindMemory, at(100)))

	got, err := s.QueryMultiple(ctx, []string{"ramen"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ramen (new)", "ramen (old)"}, got)
}

func TestQueryMultipleSkipsEmptyTexts(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 10)

	require.NoError(t, s.AddDocument(ctx, "", core.KindMemory, at(5)))
	require.NoError(t, s.AddDocument(ctx, "games", core.KindMemory, at(1)))

	got, err := s.QueryMultiple(ctx, []string{"cats"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"games"}, got)
}

func TestQueryMultipleEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	s, _, emb := newStore(t, 10)
	require.NoError(t, s.AddDocument(ctx, "games", core.KindMemory, at(1)))

	emb.fail = true
	_, err := s.QueryMultiple(ctx, []string{"games"}, 1)
	assert.ErrorIs(t, err, core.ErrEmbeddingFailed)
}

func TestGetLastN(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 10)

	require.NoError(t, s.AddDocument(ctx, "plan a", core.KindPlan, at(10)))
	require.NoError(t, s.AddDocument(ctx, "memory", core.KindMemory, at(20)))
	require.NoError(t, s.AddDocument(ctx, "plan c", core.KindPlan, at(30)))
	require.NoError(t, s.AddDocument(ctx, "plan b", core.KindPlan, at(15)))
	require.NoError(t, s.AddDocument(ctx, "plan d", core.KindPlan, at(30)))

	assert.Equal(t, []string{"plan d", "plan c"}, s.GetLastN(core.KindPlan, 2))
	assert.Equal(t, []string{"plan d", "plan c", "plan b", "plan a"}, s.GetLastN(core.KindPlan, 10))
	assert.Equal(t, []string{"memory"}, s.GetLastN(core.KindMemory, 1))
	assert.Empty(t, s.GetLastN(core.KindKnowledge, 3))
	assert.Empty(t, s.GetLastN(core.KindPlan, 0))
}

func TestGetAllDocumentsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 10)
	require.NoError(t, s.AddDocument(ctx, "ramen", core.KindMemory, at(0)))

	snap := s.GetAllDocuments()
	snap.Documents[0] = "changed"
	snap.Embeddings[0][0] = 42

	fresh := s.GetAllDocuments()
	assert.Equal(t, "ramen", fresh.Documents[0])
	assert.Equal(t, 1.0, fresh.Embeddings[0][0])
}

func TestNewTruncatesOversizedCollection(t *testing.T) {
	backend := &memoryBackend{}
	for i := 0; i < 6; i++ {
		backend.docs = append(backend.docs, &storage.Document{
			ID: int64(i), Position: i, Text: fmt.Sprintf("doc %d", i),
			Embedding: []float64{1, 0, 0, 0}, Kind: "MEMORY", Timestamp: at(i),
		})
	}

	s, err := memory.New(context.Background(), backend, &topicEmbedder{}, memory.WithMaxDocuments(4))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Capacity())
	assert.Equal(t, []string{"doc 2", "doc 3", "doc 4", "doc 5"}, s.GetAllDocuments().Documents)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	backend := &memoryBackend{docs: []*storage.Document{{Text: "x", Kind: "NOTE"}}}
	_, err := memory.New(context.Background(), backend, &topicEmbedder{})
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := memory.New(context.Background(), nil, &topicEmbedder{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestOpenExisting(t *testing.T) {
	ctx := context.Background()
	cfg := core.DefaultConfig().Store
	cfg.PersistencePath = t.TempDir()
	emb := &topicEmbedder{}

	_, err := memory.OpenExisting(ctx, cfg, "nobody", emb)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = os.Stat(core.SQLitePath(cfg, "nobody"))
	assert.True(t, os.IsNotExist(err), "no database file is created")

	s, err := memory.Open(ctx, cfg, "gamer", emb)
	require.NoError(t, err)
	require.NoError(t, s.AddDocument(ctx, "ramen", core.KindMemory, at(0)))
	require.NoError(t, s.Close())

	existing, err := memory.OpenExisting(ctx, cfg, "gamer", emb)
	require.NoError(t, err)
	defer func() { _ = existing.Close() }()
	assert.Equal(t, 1, existing.Len())
}

func TestOpenReloadsFromSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := core.DefaultConfig().Store
	cfg.PersistencePath = t.TempDir()
	cfg.MaxDocuments = 3
	emb := &topicEmbedder{}

	s, err := memory.Open(ctx, cfg, "gamer", emb)
	require.NoError(t, err)
	for i, text := range []string{"ramen", "games", "cats", "music"} {
		require.NoError(t, s.AddDocument(ctx, text, core.KindMemory, at(i)))
	}
	require.NoError(t, s.AddDocument(ctx, "ramen plan", core.KindPlan, at(9)))
	before := s.GetAllDocuments()
	require.NoError(t, s.Close())

	reopened, err := memory.Open(ctx, cfg, "gamer", emb)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	after := reopened.GetAllDocuments()
	assert.Equal(t, before.Documents, after.Documents)
	assert.Equal(t, before.Embeddings, after.Embeddings)
	require.Len(t, after.Metadata, 3)
	for i := range after.Metadata {
		assert.Equal(t, before.Metadata[i].ID, after.Metadata[i].ID)
		assert.Equal(t, before.Metadata[i].Kind, after.Metadata[i].Kind)
		assert.True(t, before.Metadata[i].Timestamp.Equal(after.Metadata[i].Timestamp))
	}
	assert.Equal(t, []string{"ramen plan"}, reopened.GetLastN(core.KindPlan, 1))
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t, 20)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			assert.NoError(t, s.AddDocument(ctx, vocabulary[i%len(vocabulary)], core.KindMemory, at(i)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := s.QueryMultiple(ctx, []string{"ramen", "cats"}, 3)
			assert.NoError(t, err)
			snap := s.GetAllDocuments()
			assert.Equal(t, snap.Len(), len(snap.Metadata))
		}
	}()
	wg.Wait()

	assert.Equal(t, 20, s.Len())
}
