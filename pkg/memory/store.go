// Package memory implements the bounded, similarity-ranked document store of a persona.
//
// A Store keeps three parallel slices (texts, embeddings, metadata) whose
// lengths are always equal and whose order is insertion order. When the store
// is full the oldest entry is evicted. Every mutation is persisted as a full
// snapshot through a storage.DocumentStore before it becomes visible.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/oceanbase/powerpersona-go/pkg/core"
	"github.com/oceanbase/powerpersona-go/pkg/embedder"
	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

// DefaultMaxDocuments is the capacity used when none is configured.
const DefaultMaxDocuments = 500

// DefaultResults is the number of results per query when n <= 0.
const DefaultResults = 5

// Metadata describes one stored document.
type Metadata struct {
	ID        int64             `json:"id"`
	Kind      core.DocumentKind `json:"kind"`
	Timestamp time.Time         `json:"timestamp"`
}

// Snapshot is a copy of the store's parallel slices.
type Snapshot struct {
	Documents  []string
	Embeddings [][]float64
	Metadata   []Metadata
}

// Len returns the number of documents in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Documents)
}

// Store is a persona's memory store.
//
// Readers (QueryMultiple, GetLastN, GetAllDocuments) may run concurrently
// with a writer. Writers are serialised.
type Store struct {
	backend  storage.DocumentStore
	embedder embedder.Provider
	capacity int
	node     *snowflake.Node
	now      func() time.Time

	// writeMu serialises AddDocument so snapshots are persisted in order.
	writeMu sync.Mutex

	mu         sync.RWMutex
	docs       []string
	embeddings [][]float64
	meta       []Metadata
}

// Option configures a Store.
type Option func(*Store)

// WithMaxDocuments sets the store capacity.
func WithMaxDocuments(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock overrides the clock used for zero timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNode sets the snowflake node used to assign document ids.
func WithNode(node *snowflake.Node) Option {
	return func(s *Store) {
		if node != nil {
			s.node = node
		}
	}
}

// New creates a Store on top of backend and loads the persisted collection.
//
// A persisted collection larger than the capacity is truncated to its newest entries.
func New(ctx context.Context, backend storage.DocumentStore, emb embedder.Provider, opts ...Option) (*Store, error) {
	if backend == nil || emb == nil {
		return nil, core.NewPersonaError("memory.New", fmt.Errorf("%w: backend and embedder are required", core.ErrInvalidInput))
	}

	s := &Store{
		backend:  backend,
		embedder: emb,
		capacity: DefaultMaxDocuments,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.node == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return nil, core.NewPersonaError("memory.New", err)
		}
		s.node = node
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens the configured backend for persistenceID and loads it.
// Closing the returned Store closes the backend.
func Open(ctx context.Context, cfg core.StoreConfig, persistenceID string, emb embedder.Provider, opts ...Option) (*Store, error) {
	backend, err := core.NewDocumentStore(cfg, persistenceID)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithMaxDocuments(cfg.MaxDocuments)}, opts...)
	s, err := New(ctx, backend, emb, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return s, nil
}

// OpenExisting is Open for read-only inspection: with the sqlite backend it
// fails instead of creating a database file for an unknown persistence id.
func OpenExisting(ctx context.Context, cfg core.StoreConfig, persistenceID string, emb embedder.Provider, opts ...Option) (*Store, error) {
	if cfg.Provider == "sqlite" && persistenceID != "" {
		path := core.SQLitePath(cfg, persistenceID)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, core.NewPersonaError("memory.OpenExisting", fmt.Errorf("%w: no memory store for %q at %s", core.ErrInvalidInput, persistenceID, path))
			}
			return nil, core.NewPersonaError("memory.OpenExisting", fmt.Errorf("%w: %w", core.ErrPersistence, err))
		}
	}
	return Open(ctx, cfg, persistenceID, emb, opts...)
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.backend.Load(ctx)
	if err != nil {
		return core.NewPersonaError("memory.Load", fmt.Errorf("%w: %w", core.ErrPersistence, err))
	}
	if len(rows) > s.capacity {
		rows = rows[len(rows)-s.capacity:]
	}

	docs := make([]string, 0, len(rows))
	embeddings := make([][]float64, 0, len(rows))
	meta := make([]Metadata, 0, len(rows))
	for _, row := range rows {
		kind, err := core.ParseDocumentKind(row.Kind)
		if err != nil {
			return core.NewPersonaError("memory.Load", err)
		}
		docs = append(docs, row.Text)
		embeddings = append(embeddings, row.Embedding)
		meta = append(meta, Metadata{ID: row.ID, Kind: kind, Timestamp: row.Timestamp})
	}

	s.mu.Lock()
	s.docs, s.embeddings, s.meta = docs, embeddings, meta
	s.mu.Unlock()
	return nil
}

// AddDocument embeds text and appends it, evicting the oldest document when
// the store is full, then persists the whole collection before returning.
//
// On a persistence error the in-memory collection is left unchanged and the
// error wraps core.ErrPersistence. A zero ts means now.
func (s *Store) AddDocument(ctx context.Context, text string, kind core.DocumentKind, ts time.Time) error {
	if !kind.Valid() {
		return core.NewPersonaError("AddDocument", fmt.Errorf("%w: %q", core.ErrInvalidKind, kind))
	}
	if ts.IsZero() {
		ts = s.now()
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return core.NewPersonaError("AddDocument", fmt.Errorf("%w: %w", core.ErrEmbeddingFailed, err))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	docs := append(slices.Clone(s.docs), text)
	embeddings := append(slices.Clone(s.embeddings), vec)
	meta := append(slices.Clone(s.meta), Metadata{ID: s.node.Generate().Int64(), Kind: kind, Timestamp: ts})
	s.mu.RUnlock()

	if over := len(docs) - s.capacity; over > 0 {
		docs, embeddings, meta = docs[over:], embeddings[over:], meta[over:]
	}

	rows := make([]*storage.Document, len(docs))
	for i := range docs {
		rows[i] = &storage.Document{
			ID:        meta[i].ID,
			Position:  i,
			Text:      docs[i],
			Embedding: embeddings[i],
			Kind:      string(meta[i].Kind),
			Timestamp: meta[i].Timestamp,
		}
	}
	if err := s.backend.Save(ctx, rows); err != nil {
		return core.NewPersonaError("AddDocument", fmt.Errorf("%w: %w", core.ErrPersistence, err))
	}

	s.mu.Lock()
	s.docs, s.embeddings, s.meta = docs, embeddings, meta
	s.mu.Unlock()
	return nil
}

// QueryMultiple runs a similarity search per query and concatenates the
// results in query order. A document relevant to several queries appears
// once per query.
//
// Candidates are ranked by cosine similarity, ties going to the more recent
// document. Only documents with non-empty text are returned, at most n per
// query (DefaultResults when n <= 0). An empty store or query list returns
// an empty slice without calling the embedder.
func (s *Store) QueryMultiple(ctx context.Context, queries []string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultResults
	}

	s.mu.RLock()
	docs, embeddings, meta := s.docs, s.embeddings, s.meta
	s.mu.RUnlock()

	results := []string{}
	if len(queries) == 0 || len(docs) == 0 {
		return results, nil
	}

	for _, q := range queries {
		vec, err := s.embedder.Embed(ctx, q)
		if err != nil {
			return nil, core.NewPersonaError("QueryMultiple", fmt.Errorf("%w: %w", core.ErrEmbeddingFailed, err))
		}
		results = append(results, rank(vec, docs, embeddings, meta, n)...)
	}
	return results, nil
}

func rank(query []float64, docs []string, embeddings [][]float64, meta []Metadata, n int) []string {
	type candidate struct {
		idx int
		sim float64
	}
	candidates := make([]candidate, len(docs))
	for i := range docs {
		candidates[i] = candidate{idx: i, sim: embedder.CosineSimilarity(query, embeddings[i])}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.sim != cb.sim {
			return ca.sim > cb.sim
		}
		return meta[ca.idx].Timestamp.After(meta[cb.idx].Timestamp)
	})

	out := make([]string, 0, n)
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		if docs[c.idx] == "" {
			continue
		}
		out = append(out, docs[c.idx])
	}
	return out
}

// GetLastN returns the texts of the n most recent documents of kind.
func (s *Store) GetLastN(kind core.DocumentKind, n int) []string {
	if n <= 0 {
		return []string{}
	}

	s.mu.RLock()
	idx := make([]int, 0)
	for i, m := range s.meta {
		if m.Kind == kind {
			idx = append(idx, i)
		}
	}
	// Later insertion wins on equal timestamps.
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := s.meta[idx[a]].Timestamp, s.meta[idx[b]].Timestamp
		if ta.Equal(tb) {
			return idx[a] > idx[b]
		}
		return ta.After(tb)
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = s.docs[j]
	}
	s.mu.RUnlock()
	return out
}

// GetAllDocuments returns a copy of the parallel slices.
func (s *Store) GetAllDocuments() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	embeddings := make([][]float64, len(s.embeddings))
	for i, e := range s.embeddings {
		embeddings[i] = slices.Clone(e)
	}
	return Snapshot{
		Documents:  slices.Clone(s.docs),
		Embeddings: embeddings,
		Metadata:   slices.Clone(s.meta),
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Capacity returns the maximum number of documents.
func (s *Store) Capacity() int {
	return s.capacity
}

// Close closes the persistence backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
