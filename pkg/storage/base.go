// Package storage provides interfaces and types for memory persistence backends.
//
// A backend persists the full, ordered document collection of one persona. The
// memory store keeps the authoritative copy in memory and hands the backend a
// complete snapshot after every mutation.
package storage

import (
	"context"
	"time"
)

// Document is one persisted memory store entry.
//
// This type is defined in the storage package to avoid circular dependencies
// with the memory package. Position is the index of the entry in the
// persona's parallel arrays.
type Document struct {
	// ID is the unique identifier of the document.
	ID int64

	// Position is the insertion-order index of the document.
	Position int

	// Text is the document content.
	Text string

	// Embedding is the vector embedding for similarity search.
	Embedding []float64

	// Kind is the document kind (MEMORY, PLAN, FORMER_PLAN, KNOWLEDGE).
	Kind string

	// Timestamp is when the document was created.
	Timestamp time.Time
}

// DocumentStore defines the interface for persistence backends.
//
// Implementations: sqlite, postgres, oceanbase.
type DocumentStore interface {
	// Load returns every persisted document ordered by Position.
	Load(ctx context.Context) ([]*Document, error)

	// Save atomically replaces the persisted collection with docs.
	//
	// Either the whole collection is written or nothing changes.
	Save(ctx context.Context, docs []*Document) error

	// Close releases the backend resources.
	Close() error
}
