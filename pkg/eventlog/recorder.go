// Package eventlog records every generation call a persona makes.
//
// Records are JSON lines written by a dedicated logrus logger to
// <dir>/<persistence_id>_events.jsonl, one per call, keyed by the kind of
// call (for example "response" or "reflections") and identified by a ULID.
package eventlog

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"
)

// Record keys.
const (
	KeyNeutralContexts = "neutral_ctxs"
	KeyContextQueries  = "context_queries"
	KeyResponseQueries = "response_queries"
	KeyMemories        = "memories"
	KeyResponse        = "response"
	KeyReflections     = "reflections"
	KeyPlans           = "plans"
	KeyTopics          = "topics"
)

// Recorder receives generation records.
type Recorder interface {
	Record(key string, input, output any)
}

// Nop discards every record.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(string, any, any) {}

// JSONRecorder writes records as JSON lines.
type JSONRecorder struct {
	logger        *log.Logger
	persistenceID string
	closer        io.Closer

	mu      sync.Mutex
	entropy *rand.Rand
	counts  map[string]int
}

// New creates a recorder writing to w. Close does not close w.
func New(w io.Writer, persistenceID string) *JSONRecorder {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetLevel(log.InfoLevel)
	return &JSONRecorder{
		logger:        logger,
		persistenceID: persistenceID,
		entropy:       rand.New(rand.NewSource(time.Now().UnixNano())),
		counts:        make(map[string]int),
	}
}

// Path returns the events file of a persona.
func Path(dir, persistenceID string) string {
	return filepath.Join(dir, persistenceID+"_events.jsonl")
}

// Open creates dir if needed and appends to the persona's events file.
func Open(dir, persistenceID string) (*JSONRecorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("eventlog.Open: %w", err)
	}
	f, err := os.OpenFile(Path(dir, persistenceID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("eventlog.Open: %w", err)
	}
	r := New(f, persistenceID)
	r.closer = f
	return r, nil
}

// Record writes one record.
func (r *JSONRecorder) Record(key string, input, output any) {
	r.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
	r.counts[key]++
	r.mu.Unlock()

	r.logger.WithFields(log.Fields{
		"id":             id,
		"persistence_id": r.persistenceID,
		"key":            key,
		"input":          input,
		"output":         output,
	}).Info("Agent-Output")
}

// Counts returns how many records were written per key.
func (r *JSONRecorder) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Close closes the events file opened by Open.
func (r *JSONRecorder) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
