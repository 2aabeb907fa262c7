// Package sqlite provides SQLite persistence for a persona's memory store.
//
// Each persona owns one database file. Documents are stored as rows ordered
// by position, with the embedding serialised as a JSON string in a TEXT field.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

// Client implements storage.DocumentStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// table is the name of the table storing documents.
	table string
}

// Config contains configuration for creating a SQLite DocumentStore.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Table is the name of the table to use. Default: "documents"
	Table string
}

// NewClient opens (or creates) the database file and its table.
//
// Parameters:
//   - cfg: Configuration containing database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}
	// A single writer keeps the rewrite transaction serialised.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "documents"
	}

	client := &Client{
		db:    db,
		table: table,
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			position INTEGER PRIMARY KEY,
			id INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding TEXT NOT NULL,
			kind TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)
	`, c.table)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Load returns every persisted document ordered by position.
func (c *Client) Load(ctx context.Context) ([]*storage.Document, error) {
	query := fmt.Sprintf(`
		SELECT position, id, text, embedding, kind, timestamp
		FROM %s
		ORDER BY position
	`, c.table)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*storage.Document
	for rows.Next() {
		var doc storage.Document
		var embeddingStr string
		var ts int64
		if err := rows.Scan(&doc.Position, &doc.ID, &doc.Text, &embeddingStr, &doc.Kind, &ts); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		if doc.Embedding, err = storage.DecodeEmbedding(embeddingStr); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		doc.Timestamp = time.Unix(0, ts)
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	return docs, nil
}

// Save replaces the table content with docs inside one transaction.
func (c *Client) Save(ctx context.Context, docs []*storage.Document) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c.table)); err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (position, id, text, embedding, kind, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.table))
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, doc := range docs {
		embeddingStr, err := storage.EncodeEmbedding(doc.Embedding)
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, i, doc.ID, doc.Text, embeddingStr, doc.Kind, doc.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("Save: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
