// Package postgres provides PostgreSQL persistence for a persona's memory store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

// Client is a PostgreSQL DocumentStore. Each persona uses its own table.
type Client struct {
	db    *sql.DB
	table string
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Table    string
	SSLMode  string
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	db, err := sql.Open("postgres", DSN(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode))
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{
		db:    db,
		table: cfg.Table,
	}
	if client.table == "" {
		client.table = "documents"
	}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// DSN builds a lib/pq connection string, quoting values that need it.
func DSN(host string, port int, user, password, dbName, sslMode string) string {
	quote := func(v string) string {
		if v == "" || strings.ContainsAny(v, ` '\`) {
			v = strings.ReplaceAll(v, `\`, `\\`)
			v = strings.ReplaceAll(v, `'`, `\'`)
			return "'" + v + "'"
		}
		return v
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(host), port, quote(user), quote(password), quote(dbName), quote(sslMode))
}

// initTables initializes the database table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			position INTEGER PRIMARY KEY,
			id BIGINT NOT NULL,
			text TEXT NOT NULL,
			embedding JSONB NOT NULL,
			kind VARCHAR(32) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		)
	`, c.table)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
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
		var ts time.Time
		if err := rows.Scan(&doc.Position, &doc.ID, &doc.Text, &embeddingStr, &doc.Kind, &ts); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		if doc.Embedding, err = storage.DecodeEmbedding(embeddingStr); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		doc.Timestamp = ts
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
		VALUES ($1, $2, $3, $4, $5, $6)
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
		if _, err := stmt.ExecContext(ctx, i, doc.ID, doc.Text, embeddingStr, doc.Kind, doc.Timestamp); err != nil {
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
