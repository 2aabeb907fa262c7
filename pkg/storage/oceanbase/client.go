// Package oceanbase provides OceanBase (MySQL protocol) persistence for a persona's memory store.
package oceanbase

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

// Client is an OceanBase DocumentStore. It also works against plain MySQL.
type Client struct {
	db    *sql.DB
	table string
}

// Config contains OceanBase configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Table    string
}

// NewClient creates a new OceanBase client.
func NewClient(cfg *Config) (*Client, error) {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsn.DBName = cfg.DBName
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
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

// initTables initializes the database table.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			position INT PRIMARY KEY,
			id BIGINT NOT NULL,
			document LONGTEXT,
			embedding LONGTEXT,
			kind VARCHAR(32) NOT NULL,
			hash VARCHAR(32),
			created_at DATETIME(6) NOT NULL
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
		SELECT position, id, document, embedding, kind, created_at
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
		var vectorStr string
		var createdAt time.Time
		if err := rows.Scan(&doc.Position, &doc.ID, &doc.Text, &vectorStr, &doc.Kind, &createdAt); err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		if doc.Embedding, err = stringToVector(vectorStr); err != nil {
			return nil, fmt.Errorf("Load: parse embedding: %w", err)
		}
		doc.Timestamp = createdAt
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	return docs, nil
}

// Save replaces the table content with docs inside one transaction.
//
// Rows whose stored hash matches the document at the same position are left
// untouched; changed rows are replaced and trailing rows deleted.
func (c *Client) Save(ctx context.Context, docs []*storage.Document) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored, err := c.storedHashes(ctx, tx)
	if err != nil {
		return err
	}

	hashes := make([]string, len(docs))
	for i, doc := range docs {
		hashes[i] = documentHash(doc)
	}
	changed := changedPositions(stored, hashes)

	if len(changed) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			REPLACE INTO %s (position, id, document, embedding, kind, hash, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.table))
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, i := range changed {
			doc := docs[i]
			_, err := stmt.ExecContext(ctx,
				i,
				doc.ID,
				doc.Text,
				vectorToString(doc.Embedding),
				doc.Kind,
				hashes[i],
				doc.Timestamp.UTC(),
			)
			if err != nil {
				return fmt.Errorf("Save: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE position >= ?", c.table), len(docs)); err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// storedHashes returns the row hash of every persisted position.
func (c *Client) storedHashes(ctx context.Context, tx *sql.Tx) (map[int]string, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT position, hash FROM %s", c.table))
	if err != nil {
		return nil, fmt.Errorf("Save: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stored := make(map[int]string)
	for rows.Next() {
		var pos int
		var h sql.NullString
		if err := rows.Scan(&pos, &h); err != nil {
			return nil, fmt.Errorf("Save: %w", err)
		}
		stored[pos] = h.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Save: %w", err)
	}
	return stored, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
