package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var unsafeTableChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// TableName derives a SQL-safe table name from a persistence id.
//
// Example: TableName("run-1_alice") returns "run_1_alice_documents".
func TableName(persistenceID string) string {
	name := unsafeTableChars.ReplaceAllString(strings.ToLower(persistenceID), "_")
	if name == "" {
		return "documents"
	}
	return name + "_documents"
}

// EncodeEmbedding serialises a vector as a JSON array for TEXT columns.
func EncodeEmbedding(v []float64) (string, error) {
	if v == nil {
		v = []float64{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(b), nil
}

// DecodeEmbedding parses a vector stored by EncodeEmbedding.
func DecodeEmbedding(s string) ([]float64, error) {
	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	return v, nil
}
