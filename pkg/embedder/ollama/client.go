// Package ollama provides an embedder backed by a local or remote Ollama service.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oceanbase/powerpersona-go/pkg/embedder"
)

// Client calls Ollama's /api/embeddings endpoint.
type Client struct {
	client  *http.Client
	model   string
	baseURL string
	dims    int
}

// Config is the configuration for the Ollama embedder.
// Model defaults to "all-minilm" (384 dimensions); "nomic-embed-text" has 768.
// BaseURL defaults to "http://localhost:11434".
type Config struct {
	Model      string
	BaseURL    string
	Dimensions int
	HTTPClient *http.Client
}

// NewClient creates a new Ollama embedder.
func NewClient(cfg *Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "all-minilm"
	}

	dims := cfg.Dimensions
	if dims == 0 {
		switch model {
		case "all-minilm":
			dims = 384
		case "nomic-embed-text":
			dims = 768
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		client:  client,
		model:   model,
		baseURL: baseURL,
		dims:    dims,
	}, nil
}

var _ embedder.Provider = (*Client)(nil)

// Embed converts a single text to a vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(map[string]string{
		"model":  c.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(b))
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, errors.New("embedding generation failed: empty embedding from Ollama API")
	}

	return result.Embedding, nil
}

// EmbedBatch embeds each text in order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return embedder.EmbedEach(ctx, c, texts)
}

// Dimensions returns the configured or model-implied vector size (0 if unknown).
func (c *Client) Dimensions() int {
	return c.dims
}

// Close is a no-op; the HTTP client needs no explicit closing.
func (c *Client) Close() error {
	return nil
}
