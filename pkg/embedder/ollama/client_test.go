package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/pkg/embedder/ollama"
)

func TestOllamaEmbed(t *testing.T) {
	var (
		mu      sync.Mutex
		prompts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		mu.Lock()
		prompts = append(prompts, req.Prompt)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{float64(len(req.Prompt)), 1}})
	}))
	defer srv.Close()

	c, err := ollama.NewClient(&ollama.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, 384, c.Dimensions())

	v, err := c.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, v)

	batch, err := c.EmbedBatch(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 1}, {2, 1}}, batch)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"abc", "a", "bb"}, prompts)
}

func TestOllamaEmbedErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "status", handler: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}},
		{name: "empty embedding", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"embedding":[]}`))
		}},
		{name: "bad json", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, err := ollama.NewClient(&ollama.Config{BaseURL: srv.URL, Model: "nomic-embed-text"})
			require.NoError(t, err)
			assert.Equal(t, 768, c.Dimensions())
			_, err = c.Embed(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}
