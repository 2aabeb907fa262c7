// Package embedder provides interfaces for text embedding providers.
//
// It defines the Provider interface that all embedding implementations must satisfy,
// enabling text-to-vector conversion for the memory store's similarity search.
package embedder

import (
	"context"
	"math"
)

// Provider defines the interface for embedding providers.
//
// Implementations must be deterministic for a fixed model: the same text
// always yields the same vector.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple text strings into vector embeddings, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of embedding vectors produced by this provider.
	// Zero means the dimension is only known after the first call.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// Vectors of different lengths, empty vectors and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EmbedEach implements EmbedBatch for providers without a batch endpoint.
func EmbedEach(ctx context.Context, p Provider, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
