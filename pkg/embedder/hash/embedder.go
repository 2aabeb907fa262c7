// Package hash provides a deterministic, offline embedder.
//
// Vectors are derived from an FNV-1a hash of each lower-cased word, so texts
// sharing words are similar and identical texts are identical. It needs no
// model and is meant for tests, dry runs and simulations without an
// embedding service.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/oceanbase/powerpersona-go/pkg/embedder"
)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 384

// Embedder is a bag-of-words hashing embedder.
type Embedder struct {
	dims int
}

// New creates a hash embedder with the given dimensions (DefaultDimensions when <= 0).
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

var _ embedder.Provider = (*Embedder)(nil)

// Embed maps every word to a pseudo-random unit direction and sums them.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		seed := h.Sum64()
		for i := 0; i < e.dims; i++ {
			// LCG step per component.
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] += float64(int64(seed>>11))/float64(1<<52) - 1
		}
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return embedder.EmbedEach(ctx, e, texts)
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}
