package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/powerpersona-go/pkg/storage"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "gamer", want: "gamer_documents"},
		{in: "run-1_Alice", want: "run_1_alice_documents"},
		{in: "a b;drop", want: "a_b_drop_documents"},
		{in: "", want: "documents"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storage.TableName(tt.in), tt.in)
	}
}

func TestEmbeddingCodec(t *testing.T) {
	s, err := storage.EncodeEmbedding([]float64{0.25, -1, 3e-9})
	require.NoError(t, err)
	assert.Equal(t, "[0.25,-1,3e-9]", s)

	v, err := storage.DecodeEmbedding(s)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -1, 3e-9}, v)

	empty, err := storage.EncodeEmbedding(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	_, err = storage.DecodeEmbedding("not a vector")
	assert.Error(t, err)
}
