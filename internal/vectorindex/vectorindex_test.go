package vectorindex

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyajitsk27/zania/internal/models"
)

// fakeEmbedder returns deterministic unit vectors derived from a text
// hash, counting batch calls.
type fakeEmbedder struct {
	batchCalls atomic.Int64
	queryCalls atomic.Int64
	uniform    bool // identical vector for every input
	err        error
}

func (e *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.makeVector(text)
	}
	return vectors, nil
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.queryCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.makeVector(text), nil
}

func (e *fakeEmbedder) makeVector(text string) []float32 {
	const dim = 8
	vector := make([]float32, dim)
	hash := 1
	if !e.uniform {
		for _, c := range text {
			hash = (hash*31 + int(c)) % 997
		}
	}
	var sumSq float64
	for i := range vector {
		vector[i] = float32((hash+i*7)%100 + 1)
		sumSq += float64(vector[i]) * float64(vector[i])
	}
	norm := float32(1 / math.Sqrt(sumSq))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}

func chunksOf(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{Content: text, Ordinal: i, Source: "test"}
	}
	return chunks
}

func TestBuildBatchesEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, err := Build(context.Background(), chunksOf("alpha", "beta", "gamma"), embedder)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	// the whole chunk sequence is embedded in a single provider call
	assert.Equal(t, int64(1), embedder.batchCalls.Load())
}

func TestBuildNoChunks(t *testing.T) {
	_, err := Build(context.Background(), nil, &fakeEmbedder{})
	assert.Error(t, err)
}

func TestBuildProviderFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding backend down")}
	_, err := Build(context.Background(), chunksOf("alpha"), embedder)
	require.Error(t, err)

	var providerErr *models.ProviderError
	assert.ErrorAs(t, err, &providerErr)
}

func TestSearchReturnsTopK(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, err := Build(context.Background(), chunksOf("alpha", "beta", "gamma", "delta", "epsilon"), embedder)
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "alpha", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	// the query matching a chunk exactly must rank it first
	assert.Equal(t, "alpha", results[0].Content)
}

func TestSearchSmallIndex(t *testing.T) {
	idx, err := Build(context.Background(), chunksOf("only one"), &fakeEmbedder{})
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchTieBreakByOrdinal(t *testing.T) {
	// every chunk embeds identically, so all similarities tie and the
	// ordering must fall back to chunk ordinals
	embedder := &fakeEmbedder{uniform: true}
	idx, err := Build(context.Background(), chunksOf("a", "b", "c", "d"), embedder)
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].Content, results[1].Content, results[2].Content})
}

func TestSearchQueryEmbedFailure(t *testing.T) {
	embedder := &fakeEmbedder{}
	idx, err := Build(context.Background(), chunksOf("alpha"), embedder)
	require.NoError(t, err)

	embedder.err = errors.New("query embed failed")
	_, err = idx.Search(context.Background(), "q", 3)
	require.Error(t, err)

	var providerErr *models.ProviderError
	assert.ErrorAs(t, err, &providerErr)
}
