// Package vectorindex builds an in-memory chromem-go similarity index over
// document chunks and answers nearest-neighbour queries against it.
package vectorindex

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/satyajitsk27/zania/internal/embedding"
	"github.com/satyajitsk27/zania/internal/models"
)

const collectionName = "document"

// Index is a similarity index over one document's chunks. Read-only after
// Build, safe for concurrent Search.
type Index struct {
	collection *chromem.Collection
	chunks     []models.Chunk
	embedder   embedding.Provider
}

// Build embeds every chunk in one batched provider call and loads the
// vectors into a fresh chromem collection.
func Build(ctx context.Context, chunks []models.Chunk, embedder embedding.Provider) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to index")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, &models.ProviderError{Provider: "embedding", Err: err}
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(chunk.Ordinal),
			Content:   chunk.Content,
			Metadata:  map[string]string{"source": chunk.Source},
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	return &Index{collection: collection, chunks: chunks, embedder: embedder}, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Search embeds the query and returns the k most similar chunks, ranked by
// descending similarity with ties broken by ascending ordinal. Returns
// fewer than k when the index is smaller.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if k > len(idx.chunks) {
		k = len(idx.chunks)
	}
	if k <= 0 {
		return nil, nil
	}

	queryVector, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, &models.ProviderError{Provider: "embedding", Err: err}
	}

	// rank the full index so ties at the k boundary resolve by ordinal
	// rather than by chromem's internal order
	results, err := idx.collection.QueryEmbedding(ctx, queryVector, len(idx.chunks), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	type ranked struct {
		ordinal    int
		similarity float32
	}
	hits := make([]ranked, 0, len(results))
	for _, res := range results {
		ordinal, err := strconv.Atoi(res.ID)
		if err != nil || ordinal < 0 || ordinal >= len(idx.chunks) {
			continue
		}
		hits = append(hits, ranked{ordinal: ordinal, similarity: res.Similarity})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].similarity != hits[j].similarity {
			return hits[i].similarity > hits[j].similarity
		}
		return hits[i].ordinal < hits[j].ordinal
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	chunks := make([]models.Chunk, len(hits))
	for i, hit := range hits {
		chunks[i] = idx.chunks[hit.ordinal]
	}
	return chunks, nil
}
