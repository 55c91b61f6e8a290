// Package rag wires extraction, chunking, indexing, retrieval, and answer
// synthesis into the document question-answering pipeline.
package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/satyajitsk27/zania/internal/cache"
	"github.com/satyajitsk27/zania/internal/chunker"
	"github.com/satyajitsk27/zania/internal/config"
	"github.com/satyajitsk27/zania/internal/embedding"
	"github.com/satyajitsk27/zania/internal/llmservice"
	"github.com/satyajitsk27/zania/internal/models"
	"github.com/satyajitsk27/zania/internal/parser"
	"github.com/satyajitsk27/zania/internal/vectorindex"
)

// Pipeline answers question batches against a single document. Providers
// are injected at construction so tests can substitute deterministic
// doubles.
type Pipeline struct {
	embedder  embedding.Provider
	completer llmservice.Completer
	indexes   *cache.IndexCache
	rag       config.RAGConfig
}

// NewPipeline creates a pipeline with the given providers and index cache.
func NewPipeline(embedder embedding.Provider, completer llmservice.Completer, indexes *cache.IndexCache, ragCfg config.RAGConfig) *Pipeline {
	if ragCfg.ChunkSize == 0 {
		ragCfg.ChunkSize = models.ChunkSize
	}
	if ragCfg.ChunkOverlap == 0 {
		ragCfg.ChunkOverlap = models.ChunkOverlap
	}
	if ragCfg.TopK == 0 {
		ragCfg.TopK = models.RetrievalTopK
	}
	return &Pipeline{
		embedder:  embedder,
		completer: completer,
		indexes:   indexes,
		rag:       ragCfg,
	}
}

// AnswerDocument runs the full pipeline: extract text, chunk, build or
// reuse the vector index, then answer every question. The result list has
// one entry per question, in input order. Ingestion failures abort the
// call; per-question failures are folded into their answer records.
func (p *Pipeline) AnswerDocument(ctx context.Context, documentBytes []byte, kind models.DocumentKind, questions []string) ([]models.QAPair, error) {
	if len(questions) == 0 {
		return nil, models.ErrNoQuestions
	}
	if len(questions) > models.MaxQuestions {
		return nil, models.NewValidationError("question count", len(questions), models.MaxQuestions, models.ErrTooManyQuestions)
	}

	text, source, err := parser.ExtractText(documentBytes, kind)
	if err != nil {
		return nil, err
	}

	chunks := chunker.Split(text, source, p.rag.ChunkSize, p.rag.ChunkOverlap)
	log.Debug().Int("chunks", len(chunks)).Str("kind", string(kind)).Msg("document chunked")

	fingerprint := cache.Fingerprint(kind, documentBytes)
	idx, cached, err := p.indexes.GetOrBuild(ctx, fingerprint, func(ctx context.Context) (*vectorindex.Index, error) {
		return vectorindex.Build(ctx, chunks, p.embedder)
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Bool("cached", cached).Str("fingerprint", fingerprint[:12]).Msg("vector index ready")

	return p.answerAll(ctx, idx, questions), nil
}

// answerAll partitions the questions into consecutive batches of at most
// BatchSize and runs each batch on a pool of MaxWorkers goroutines. Every
// worker writes its record to the question's original index slot, so the
// output order matches the input order no matter how the batch completes.
func (p *Pipeline) answerAll(ctx context.Context, idx *vectorindex.Index, questions []string) []models.QAPair {
	results := make([]models.QAPair, len(questions))
	sem := make(chan struct{}, models.MaxWorkers)

	for start := 0; start < len(questions); start += models.BatchSize {
		end := min(start+models.BatchSize, len(questions))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[i] = p.answerOne(ctx, idx, questions[i])
			}(i)
		}
		// the next batch starts only after every question in this one
		// has completed
		wg.Wait()
	}
	return results
}

// answerOne retrieves context for a single question and synthesizes the
// answer. Any failure, including a panic, becomes a failure record rather
// than propagating.
func (p *Pipeline) answerOne(ctx context.Context, idx *vectorindex.Index, question string) (pair models.QAPair) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("question", question).Msg("question worker panicked")
			pair = failureRecord(question, fmt.Errorf("%v", r))
		}
	}()

	retrieved, err := idx.Search(ctx, question, p.rag.TopK)
	if err != nil {
		return failureRecord(question, err)
	}

	raw, err := p.completer.Complete(ctx, BuildPrompt(retrieved, question))
	if err != nil {
		return failureRecord(question, err)
	}

	answer, answerSource := ParseAnswer(raw)
	return models.QAPair{Question: question, Answer: answer, Source: answerSource}
}

// BuildPrompt renders the grounding prompt: retrieved chunk texts joined
// by blank lines as context, then the question and the fixed response
// instructions.
func BuildPrompt(retrieved []models.Chunk, question string) string {
	texts := make([]string, len(retrieved))
	for i, chunk := range retrieved {
		texts[i] = chunk.Content
	}
	return fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(texts, "\n\n"), question)
}

// ParseAnswer splits a raw completion into the answer and source parts.
// When both literal markers are present the text is split once on
// "Source:"; a source of "N/A" (or nothing) comes back empty. Without the
// markers the whole completion is the answer.
func ParseAnswer(raw string) (answer, source string) {
	if strings.Contains(raw, "Answer:") && strings.Contains(raw, "Source:") {
		parts := strings.SplitN(raw, "Source:", 2)
		answer = strings.TrimSpace(strings.Replace(parts[0], "Answer:", "", 1))
		source = strings.TrimSpace(parts[1])
		if source == "N/A" {
			source = ""
		}
		return answer, source
	}
	return raw, ""
}

func failureRecord(question string, err error) models.QAPair {
	return models.QAPair{
		Question: question,
		Answer:   fmt.Sprintf("Error processing question: %v", err),
		Source:   "",
	}
}
