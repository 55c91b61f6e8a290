// Package embedding wraps langchaingo embedders behind a small provider
// interface so the pipeline can take deterministic doubles in tests.
package embedding

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/satyajitsk27/zania/internal/config"
)

// Provider computes fixed-dimension vectors for text. Satisfied by
// langchaingo's *embeddings.EmbedderImpl.
type Provider interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder builds an embedding provider from config, selecting the
// ollama or OpenAI-compatible backend.
func NewEmbedder(cfg *config.LLMConfig) (Provider, error) {
	if cfg.Provider == "ollama" {
		return NewOllamaEmbedder(cfg)
	}
	return NewOpenAIEmbedder(cfg)
}

// NewOpenAIEmbedder creates an embedder against an OpenAI-compatible
// endpoint (OpenAI, OpenRouter, etc).
func NewOpenAIEmbedder(cfg *config.LLMConfig) (Provider, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder creates an embedder backed by a local ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig) (Provider, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}
