// Package llmservice holds the completion provider used for answer
// synthesis.
package llmservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/satyajitsk27/zania/internal/config"
	"github.com/satyajitsk27/zania/internal/models"
)

// Completer produces a completion for a prompt. The implementation owns
// sampling parameters and timeouts.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client is a Completer over a langchaingo chat model. Sampling is
// deterministic (temperature 0) and every call carries a fixed timeout.
type Client struct {
	llm     llms.Model
	timeout time.Duration
}

// NewClient builds a completion client from config, selecting the ollama
// or OpenAI-compatible backend.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	var (
		llm llms.Model
		err error
	)
	if cfg.Provider == "ollama" {
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	} else {
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	}
	if err != nil {
		return nil, err
	}
	return &Client{llm: llm, timeout: models.CompletionTimeout}, nil
}

// Complete sends the prompt and returns the raw completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", &models.ProviderError{Provider: "completion", Err: err}
	}
	if len(res.Choices) == 0 {
		return "", &models.ProviderError{Provider: "completion", Err: errors.New("empty response")}
	}
	return res.Choices[0].Content, nil
}
