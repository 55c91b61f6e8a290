package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyajitsk27/zania/internal/cache"
	"github.com/satyajitsk27/zania/internal/config"
	"github.com/satyajitsk27/zania/internal/models"
)

type fakeEmbedder struct {
	batchCalls atomic.Int64
}

func (e *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = makeVector(text)
	}
	return vectors, nil
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return makeVector(text), nil
}

func makeVector(text string) []float32 {
	const dim = 8
	vector := make([]float32, dim)
	hash := 1
	for _, c := range text {
		hash = (hash*31 + int(c)) % 997
	}
	var sumSq float64
	for i := range vector {
		vector[i] = float32((hash+i*3)%100 + 1)
		sumSq += float64(vector[i]) * float64(vector[i])
	}
	norm := float32(1 / math.Sqrt(sumSq))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}

// fakeCompleter answers with a fixed reply, or echoes the question, with
// optional per-call latency and failure injection. It tracks the maximum
// number of in-flight calls.
type fakeCompleter struct {
	reply       string
	echo        bool
	latency     func(prompt string) time.Duration
	failOn      string
	panicOn     string
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	calls       atomic.Int64
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.maxInFlight.Load()
		if current <= peak || c.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	if c.latency != nil {
		time.Sleep(c.latency(prompt))
	}
	if c.panicOn != "" && strings.Contains(prompt, c.panicOn) {
		panic("completer exploded")
	}
	if c.failOn != "" && strings.Contains(prompt, c.failOn) {
		return "", &models.ProviderError{Provider: "completion", Err: errors.New("model unavailable")}
	}
	if c.echo {
		return "Answer: reply to " + lastLine(prompt) + "\nSource: N/A", nil
	}
	return c.reply, nil
}

func lastLine(prompt string) string {
	// the question sits on the "Question: ..." line of the prompt
	for _, line := range strings.Split(prompt, "\n") {
		if q, ok := strings.CutPrefix(line, "Question: "); ok {
			return q
		}
	}
	return ""
}

func newTestPipeline(t *testing.T, completer llmCompleter) (*Pipeline, *fakeEmbedder) {
	t.Helper()
	indexes, err := cache.New(models.IndexCacheSize)
	require.NoError(t, err)
	embedder := &fakeEmbedder{}
	return NewPipeline(embedder, completer, indexes, config.RAGConfig{}), embedder
}

// llmCompleter mirrors llmservice.Completer without importing it here.
type llmCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantAnswer string
		wantSource string
	}{
		{
			name:       "answer with source",
			raw:        "Answer: Paris\nSource: The capital is Paris.",
			wantAnswer: "Paris",
			wantSource: "The capital is Paris.",
		},
		{
			name:       "not applicable source",
			raw:        "Answer: X\nSource: N/A",
			wantAnswer: "X",
			wantSource: "",
		},
		{
			name:       "no markers",
			raw:        "just some text",
			wantAnswer: "just some text",
			wantSource: "",
		},
		{
			name:       "empty source",
			raw:        "Answer: X\nSource:   ",
			wantAnswer: "X",
			wantSource: "",
		},
		{
			name:       "not found reply",
			raw:        "Answer: Answer not found in document\nSource: N/A",
			wantAnswer: models.NotFoundAnswer,
			wantSource: "",
		},
		{
			name:       "only answer marker",
			raw:        "Answer: no source given",
			wantAnswer: "Answer: no source given",
			wantSource: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, source := ParseAnswer(tt.raw)
			assert.Equal(t, tt.wantAnswer, answer)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	retrieved := []models.Chunk{
		{Content: "first chunk", Ordinal: 0},
		{Content: "second chunk", Ordinal: 1},
	}
	prompt := BuildPrompt(retrieved, "What is it?")

	assert.Contains(t, prompt, "first chunk\n\nsecond chunk")
	assert.Contains(t, prompt, "Question: What is it?")
	assert.Contains(t, prompt, "Answer: Answer not found in document")
	assert.Contains(t, prompt, "Source: N/A")
}

func TestAnswerDocumentEndToEnd(t *testing.T) {
	completer := &fakeCompleter{reply: "Answer: J. Doe\nSource: ceo: J. Doe"}
	pipeline, _ := newTestPipeline(t, completer)

	qaPairs, err := pipeline.AnswerDocument(
		context.Background(),
		[]byte(`{"company":"Acme","ceo":"J. Doe"}`),
		models.KindJSON,
		[]string{"Who is the CEO?"},
	)
	require.NoError(t, err)
	require.Len(t, qaPairs, 1)
	assert.Equal(t, models.QAPair{
		Question: "Who is the CEO?",
		Answer:   "J. Doe",
		Source:   "ceo: J. Doe",
	}, qaPairs[0])
}

func TestAnswerDocumentPreservesOrder(t *testing.T) {
	completer := &fakeCompleter{
		echo: true,
		latency: func(prompt string) time.Duration {
			// earlier questions sleep longer, so completion order is
			// roughly the reverse of submission order
			var n int
			fmt.Sscanf(lastLine(prompt), "Q-%d", &n)
			return time.Duration(20-n) * time.Millisecond
		},
	}
	pipeline, _ := newTestPipeline(t, completer)

	questions := make([]string, models.MaxQuestions)
	for i := range questions {
		questions[i] = fmt.Sprintf("Q-%d", i)
	}

	qaPairs, err := pipeline.AnswerDocument(context.Background(), []byte(`{"k":"v"}`), models.KindJSON, questions)
	require.NoError(t, err)
	require.Len(t, qaPairs, len(questions))
	for i, pair := range qaPairs {
		assert.Equal(t, questions[i], pair.Question)
		assert.Equal(t, "reply to "+questions[i], pair.Answer)
	}
}

func TestAnswerDocumentBoundsConcurrency(t *testing.T) {
	completer := &fakeCompleter{
		echo:    true,
		latency: func(string) time.Duration { return 10 * time.Millisecond },
	}
	pipeline, _ := newTestPipeline(t, completer)

	questions := make([]string, models.MaxQuestions)
	for i := range questions {
		questions[i] = fmt.Sprintf("Q-%d", i)
	}

	_, err := pipeline.AnswerDocument(context.Background(), []byte(`{"k":"v"}`), models.KindJSON, questions)
	require.NoError(t, err)
	assert.Equal(t, int64(len(questions)), completer.calls.Load())
	assert.LessOrEqual(t, completer.maxInFlight.Load(), int64(models.MaxWorkers))
}

func TestAnswerDocumentIsolatesFailures(t *testing.T) {
	completer := &fakeCompleter{echo: true, failOn: "Q-7"}
	pipeline, _ := newTestPipeline(t, completer)

	questions := make([]string, 12)
	for i := range questions {
		questions[i] = fmt.Sprintf("Q-%d", i)
	}

	qaPairs, err := pipeline.AnswerDocument(context.Background(), []byte(`{"k":"v"}`), models.KindJSON, questions)
	require.NoError(t, err)
	require.Len(t, qaPairs, len(questions))
	for i, pair := range qaPairs {
		assert.Equal(t, questions[i], pair.Question)
		if i == 7 {
			assert.Contains(t, pair.Answer, "Error processing question")
			assert.Empty(t, pair.Source)
		} else {
			assert.Equal(t, "reply to "+questions[i], pair.Answer)
		}
	}
}

func TestAnswerDocumentRecoversWorkerPanic(t *testing.T) {
	completer := &fakeCompleter{echo: true, panicOn: "Q-2"}
	pipeline, _ := newTestPipeline(t, completer)

	questions := []string{"Q-0", "Q-1", "Q-2", "Q-3"}
	qaPairs, err := pipeline.AnswerDocument(context.Background(), []byte(`{"k":"v"}`), models.KindJSON, questions)
	require.NoError(t, err)
	require.Len(t, qaPairs, 4)
	assert.Contains(t, qaPairs[2].Answer, "Error processing question")
	assert.Equal(t, "reply to Q-3", qaPairs[3].Answer)
}

func TestAnswerDocumentReusesCachedIndex(t *testing.T) {
	completer := &fakeCompleter{reply: "Answer: X\nSource: N/A"}
	pipeline, embedder := newTestPipeline(t, completer)
	document := []byte(`{"company":"Acme"}`)

	_, err := pipeline.AnswerDocument(context.Background(), document, models.KindJSON, []string{"Q1?"})
	require.NoError(t, err)
	_, err = pipeline.AnswerDocument(context.Background(), document, models.KindJSON, []string{"Q2?"})
	require.NoError(t, err)

	// the second request hits the index cache, no new embedding work
	assert.Equal(t, int64(1), embedder.batchCalls.Load())
}

func TestAnswerDocumentQuestionBounds(t *testing.T) {
	pipeline, _ := newTestPipeline(t, &fakeCompleter{reply: "Answer: X\nSource: N/A"})

	_, err := pipeline.AnswerDocument(context.Background(), []byte(`{}`), models.KindJSON, nil)
	assert.ErrorIs(t, err, models.ErrNoQuestions)

	questions := make([]string, models.MaxQuestions+1)
	for i := range questions {
		questions[i] = "Q?"
	}
	_, err = pipeline.AnswerDocument(context.Background(), []byte(`{}`), models.KindJSON, questions)
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAnswerDocumentExtractionFailureAborts(t *testing.T) {
	completer := &fakeCompleter{reply: "Answer: X\nSource: N/A"}
	pipeline, _ := newTestPipeline(t, completer)

	_, err := pipeline.AnswerDocument(context.Background(), []byte(`{"broken`), models.KindJSON, []string{"Q1?"})
	require.Error(t, err)

	var parseErr *models.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, int64(0), completer.calls.Load())
}
