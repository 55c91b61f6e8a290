package models

import "time"

// Operating limits for a single request.
const (
	MaxPayloadBytes = 10 << 20 // per uploaded file
	MaxPDFPages     = 50
	MaxTextChars    = 200000
	MaxQuestions    = 20

	ChunkSize    = 1000 // characters per window
	ChunkOverlap = 200  // characters shared between consecutive windows

	RetrievalTopK = 3

	BatchSize      = 5 // questions dispatched together
	MaxWorkers     = 3 // concurrent completions
	IndexCacheSize = 10

	CompletionTimeout = 60 * time.Second
)

// NotFoundAnswer is the literal reply the model is instructed to give when
// the retrieved context does not support an answer.
const NotFoundAnswer = "Answer not found in document"

// AnswerPromptTemplate grounds the model on retrieved context and forces
// the two-line Answer/Source reply shape the answer parser expects.
// Placeholders: context, question.
const AnswerPromptTemplate = `Use the following pieces of context to answer the question at the end.
If you cannot find the answer in the context, respond with "Answer not found in document".
Always include a relevant quote from the context as your source if the answer is found.

Context: %s

Question: %s

Provide your answer in the following format:
Answer: [Your answer here]
Source: [Relevant quote from the document]

If the answer is not in the document, respond with:
Answer: Answer not found in document
Source: N/A
`
