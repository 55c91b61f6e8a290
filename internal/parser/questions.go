package parser

import (
	"encoding/json"

	"github.com/satyajitsk27/zania/internal/models"
)

// ParseQuestions extracts the ordered question list from a JSON payload.
// Accepted shapes: a bare array of strings, an array of {"question": ...}
// objects (mixed entries allowed, nulls skipped), or an object with a
// "questions" key holding either of those arrays.
func ParseQuestions(data []byte) ([]string, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, &models.ParseError{Subject: "questions file", Err: err}
	}

	var questions []string
	switch v := value.(type) {
	case []any:
		questions = questionsFromList(v)
	case map[string]any:
		if list, ok := v["questions"].([]any); ok {
			questions = questionsFromList(list)
		}
	}

	if len(questions) == 0 {
		return nil, models.ErrNoQuestions
	}
	if len(questions) > models.MaxQuestions {
		return nil, models.NewValidationError("question count", len(questions), models.MaxQuestions, models.ErrTooManyQuestions)
	}
	return questions, nil
}

func questionsFromList(list []any) []string {
	var questions []string
	for _, item := range list {
		switch q := item.(type) {
		case string:
			questions = append(questions, q)
		case map[string]any:
			if s, ok := q["question"].(string); ok {
				questions = append(questions, s)
			}
		}
	}
	return questions
}
