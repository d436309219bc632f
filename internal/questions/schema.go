package questions

import "github.com/abhisek/lumen/internal/llm"

// QuestionSchema is the response shape for a batch of flashcards. Free
// response items leave options empty and correct_answer blank.
var QuestionSchema = &llm.Schema{
	Name:        "flashcard-questions",
	Description: "Study questions about one concept at a given cognitive level",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question, phrased as a tutor would ask it",
						},
						"target_explanation": map[string]any{
							"type":        "string",
							"description": "The core idea a correct answer must demonstrate",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Answer choices for multiple choice items; empty for free response",
						},
						"correct_answer": map[string]any{
							"type":        "string",
							"description": "The correct choice, copied exactly from options; empty for free response",
						},
					},
					"required":             []any{"question", "target_explanation", "options", "correct_answer"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
