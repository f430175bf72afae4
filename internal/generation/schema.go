package generation

import "studydeck/internal/llm"

// questionBatchSchema constrains the model's output for a batch of
// practice questions.
var questionBatchSchema = &llm.Schema{
	Name:        "question-batch",
	Description: "A batch of practice questions derived from study material",
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
							"description": "The question text, self-contained and answerable from the material",
						},
						"choices": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 answer options with exactly one correct",
						},
						"answer": map[string]any{
							"type":        "string",
							"description": "The text of the correct option",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the answer is correct, citing the material",
						},
						"topic": map[string]any{
							"type":        "string",
							"description": "A short topic label for this question",
						},
					},
					"required":             []any{"question", "choices", "answer", "explanation", "topic"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// summarySchema constrains the model's output for a study summary.
var summarySchema = &llm.Schema{
	Name:        "study-summary",
	Description: "A structured summary of study material",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "A concise summary of the key points",
			},
			"key_points": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "The most important facts, one per entry",
			},
		},
		"required":             []any{"summary", "key_points"},
		"additionalProperties": false,
	},
}

// flashcardSchema constrains the model's output for flashcard generation.
var flashcardSchema = &llm.Schema{
	Name:        "flashcard-set",
	Description: "A set of flashcards derived from study material",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"flashcards": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"front": map[string]any{
							"type":        "string",
							"description": "The prompt side: a question or term",
						},
						"back": map[string]any{
							"type":        "string",
							"description": "The answer side: a concise, complete answer",
						},
						"topic": map[string]any{
							"type":        "string",
							"description": "A short topic label for this card",
						},
					},
					"required":             []any{"front", "back", "topic"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"flashcards"},
		"additionalProperties": false,
	},
}
