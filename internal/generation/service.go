// Package generation turns the raw LLM provider into the typed generator
// capabilities the rest of the backend consumes: practice-question batches,
// summaries and flashcard sets. All provider failures surface as *Error.
package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"studydeck/internal/coordinator"
	"studydeck/internal/llm"
)

// Mode names a kind of generated study material. It is part of the
// request fingerprint used for deduplication.
type Mode string

const (
	ModeQuestions  Mode = "questions"
	ModeSummary    Mode = "summary"
	ModeFlashcards Mode = "flashcards"
)

// ValidMode reports whether mode names a supported generation mode
// other than question batches (which flow through sessions).
func ValidMode(mode Mode) bool {
	return mode == ModeSummary || mode == ModeFlashcards
}

// Flashcard is one generated card, not yet under spaced repetition.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Topic string `json:"topic"`
}

// Materials is the result of a summary or flashcard generation.
type Materials struct {
	Mode       Mode        `json:"mode"`
	Summary    string      `json:"summary,omitempty"`
	KeyPoints  []string    `json:"keyPoints,omitempty"`
	Flashcards []Flashcard `json:"flashcards,omitempty"`
}

// Config bounds the generation requests sent to the provider.
type Config struct {
	MaxTokens       int
	Temperature     float64
	MaxPriorTopics  int
	MaxContextChars int
	FlashcardCount  int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:       4096,
		Temperature:     0.7,
		MaxPriorTopics:  30,
		MaxContextChars: 12000,
		FlashcardCount:  20,
	}
}

// Service generates study materials through an llm.Provider. It implements
// coordinator.Generator for question-batch sessions.
type Service struct {
	provider llm.Provider
	cfg      Config
}

// NewService creates a generation service.
func NewService(provider llm.Provider, cfg Config) *Service {
	if cfg.MaxTokens == 0 {
		cfg = DefaultConfig()
	}
	return &Service{provider: provider, cfg: cfg}
}

type questionBatchOutput struct {
	Questions []questionOutput `json:"questions"`
}

type questionOutput struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Topic       string   `json:"topic"`
}

// GenerateBatch produces one batch of practice questions, steering the
// model away from topics the session has already covered.
func (s *Service) GenerateBatch(ctx context.Context, req coordinator.BatchRequest) (*coordinator.BatchResult, error) {
	userMsg := buildQuestionMessage(
		truncate(req.ContextSummary, s.cfg.MaxContextChars),
		req.PriorTopics,
		req.Count,
		s.cfg.MaxPriorTopics,
	)

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      questionSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      questionBatchSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, &Error{Op: "question batch", Err: err}
	}

	var out questionBatchOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, &Error{Op: "question batch", Err: fmt.Errorf("parse response: %w", err)}
	}

	result := &coordinator.BatchResult{
		Questions: make([]coordinator.GeneratedQuestion, len(out.Questions)),
	}
	for i, q := range out.Questions {
		payload, err := json.Marshal(q)
		if err != nil {
			return nil, &Error{Op: "question batch", Err: fmt.Errorf("encode question payload: %w", err)}
		}
		result.Questions[i] = coordinator.GeneratedQuestion{
			Topic:   q.Topic,
			Payload: payload,
		}
	}
	return result, nil
}

type summaryOutput struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// GenerateSummary produces a structured summary of the given text.
func (s *Service) GenerateSummary(ctx context.Context, text string) (*Materials, error) {
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      summarySystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildSummaryMessage(truncate(text, s.cfg.MaxContextChars))}},
		Schema:      summarySchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, &Error{Op: "summary", Err: err}
	}

	var out summaryOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, &Error{Op: "summary", Err: fmt.Errorf("parse response: %w", err)}
	}

	return &Materials{
		Mode:      ModeSummary,
		Summary:   out.Summary,
		KeyPoints: out.KeyPoints,
	}, nil
}

type flashcardSetOutput struct {
	Flashcards []Flashcard `json:"flashcards"`
}

// GenerateFlashcards produces a flashcard set from the given text.
func (s *Service) GenerateFlashcards(ctx context.Context, text string) (*Materials, error) {
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      flashcardSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildFlashcardMessage(truncate(text, s.cfg.MaxContextChars), s.cfg.FlashcardCount)}},
		Schema:      flashcardSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, &Error{Op: "flashcards", Err: err}
	}

	var out flashcardSetOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, &Error{Op: "flashcards", Err: fmt.Errorf("parse response: %w", err)}
	}
	if len(out.Flashcards) == 0 {
		return nil, &Error{Op: "flashcards", Err: fmt.Errorf("model produced no flashcards")}
	}

	return &Materials{
		Mode:       ModeFlashcards,
		Flashcards: out.Flashcards,
	}, nil
}
