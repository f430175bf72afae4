package service

import (
	"context"
	"errors"
	"fmt"

	"studydeck/internal/coordinator"
	"studydeck/internal/generation"
	"studydeck/internal/models"
	"studydeck/internal/naming"
)

// ErrInvalidMode is returned for an unknown generation mode
var ErrInvalidMode = errors.New("unsupported generation mode")

// DocumentStore is the document surface the study service needs
type DocumentStore interface {
	GetExtractedText(ownerID string, docIDs []string) (string, error)
	ListDocuments(ownerID string) ([]models.Document, error)
}

// MaterialsGenerator produces summaries and flashcard sets
type MaterialsGenerator interface {
	GenerateSummary(ctx context.Context, text string) (*generation.Materials, error)
	GenerateFlashcards(ctx context.Context, text string) (*generation.Materials, error)
}

// FlashcardSaver persists generated flashcards as review cards
type FlashcardSaver interface {
	SaveFlashcards(ownerID string, flashcards []generation.Flashcard) ([]models.ReviewCard, error)
}

// StudyService coordinates study sessions and material generation. Identical
// generation requests are coalesced on a fingerprint of owner, content and
// mode, so repeated submits share one upstream call and recent results are
// served from cache.
type StudyService struct {
	sessions  *coordinator.SessionManager
	generator MaterialsGenerator
	saver     FlashcardSaver
	docs      DocumentStore
	coalescer *coordinator.Coalescer[*generation.Materials]
	newID     func() string
	newLabel  func() (string, error)
}

// NewStudyService creates a new study service. The coalescer is owned by the
// caller; Close it on shutdown.
func NewStudyService(
	sessions *coordinator.SessionManager,
	generator MaterialsGenerator,
	saver FlashcardSaver,
	docs DocumentStore,
	coalescer *coordinator.Coalescer[*generation.Materials],
	newID func() string,
) *StudyService {
	return &StudyService{
		sessions:  sessions,
		generator: generator,
		saver:     saver,
		docs:      docs,
		coalescer: coalescer,
		newID:     newID,
		newLabel:  naming.SessionLabel,
	}
}

// CreateSession starts a question-batch session over the given documents and
// generates its first batch before returning
func (s *StudyService) CreateSession(ctx context.Context, ownerID string, contentIDs []string, label string) (*models.StudySession, error) {
	if len(contentIDs) == 0 {
		return nil, coordinator.ErrNoContent
	}

	text, err := s.docs.GetExtractedText(ownerID, contentIDs)
	if err != nil {
		return nil, err
	}

	if label == "" {
		label, err = s.newLabel()
		if err != nil {
			return nil, fmt.Errorf("generate session label: %w", err)
		}
	}

	session := &models.StudySession{
		ID:             s.newID(),
		OwnerID:        ownerID,
		Label:          label,
		ContentKey:     coordinator.Fingerprint(ownerID, contentIDs, string(generation.ModeQuestions), len(text)),
		ContentIDs:     contentIDs,
		ContextSummary: text,
	}

	return s.sessions.CreateSession(ctx, session)
}

// NextQuestions delivers the next unseen questions from a session. A limit
// of 0 means the default page size.
func (s *StudyService) NextQuestions(ctx context.Context, ownerID, sessionID string, limit int) (*coordinator.Delivery, error) {
	if limit == 0 {
		limit = coordinator.DefaultQuestionLimit
	}
	return s.sessions.NextQuestions(ctx, ownerID, sessionID, limit)
}

// ListDocuments returns the owner's uploaded documents
func (s *StudyService) ListDocuments(ownerID string) ([]models.Document, error) {
	return s.docs.ListDocuments(ownerID)
}

// GenerateMaterials produces a summary or flashcard set from the given
// documents. Generated flashcards are also saved as review cards; the save
// happens inside the coalesced call so a failure is never cached.
func (s *StudyService) GenerateMaterials(ctx context.Context, ownerID string, contentIDs []string, mode generation.Mode) (*generation.Materials, error) {
	if !generation.ValidMode(mode) {
		return nil, ErrInvalidMode
	}
	if len(contentIDs) == 0 {
		return nil, coordinator.ErrNoContent
	}

	text, err := s.docs.GetExtractedText(ownerID, contentIDs)
	if err != nil {
		return nil, err
	}

	key := coordinator.Fingerprint(ownerID, contentIDs, string(mode), len(text))

	return s.coalescer.Do(ctx, key, func(ctx context.Context) (*generation.Materials, error) {
		switch mode {
		case generation.ModeSummary:
			return s.generator.GenerateSummary(ctx, text)
		case generation.ModeFlashcards:
			materials, err := s.generator.GenerateFlashcards(ctx, text)
			if err != nil {
				return nil, err
			}
			if _, err := s.saver.SaveFlashcards(ownerID, materials.Flashcards); err != nil {
				return nil, fmt.Errorf("save flashcards: %w", err)
			}
			return materials, nil
		default:
			return nil, ErrInvalidMode
		}
	})
}
