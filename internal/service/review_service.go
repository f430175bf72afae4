package service

import (
	"time"

	"studydeck/internal/generation"
	"studydeck/internal/models"
	"studydeck/internal/scheduler"
)

// CardStore is the card persistence surface the review service needs
type CardStore interface {
	CreateCards(cards []*models.ReviewCard) error
	GetCard(ownerID, cardID string) (*models.ReviewCard, error)
	ListDue(ownerID string, now time.Time) ([]models.ReviewCard, error)
	UpdateReviewState(card *models.ReviewCard) error
}

// ReviewService handles spaced-repetition reviews
type ReviewService struct {
	cards CardStore
	newID func() string
	now   func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(cards CardStore, newID func() string) *ReviewService {
	return &ReviewService{
		cards: cards,
		newID: newID,
		now:   time.Now,
	}
}

// Review grades a card and persists its advanced schedule. Quality is the
// 0-5 recall grade; an out-of-range grade leaves the card untouched.
func (s *ReviewService) Review(ownerID, cardID string, quality int) (*models.ReviewCard, error) {
	card, err := s.cards.GetCard(ownerID, cardID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result, err := scheduler.Review(*card, quality, now)
	if err != nil {
		return nil, err
	}

	scheduler.Apply(card, result, now)

	if err := s.cards.UpdateReviewState(card); err != nil {
		return nil, err
	}

	return card, nil
}

// DueCards returns the owner's cards due for review, soonest first
func (s *ReviewService) DueCards(ownerID string) ([]models.ReviewCard, error) {
	return s.cards.ListDue(ownerID, s.now())
}

// SaveFlashcards turns generated flashcards into review cards with fresh
// scheduling state, due immediately
func (s *ReviewService) SaveFlashcards(ownerID string, flashcards []generation.Flashcard) ([]models.ReviewCard, error) {
	now := s.now()

	cards := make([]*models.ReviewCard, len(flashcards))
	for i, f := range flashcards {
		card := scheduler.NewCard(s.newID(), ownerID, now)
		card.Front = f.Front
		card.Back = f.Back
		card.Topic = f.Topic
		cards[i] = &card
	}

	if err := s.cards.CreateCards(cards); err != nil {
		return nil, err
	}

	saved := make([]models.ReviewCard, len(cards))
	for i, card := range cards {
		saved[i] = *card
	}
	return saved, nil
}
