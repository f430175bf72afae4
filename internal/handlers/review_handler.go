package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"studydeck/internal/models"
	"studydeck/internal/repository"
	"studydeck/internal/scheduler"
	"studydeck/internal/service"
)

// ReviewHandler handles spaced-repetition HTTP requests
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type reviewRequest struct {
	Quality int `json:"quality"`
}

type cardResponse struct {
	ID             string     `json:"id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Topic          string     `json:"topic,omitempty"`
	Repetitions    int        `json:"repetitions"`
	EaseFactor     float64    `json:"easeFactor"`
	IntervalDays   int        `json:"intervalDays"`
	NextReviewAt   time.Time  `json:"nextReviewAt"`
	LastReviewedAt *time.Time `json:"lastReviewedAt,omitempty"`
}

func toCardResponse(card *models.ReviewCard) cardResponse {
	return cardResponse{
		ID:             card.ID,
		Front:          card.Front,
		Back:           card.Back,
		Topic:          card.Topic,
		Repetitions:    card.Repetitions,
		EaseFactor:     card.EaseFactor,
		IntervalDays:   card.IntervalDays,
		NextReviewAt:   card.NextReviewAt,
		LastReviewedAt: card.LastReviewedAt,
	}
}

// ReviewCard grades a card with a 0-5 recall quality and returns its
// advanced schedule
func (h *ReviewHandler) ReviewCard(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	cardID := r.PathValue("cardID")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	card, err := h.reviews.Review(ownerID, cardID, req.Quality)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrQualityOutOfRange):
			respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		case errors.Is(err, repository.ErrNotFound):
			respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		case errors.Is(err, repository.ErrConflict):
			respondWithError(w, http.StatusConflict, ErrReviewConflict, "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to review card", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, toCardResponse(card))
}

// DueCards lists the owner's cards currently due for review
func (h *ReviewHandler) DueCards(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	cards, err := h.reviews.DueCards(ownerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to list due cards", err)
		return
	}

	responses := make([]cardResponse, len(cards))
	for i := range cards {
		responses[i] = toCardResponse(&cards[i])
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cards": responses,
		"count": len(responses),
	})
}
