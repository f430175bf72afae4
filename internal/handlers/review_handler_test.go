package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studydeck/internal/models"
	"studydeck/internal/repository"
	"studydeck/internal/scheduler"
	"studydeck/internal/service"
)

type stubCardStore struct {
	cards     map[string]models.ReviewCard
	updateErr error
}

func newStubCardStore() *stubCardStore {
	return &stubCardStore{cards: make(map[string]models.ReviewCard)}
}

func (s *stubCardStore) CreateCards(cards []*models.ReviewCard) error {
	for _, card := range cards {
		s.cards[card.ID] = *card
	}
	return nil
}

func (s *stubCardStore) GetCard(ownerID, cardID string) (*models.ReviewCard, error) {
	card, ok := s.cards[cardID]
	if !ok || card.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	copied := card
	return &copied, nil
}

func (s *stubCardStore) ListDue(ownerID string, now time.Time) ([]models.ReviewCard, error) {
	var due []models.ReviewCard
	for _, card := range s.cards {
		if card.OwnerID == ownerID && card.IsDue(now) {
			due = append(due, card)
		}
	}
	return due, nil
}

func (s *stubCardStore) UpdateReviewState(card *models.ReviewCard) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.cards[card.ID] = *card
	return nil
}

func ownerRequest(method, target, body, ownerID string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := context.WithValue(req.Context(), OwnerContextKey, ownerID)
	return req.WithContext(ctx)
}

func TestReviewCardReturnsAdvancedSchedule(t *testing.T) {
	store := newStubCardStore()
	card := scheduler.NewCard("card-1", "owner-1", time.Now().Add(-24*time.Hour))
	store.cards[card.ID] = card

	handler := NewReviewHandler(service.NewReviewService(store, func() string { return "x" }))

	req := ownerRequest("POST", "/api/cards/card-1/review", `{"quality":5}`, "owner-1")
	req.SetPathValue("cardID", "card-1")
	recorder := httptest.NewRecorder()

	handler.ReviewCard(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var resp cardResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Repetitions != 1 || resp.IntervalDays != 1 {
		t.Errorf("schedule = %+v, want repetitions 1, interval 1", resp)
	}
}

func TestReviewCardStatusMapping(t *testing.T) {
	store := newStubCardStore()
	card := scheduler.NewCard("card-1", "owner-1", time.Now())
	store.cards[card.ID] = card

	handler := NewReviewHandler(service.NewReviewService(store, func() string { return "x" }))

	tests := []struct {
		name       string
		cardID     string
		body       string
		wantStatus int
	}{
		{"quality too high", "card-1", `{"quality":6}`, http.StatusBadRequest},
		{"quality negative", "card-1", `{"quality":-1}`, http.StatusBadRequest},
		{"malformed body", "card-1", `{"quality":`, http.StatusBadRequest},
		{"unknown card", "card-404", `{"quality":4}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ownerRequest("POST", "/api/cards/"+tt.cardID+"/review", tt.body, "owner-1")
			req.SetPathValue("cardID", tt.cardID)
			recorder := httptest.NewRecorder()

			handler.ReviewCard(recorder, req)

			if recorder.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
		})
	}
}

func TestReviewCardConflictReturns409(t *testing.T) {
	store := newStubCardStore()
	card := scheduler.NewCard("card-1", "owner-1", time.Now())
	store.cards[card.ID] = card
	store.updateErr = repository.ErrConflict

	handler := NewReviewHandler(service.NewReviewService(store, func() string { return "x" }))

	req := ownerRequest("POST", "/api/cards/card-1/review", `{"quality":5}`, "owner-1")
	req.SetPathValue("cardID", "card-1")
	recorder := httptest.NewRecorder()

	handler.ReviewCard(recorder, req)

	if recorder.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 when the card was reviewed concurrently", recorder.Code)
	}
}

func TestReviewCardScopedToOwner(t *testing.T) {
	store := newStubCardStore()
	card := scheduler.NewCard("card-1", "owner-1", time.Now())
	store.cards[card.ID] = card

	handler := NewReviewHandler(service.NewReviewService(store, func() string { return "x" }))

	req := ownerRequest("POST", "/api/cards/card-1/review", `{"quality":4}`, "owner-2")
	req.SetPathValue("cardID", "card-1")
	recorder := httptest.NewRecorder()

	handler.ReviewCard(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for another owner's card", recorder.Code)
	}
}

func TestDueCardsListsOnlyDue(t *testing.T) {
	store := newStubCardStore()
	due := scheduler.NewCard("due", "owner-1", time.Now().Add(-time.Hour))
	future := scheduler.NewCard("future", "owner-1", time.Now())
	future.NextReviewAt = time.Now().Add(24 * time.Hour)
	store.cards[due.ID] = due
	store.cards[future.ID] = future

	handler := NewReviewHandler(service.NewReviewService(store, func() string { return "x" }))

	req := ownerRequest("GET", "/api/cards/due", "", "owner-1")
	recorder := httptest.NewRecorder()

	handler.DueCards(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}

	var resp struct {
		Cards []cardResponse `json:"cards"`
		Count int            `json:"count"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Cards) != 1 || resp.Cards[0].ID != "due" {
		t.Errorf("response = %+v, want only the due card", resp)
	}
}
