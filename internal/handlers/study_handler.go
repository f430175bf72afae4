package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"studydeck/internal/coordinator"
	"studydeck/internal/generation"
	"studydeck/internal/service"
)

// StudyHandler handles question-batch session HTTP requests
type StudyHandler struct {
	study *service.StudyService
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(study *service.StudyService) *StudyHandler {
	return &StudyHandler{study: study}
}

type createSessionRequest struct {
	ContentIDs []string `json:"contentIds"`
	Label      string   `json:"label"`
}

type sessionResponse struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	ContentIDs     []string  `json:"contentIds"`
	TotalGenerated int       `json:"totalGenerated"`
	Remaining      int       `json:"remaining"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateSession starts a new question-batch session and generates its first
// batch before responding
func (h *StudyHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	session, err := h.study.CreateSession(r.Context(), ownerID, req.ContentIDs, req.Label)
	if err != nil {
		respondWithStudyError(w, err, "Failed to create session")
		return
	}

	respondWithJSON(w, http.StatusCreated, sessionResponse{
		ID:             session.ID,
		Label:          session.Label,
		ContentIDs:     session.ContentIDs,
		TotalGenerated: session.TotalGenerated,
		Remaining:      session.UnseenCount(),
		CreatedAt:      session.CreatedAt,
	})
}

type nextQuestionsRequest struct {
	Limit int `json:"limit"`
}

type questionResponse struct {
	ID          string          `json:"id"`
	BatchNumber int             `json:"batchNumber"`
	Position    int             `json:"position"`
	Topic       string          `json:"topic,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

type deliveryResponse struct {
	Questions         []questionResponse `json:"questions"`
	Remaining         int                `json:"remaining"`
	NewBatchGenerated bool               `json:"newBatchGenerated"`
}

// NextQuestions delivers the next unseen questions from a session. Questions
// are never delivered twice; when the pool is exhausted a fresh batch is
// generated first.
func (h *StudyHandler) NextQuestions(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())
	sessionID := r.PathValue("sessionID")

	// An absent body means "use the default page size"
	var req nextQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	delivery, err := h.study.NextQuestions(r.Context(), ownerID, sessionID, req.Limit)
	if err != nil {
		respondWithStudyError(w, err, "Failed to deliver questions")
		return
	}

	questions := make([]questionResponse, len(delivery.Questions))
	for i, q := range delivery.Questions {
		questions[i] = questionResponse{
			ID:          q.ID,
			BatchNumber: q.BatchNumber,
			Position:    q.Position,
			Topic:       q.Topic,
			Payload:     q.Payload,
		}
	}

	respondWithJSON(w, http.StatusOK, deliveryResponse{
		Questions:         questions,
		Remaining:         delivery.Remaining,
		NewBatchGenerated: delivery.NewBatchGenerated,
	})
}

type documentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListDocuments lists the owner's uploaded documents
func (h *StudyHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	docs, err := h.study.ListDocuments(ownerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to list documents", err)
		return
	}

	responses := make([]documentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = documentResponse{ID: doc.ID, Title: doc.Title, CreatedAt: doc.CreatedAt}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"documents": responses})
}

// respondWithStudyError maps session and generation errors onto HTTP status
// codes. Generator failures become 502 so clients can tell "the model
// failed, retry" apart from their own bad input.
func respondWithStudyError(w http.ResponseWriter, err error, logMsg string) {
	var genErr *generation.Error

	switch {
	case errors.Is(err, coordinator.ErrNoContent),
		errors.Is(err, coordinator.ErrInvalidLimit),
		errors.Is(err, service.ErrInvalidMode):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	case errors.Is(err, coordinator.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
	case errors.As(err, &genErr):
		respondWithError(w, http.StatusBadGateway, ErrGenerationFailed, logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
