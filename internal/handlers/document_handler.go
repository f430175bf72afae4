package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"studydeck/internal/models"
)

// DocumentWriter is the persistence surface the document handler needs
type DocumentWriter interface {
	CreateDocument(doc *models.Document) error
}

// DocumentHandler handles document ingestion HTTP requests
type DocumentHandler struct {
	docs  DocumentWriter
	newID func() string
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docs DocumentWriter, newID func() string) *DocumentHandler {
	return &DocumentHandler{docs: docs, newID: newID}
}

type createDocumentRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// CreateDocument stores extracted text so sessions and generation can use it
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Text) == "" {
		respondWithError(w, http.StatusBadRequest, "Title and text are required", "", nil)
		return
	}

	doc := &models.Document{
		ID:            h.newID(),
		OwnerID:       ownerID,
		Title:         req.Title,
		ExtractedText: req.Text,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.docs.CreateDocument(doc); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to create document", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, documentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
	})
}
