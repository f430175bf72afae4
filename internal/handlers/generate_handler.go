package handlers

import (
	"encoding/json"
	"net/http"

	"studydeck/internal/generation"
	"studydeck/internal/service"
)

// GenerateHandler handles on-demand material generation requests
type GenerateHandler struct {
	study *service.StudyService
}

// NewGenerateHandler creates a new generate handler
func NewGenerateHandler(study *service.StudyService) *GenerateHandler {
	return &GenerateHandler{study: study}
}

type generateRequest struct {
	ContentIDs []string `json:"contentIds"`
	Mode       string   `json:"mode"`
}

// Generate produces a summary or flashcard set from the given documents.
// Identical concurrent requests share one upstream call; a repeat of a
// recent request is served from cache.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerFromContext(r.Context())

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", err)
		return
	}

	materials, err := h.study.GenerateMaterials(r.Context(), ownerID, req.ContentIDs, generation.Mode(req.Mode))
	if err != nil {
		respondWithStudyError(w, err, "Failed to generate materials")
		return
	}

	respondWithJSON(w, http.StatusOK, materials)
}
