package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studydeck/internal/coordinator"
	"studydeck/internal/generation"
	"studydeck/internal/models"
	"studydeck/internal/service"
)

type stubSessionStore struct {
	sessions map[string]*models.StudySession
}

func (s *stubSessionStore) CreateSession(session *models.StudySession) error {
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

func (s *stubSessionStore) GetSession(ownerID, sessionID string) (*models.StudySession, error) {
	session, ok := s.sessions[sessionID]
	if !ok || session.OwnerID != ownerID {
		return nil, coordinator.ErrSessionNotFound
	}
	clone := *session
	clone.Batches = make([]models.QuestionBatch, len(session.Batches))
	for i, b := range session.Batches {
		clone.Batches[i] = b
		clone.Batches[i].Questions = append([]models.SessionQuestion(nil), b.Questions...)
	}
	return &clone, nil
}

func (s *stubSessionStore) AppendBatch(session *models.StudySession, batch models.QuestionBatch, coveredTopics []string) error {
	stored, ok := s.sessions[session.ID]
	if !ok {
		return coordinator.ErrSessionNotFound
	}
	stored.Batches = append(stored.Batches, batch)
	stored.CoveredTopics = coveredTopics
	stored.TotalGenerated += len(batch.Questions)
	return nil
}

func (s *stubSessionStore) MarkShown(sessionID string, questionIDs []string, shownAt time.Time) error {
	session, ok := s.sessions[sessionID]
	if !ok {
		return coordinator.ErrSessionNotFound
	}
	ids := make(map[string]bool)
	for _, id := range questionIDs {
		ids[id] = true
	}
	for i := range session.Batches {
		for j := range session.Batches[i].Questions {
			if ids[session.Batches[i].Questions[j].ID] {
				session.Batches[i].Questions[j].Status = models.QuestionShown
			}
		}
	}
	return nil
}

type stubBatchGen struct {
	err error
}

func (g *stubBatchGen) GenerateBatch(ctx context.Context, req coordinator.BatchRequest) (*coordinator.BatchResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	result := &coordinator.BatchResult{}
	for i := 0; i < req.Count; i++ {
		result.Questions = append(result.Questions, coordinator.GeneratedQuestion{
			Topic:   fmt.Sprintf("topic-%d", i),
			Payload: json.RawMessage(`{"question":"q"}`),
		})
	}
	return result, nil
}

type stubMaterialsGen struct{}

func (g *stubMaterialsGen) GenerateSummary(ctx context.Context, text string) (*generation.Materials, error) {
	return &generation.Materials{Mode: generation.ModeSummary, Summary: "s"}, nil
}

func (g *stubMaterialsGen) GenerateFlashcards(ctx context.Context, text string) (*generation.Materials, error) {
	return &generation.Materials{
		Mode:       generation.ModeFlashcards,
		Flashcards: []generation.Flashcard{{Front: "f", Back: "b", Topic: "t"}},
	}, nil
}

type stubSaver struct{ calls int }

func (s *stubSaver) SaveFlashcards(ownerID string, flashcards []generation.Flashcard) ([]models.ReviewCard, error) {
	s.calls++
	return nil, nil
}

type stubDocs struct{ texts map[string]string }

func (d *stubDocs) GetExtractedText(ownerID string, docIDs []string) (string, error) {
	var text string
	for _, id := range docIDs {
		part, ok := d.texts[id]
		if !ok {
			return "", fmt.Errorf("document %s: not found", id)
		}
		text += part
	}
	return text, nil
}

func (d *stubDocs) ListDocuments(ownerID string) ([]models.Document, error) {
	return []models.Document{{ID: "doc-1", OwnerID: ownerID, Title: "Notes", CreatedAt: time.Now()}}, nil
}

func newStudyHandlers(t *testing.T, batchErr error) (*StudyHandler, *GenerateHandler, *stubSaver) {
	t.Helper()

	store := &stubSessionStore{sessions: make(map[string]*models.StudySession)}
	coalescer := coordinator.NewCoalescer[*generation.Materials](5*time.Minute, time.Hour)
	t.Cleanup(coalescer.Close)

	counter := 0
	newID := func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	}

	saver := &stubSaver{}
	sessions := coordinator.NewSessionManager(store, &stubBatchGen{err: batchErr}, 6, newID)
	study := service.NewStudyService(sessions, &stubMaterialsGen{}, saver, &stubDocs{texts: map[string]string{"doc-1": "text"}}, coalescer, newID)

	return NewStudyHandler(study), NewGenerateHandler(study), saver
}

func TestCreateSessionReturnsFirstBatch(t *testing.T) {
	handler, _, _ := newStudyHandlers(t, nil)

	req := ownerRequest("POST", "/api/sessions", `{"contentIds":["doc-1"]}`, "owner-1")
	recorder := httptest.NewRecorder()

	handler.CreateSession(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalGenerated != 6 || resp.Remaining != 6 {
		t.Errorf("response = %+v, want 6 generated and 6 remaining", resp)
	}
	if resp.Label == "" {
		t.Error("label should be generated")
	}
}

func TestCreateSessionRequiresContent(t *testing.T) {
	handler, _, _ := newStudyHandlers(t, nil)

	req := ownerRequest("POST", "/api/sessions", `{"contentIds":[]}`, "owner-1")
	recorder := httptest.NewRecorder()

	handler.CreateSession(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}

func TestCreateSessionGeneratorFailureIs502(t *testing.T) {
	handler, _, _ := newStudyHandlers(t, &generation.Error{Op: "question batch", Err: errors.New("model down")})

	req := ownerRequest("POST", "/api/sessions", `{"contentIds":["doc-1"]}`, "owner-1")
	recorder := httptest.NewRecorder()

	handler.CreateSession(recorder, req)

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", recorder.Code)
	}
}

func TestNextQuestionsDefaultsAndPaginates(t *testing.T) {
	handler, _, _ := newStudyHandlers(t, nil)

	req := ownerRequest("POST", "/api/sessions", `{"contentIds":["doc-1"]}`, "owner-1")
	recorder := httptest.NewRecorder()
	handler.CreateSession(recorder, req)

	var created sessionResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	// Empty body means the default page size of 5
	req = ownerRequest("POST", "/api/sessions/"+created.ID+"/questions", "", "owner-1")
	req.SetPathValue("sessionID", created.ID)
	recorder = httptest.NewRecorder()
	handler.NextQuestions(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var first deliveryResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode delivery: %v", err)
	}
	if len(first.Questions) != 5 || first.Remaining != 1 || first.NewBatchGenerated {
		t.Errorf("first delivery = %+v, want 5 questions and 1 remaining", first)
	}

	// Second call drains the last question of the batch
	req = ownerRequest("POST", "/api/sessions/"+created.ID+"/questions", `{"limit":5}`, "owner-1")
	req.SetPathValue("sessionID", created.ID)
	recorder = httptest.NewRecorder()
	handler.NextQuestions(recorder, req)

	var second deliveryResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode delivery: %v", err)
	}
	if len(second.Questions) != 1 || second.Remaining != 0 || second.NewBatchGenerated {
		t.Errorf("second delivery = %+v, want the 1 leftover question", second)
	}

	// Third call finds the pool exhausted and rolls into a fresh batch
	req = ownerRequest("POST", "/api/sessions/"+created.ID+"/questions", `{"limit":5}`, "owner-1")
	req.SetPathValue("sessionID", created.ID)
	recorder = httptest.NewRecorder()
	handler.NextQuestions(recorder, req)

	var third deliveryResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &third); err != nil {
		t.Fatalf("decode delivery: %v", err)
	}
	if len(third.Questions) != 5 || !third.NewBatchGenerated {
		t.Errorf("third delivery = %+v, want 5 questions from a new batch", third)
	}

	seen := make(map[string]bool)
	for _, q := range first.Questions {
		seen[q.ID] = true
	}
	for _, q := range append(second.Questions, third.Questions...) {
		if seen[q.ID] {
			t.Errorf("question %s delivered twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestNextQuestionsUnknownSession(t *testing.T) {
	handler, _, _ := newStudyHandlers(t, nil)

	req := ownerRequest("POST", "/api/sessions/nope/questions", `{"limit":5}`, "owner-1")
	req.SetPathValue("sessionID", "nope")
	recorder := httptest.NewRecorder()

	handler.NextQuestions(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
}

func TestGenerateSavesFlashcards(t *testing.T) {
	_, handler, saver := newStudyHandlers(t, nil)

	req := ownerRequest("POST", "/api/generate", `{"contentIds":["doc-1"],"mode":"flashcards"}`, "owner-1")
	recorder := httptest.NewRecorder()

	handler.Generate(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	if saver.calls != 1 {
		t.Errorf("saver called %d times, want 1", saver.calls)
	}

	var materials generation.Materials
	if err := json.Unmarshal(recorder.Body.Bytes(), &materials); err != nil {
		t.Fatalf("decode materials: %v", err)
	}
	if materials.Mode != generation.ModeFlashcards || len(materials.Flashcards) != 1 {
		t.Errorf("materials = %+v", materials)
	}
}

func TestGenerateRejectsUnknownMode(t *testing.T) {
	_, handler, _ := newStudyHandlers(t, nil)

	req := ownerRequest("POST", "/api/generate", `{"contentIds":["doc-1"],"mode":"questions"}`, "owner-1")
	recorder := httptest.NewRecorder()

	handler.Generate(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}
