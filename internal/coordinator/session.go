package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"studydeck/internal/models"
)

const (
	// DefaultQuestionLimit is how many questions a next-questions call
	// returns when the caller does not ask for a specific count.
	DefaultQuestionLimit = 5

	// topicSeedPrefix is how many questions from the front of a new
	// batch seed the session's covered-topics list. Keeping it a prefix
	// bounds the steering context sent to the generator.
	topicSeedPrefix = 5
)

var (
	// ErrInvalidLimit is returned for a next-questions limit below 1.
	ErrInvalidLimit = errors.New("question limit must be at least 1")

	// ErrNoContent is returned when a session is created without any
	// source content.
	ErrNoContent = errors.New("session requires at least one source document")

	// ErrSessionNotFound is returned by stores when no session matches.
	ErrSessionNotFound = errors.New("study session not found")

	// ErrEmptyBatch is returned when the generator produces a batch
	// with no questions.
	ErrEmptyBatch = errors.New("generator returned an empty batch")
)

// BatchRequest describes one round of question generation.
type BatchRequest struct {
	OwnerID        string
	ContextSummary string
	PriorTopics    []string
	BatchNumber    int
	Count          int
}

// GeneratedQuestion is one question produced by the generator. The payload
// is opaque to the coordinator.
type GeneratedQuestion struct {
	Topic   string
	Payload json.RawMessage
}

// BatchResult is the generator's output for one batch request.
type BatchResult struct {
	Questions []GeneratedQuestion
}

// Generator produces a batch of practice questions. It is expected to be
// slow and failable; failures must be surfaced, not retried here.
type Generator interface {
	GenerateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
}

// SessionStore persists study sessions. Implementations must apply each
// mutation atomically; serialization of calls for one session is the
// SessionManager's job.
type SessionStore interface {
	CreateSession(session *models.StudySession) error
	GetSession(ownerID, sessionID string) (*models.StudySession, error)
	AppendBatch(session *models.StudySession, batch models.QuestionBatch, coveredTopics []string) error
	MarkShown(sessionID string, questionIDs []string, shownAt time.Time) error
}

// NewQuestionID produces identifiers for session questions. Injected so
// tests can make them deterministic.
type NewQuestionID func() string

// Delivery is the outcome of a next-questions call.
type Delivery struct {
	Questions         []models.SessionQuestion
	Remaining         int
	NewBatchGenerated bool
}

// SessionManager serializes all mutation of a question-batch session and
// implements the keep-going pagination contract: no question is ever
// delivered twice within a session, and an exhausted pool transparently
// triggers generation of the next batch.
type SessionManager struct {
	store     SessionStore
	generator Generator
	batchSize int
	newID     NewQuestionID
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionManager creates a session manager. batchSize is how many
// questions each generation round requests.
func NewSessionManager(store SessionStore, generator Generator, batchSize int, newID NewQuestionID) *SessionManager {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SessionManager{
		store:     store,
		generator: generator,
		batchSize: batchSize,
		newID:     newID,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing one session's mutations. Lock
// entries are never removed; sessions are few per process lifetime and
// the map is bounded by them.
func (m *SessionManager) lockFor(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	return l
}

// CreateSession builds a new session for the given source content and
// synchronously generates its first batch. Nothing is persisted if the
// generator fails, so the caller can simply retry.
func (m *SessionManager) CreateSession(ctx context.Context, session *models.StudySession) (*models.StudySession, error) {
	if len(session.ContentIDs) == 0 {
		return nil, ErrNoContent
	}

	now := m.now()
	session.CreatedAt = now
	session.UpdatedAt = now

	batch, topics, err := m.generateBatch(ctx, session, 1)
	if err != nil {
		return nil, err
	}

	session.Batches = []models.QuestionBatch{*batch}
	session.TotalGenerated = len(batch.Questions)
	session.CoveredTopics = topics

	if err := m.store.CreateSession(session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return session, nil
}

// NextQuestions delivers up to limit unseen questions from the session,
// generating a fresh batch first when the pool is exhausted. Calls for the
// same session are serialized so two concurrent callers can never be
// handed the same question.
func (m *SessionManager) NextQuestions(ctx context.Context, ownerID, sessionID string, limit int) (*Delivery, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.store.GetSession(ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	delivery := &Delivery{}

	taken := takeUnseen(session, limit)
	if len(taken) == 0 {
		// Pool exhausted: ask the generator for the next batch. On
		// failure the session is untouched and a retry is safe.
		number := session.LastBatchNumber() + 1
		batch, topics, err := m.generateBatch(ctx, session, number)
		if err != nil {
			return nil, err
		}

		if err := m.store.AppendBatch(session, *batch, topics); err != nil {
			return nil, fmt.Errorf("persist batch %d: %w", number, err)
		}
		session.Batches = append(session.Batches, *batch)
		session.TotalGenerated += len(batch.Questions)
		session.CoveredTopics = topics
		delivery.NewBatchGenerated = true

		taken = takeUnseen(session, limit)
	}

	ids := make([]string, len(taken))
	for i := range taken {
		ids[i] = taken[i].ID
	}
	shownAt := m.now()
	if err := m.store.MarkShown(sessionID, ids, shownAt); err != nil {
		return nil, fmt.Errorf("mark questions shown: %w", err)
	}

	delivery.Questions = taken
	delivery.Remaining = session.UnseenCount()

	return delivery, nil
}

// generateBatch runs the generator and converts its output into a numbered
// batch of unseen questions. The returned topics slice is the session's
// covered-topics list extended with a prefix of the new batch.
func (m *SessionManager) generateBatch(ctx context.Context, session *models.StudySession, number int) (*models.QuestionBatch, []string, error) {
	result, err := m.generator.GenerateBatch(ctx, BatchRequest{
		OwnerID:        session.OwnerID,
		ContextSummary: session.ContextSummary,
		PriorTopics:    session.CoveredTopics,
		BatchNumber:    number,
		Count:          m.batchSize,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(result.Questions) == 0 {
		return nil, nil, ErrEmptyBatch
	}

	batch := &models.QuestionBatch{
		Number:    number,
		CreatedAt: m.now(),
		Questions: make([]models.SessionQuestion, len(result.Questions)),
	}
	for i, q := range result.Questions {
		batch.Questions[i] = models.SessionQuestion{
			ID:          m.newID(),
			SessionID:   session.ID,
			BatchNumber: number,
			Position:    i,
			Topic:       q.Topic,
			Payload:     q.Payload,
			Status:      models.QuestionUnseen,
		}
	}

	topics := appendTopicSeed(session.CoveredTopics, batch.Questions)

	return batch, topics, nil
}

// takeUnseen marks up to limit unseen questions shown, in stored order,
// and returns them. The transition is irrevocable.
func takeUnseen(session *models.StudySession, limit int) []models.SessionQuestion {
	var taken []models.SessionQuestion
	for i := range session.Batches {
		for j := range session.Batches[i].Questions {
			if len(taken) == limit {
				return taken
			}
			q := &session.Batches[i].Questions[j]
			if q.Status != models.QuestionUnseen {
				continue
			}
			q.Status = models.QuestionShown
			taken = append(taken, *q)
		}
	}
	return taken
}

// appendTopicSeed extends the covered-topics list with topics from the
// front of a new batch, skipping duplicates.
func appendTopicSeed(existing []string, questions []models.SessionQuestion) []string {
	seen := make(map[string]bool, len(existing))
	topics := make([]string, len(existing))
	copy(topics, existing)
	for _, t := range existing {
		seen[t] = true
	}

	for i, q := range questions {
		if i == topicSeedPrefix {
			break
		}
		if q.Topic == "" || seen[q.Topic] {
			continue
		}
		seen[q.Topic] = true
		topics = append(topics, q.Topic)
	}
	return topics
}
