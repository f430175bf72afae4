package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"studydeck/internal/coordinator"
	"studydeck/internal/database"
	"studydeck/internal/models"
)

// StudySessionRepository persists question-batch study sessions. It
// implements coordinator.SessionStore; every mutation runs in a single
// transaction so a failure leaves the session untouched.
type StudySessionRepository struct {
	db *database.DB
}

// NewStudySessionRepository creates a new study session repository
func NewStudySessionRepository(db *database.DB) *StudySessionRepository {
	return &StudySessionRepository{db: db}
}

// CreateSession inserts a session together with its first batch and questions
func (r *StudySessionRepository) CreateSession(session *models.StudySession) error {
	contentIDs, err := json.Marshal(session.ContentIDs)
	if err != nil {
		return fmt.Errorf("failed to encode content ids: %w", err)
	}
	coveredTopics, err := json.Marshal(session.CoveredTopics)
	if err != nil {
		return fmt.Errorf("failed to encode covered topics: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO study_sessions (id, owner_id, label, content_key, content_ids,
			context_summary, covered_topics, total_generated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query,
		session.ID, session.OwnerID, session.Label, session.ContentKey,
		string(contentIDs), session.ContextSummary, string(coveredTopics),
		session.TotalGenerated, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	for _, batch := range session.Batches {
		if err := insertBatch(tx, session.ID, batch); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSession loads a session with all its batches and questions, scoped to
// its owner. Questions come back in batch order then position order, the
// order deliveries walk them in.
func (r *StudySessionRepository) GetSession(ownerID, sessionID string) (*models.StudySession, error) {
	query := `
		SELECT id, owner_id, label, content_key, content_ids, context_summary,
		       covered_topics, total_generated, created_at, updated_at
		FROM study_sessions
		WHERE id = ? AND owner_id = ?
	`

	session := &models.StudySession{}
	var contentIDs, coveredTopics string

	err := r.db.QueryRow(query, sessionID, ownerID).Scan(
		&session.ID,
		&session.OwnerID,
		&session.Label,
		&session.ContentKey,
		&contentIDs,
		&session.ContextSummary,
		&coveredTopics,
		&session.TotalGenerated,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, coordinator.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(contentIDs), &session.ContentIDs); err != nil {
		return nil, fmt.Errorf("failed to decode content ids: %w", err)
	}
	if err := json.Unmarshal([]byte(coveredTopics), &session.CoveredTopics); err != nil {
		return nil, fmt.Errorf("failed to decode covered topics: %w", err)
	}

	if err := r.loadBatches(session); err != nil {
		return nil, err
	}

	return session, nil
}

// AppendBatch adds a generated batch to the session and advances its
// covered-topics list and totals
func (r *StudySessionRepository) AppendBatch(session *models.StudySession, batch models.QuestionBatch, coveredTopics []string) error {
	topics, err := json.Marshal(coveredTopics)
	if err != nil {
		return fmt.Errorf("failed to encode covered topics: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertBatch(tx, session.ID, batch); err != nil {
		return err
	}

	query := `
		UPDATE study_sessions
		SET covered_topics = ?, total_generated = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`
	result, err := tx.Exec(query,
		string(topics), session.TotalGenerated+len(batch.Questions), batch.CreatedAt,
		session.ID, session.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return coordinator.ErrSessionNotFound
	}

	return tx.Commit()
}

// MarkShown transitions the given questions to shown. The transition is
// one-way; a shown question never goes back.
func (r *StudySessionRepository) MarkShown(sessionID string, questionIDs []string, shownAt time.Time) error {
	if len(questionIDs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE session_questions
		SET status = 'shown', shown_at = ?
		WHERE id = ? AND session_id = ?
	`
	for _, id := range questionIDs {
		if _, err := tx.Exec(query, shownAt, id, sessionID); err != nil {
			return fmt.Errorf("failed to mark question %s shown: %w", id, err)
		}
	}

	return tx.Commit()
}

// insertBatch writes one batch row and its questions inside tx
func insertBatch(tx *database.Tx, sessionID string, batch models.QuestionBatch) error {
	batchQuery := `
		INSERT INTO question_batches (session_id, batch_number, created_at)
		VALUES (?, ?, ?)
	`
	if _, err := tx.Exec(batchQuery, sessionID, batch.Number, batch.CreatedAt); err != nil {
		return fmt.Errorf("failed to create batch %d: %w", batch.Number, err)
	}

	questionQuery := `
		INSERT INTO session_questions (id, session_id, batch_number, position, topic, payload, status, shown_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, q := range batch.Questions {
		_, err := tx.Exec(questionQuery,
			q.ID, sessionID, batch.Number, q.Position, q.Topic,
			string(q.Payload), string(q.Status), q.ShownAt)
		if err != nil {
			return fmt.Errorf("failed to create question %s: %w", q.ID, err)
		}
	}

	return nil
}

// loadBatches fills session.Batches from the batch and question tables
func (r *StudySessionRepository) loadBatches(session *models.StudySession) error {
	batchQuery := `
		SELECT batch_number, created_at
		FROM question_batches
		WHERE session_id = ?
		ORDER BY batch_number ASC
	`

	rows, err := r.db.Query(batchQuery, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load batches: %w", err)
	}
	defer rows.Close()

	batchIndex := make(map[int]int)
	for rows.Next() {
		var batch models.QuestionBatch
		if err := rows.Scan(&batch.Number, &batch.CreatedAt); err != nil {
			return err
		}
		batchIndex[batch.Number] = len(session.Batches)
		session.Batches = append(session.Batches, batch)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	questionQuery := `
		SELECT id, batch_number, position, topic, payload, status, shown_at
		FROM session_questions
		WHERE session_id = ?
		ORDER BY batch_number ASC, position ASC
	`

	qrows, err := r.db.Query(questionQuery, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		var q models.SessionQuestion
		var payload, status string
		var shownAt sql.NullTime

		err := qrows.Scan(&q.ID, &q.BatchNumber, &q.Position, &q.Topic, &payload, &status, &shownAt)
		if err != nil {
			return err
		}

		q.SessionID = session.ID
		q.Payload = json.RawMessage(payload)
		q.Status = models.QuestionStatus(status)
		if shownAt.Valid {
			q.ShownAt = &shownAt.Time
		}

		idx, ok := batchIndex[q.BatchNumber]
		if !ok {
			return fmt.Errorf("question %s references unknown batch %d", q.ID, q.BatchNumber)
		}
		session.Batches[idx].Questions = append(session.Batches[idx].Questions, q)
	}

	return qrows.Err()
}
