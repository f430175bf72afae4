package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"studydeck/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Documents  []DocumentBackup  `json:"documents"`
	Cards      []CardBackup      `json:"cards"`
	Sessions   []SessionBackup   `json:"sessions"`
	Questions  []QuestionBackup  `json:"questions"`
}

// DocumentBackup represents a document record for backup
type DocumentBackup struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	ExtractedText string    `json:"extracted_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// CardBackup represents a review card record for backup
type CardBackup struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Topic          string     `json:"topic"`
	Repetitions    int        `json:"repetitions"`
	EaseFactor     float64    `json:"ease_factor"`
	IntervalDays   int        `json:"interval_days"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SessionBackup represents a study session with its batches for backup
type SessionBackup struct {
	ID             string        `json:"id"`
	OwnerID        string        `json:"owner_id"`
	Label          string        `json:"label"`
	ContentKey     string        `json:"content_key"`
	ContentIDs     string        `json:"content_ids"`
	ContextSummary string        `json:"context_summary"`
	CoveredTopics  string        `json:"covered_topics"`
	TotalGenerated int           `json:"total_generated"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Batches        []BatchBackup `json:"batches"`
}

// BatchBackup represents a question batch for backup
type BatchBackup struct {
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionBackup represents a session question for backup
type QuestionBackup struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	BatchNumber int        `json:"batch_number"`
	Position    int        `json:"position"`
	Topic       string     `json:"topic"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	ShownAt     *time.Time `json:"shown_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
	}

	if err := s.exportDocuments(backup); err != nil {
		return fmt.Errorf("failed to export documents: %w", err)
	}
	if err := s.exportCards(backup); err != nil {
		return fmt.Errorf("failed to export cards: %w", err)
	}
	if err := s.exportSessions(backup); err != nil {
		return fmt.Errorf("failed to export sessions: %w", err)
	}
	if err := s.exportQuestions(backup); err != nil {
		return fmt.Errorf("failed to export questions: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Database exported successfully to %s", outputPath)
	log.Printf("Exported: %d documents, %d cards, %d sessions, %d questions",
		len(backup.Documents), len(backup.Cards), len(backup.Sessions), len(backup.Questions))

	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Import in order of dependencies
	if err := s.importDocuments(backup.Documents); err != nil {
		return fmt.Errorf("failed to import documents: %w", err)
	}
	if err := s.importCards(backup.Cards); err != nil {
		return fmt.Errorf("failed to import cards: %w", err)
	}
	if err := s.importSessions(backup.Sessions); err != nil {
		return fmt.Errorf("failed to import sessions: %w", err)
	}
	if err := s.importQuestions(backup.Questions); err != nil {
		return fmt.Errorf("failed to import questions: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

// ClearAll removes all data. Used by the import tool's -clear flag.
func (s *BackupService) ClearAll() error {
	// Children first so foreign keys hold on engines without cascades
	tables := []string{"session_questions", "question_batches", "study_sessions", "review_cards", "documents"}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *BackupService) exportDocuments(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, owner_id, title, extracted_text, created_at FROM documents ORDER BY created_at")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var doc DocumentBackup
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.ExtractedText, &doc.CreatedAt); err != nil {
			return err
		}
		backup.Documents = append(backup.Documents, doc)
	}
	return rows.Err()
}

func (s *BackupService) exportCards(backup *BackupData) error {
	rows, err := s.db.Query(`
		SELECT id, owner_id, front, back, topic, repetitions, ease_factor,
		       interval_days, next_review_at, last_reviewed_at, version, created_at, updated_at
		FROM review_cards ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var card CardBackup
		var lastReviewedAt sql.NullTime
		err := rows.Scan(&card.ID, &card.OwnerID, &card.Front, &card.Back, &card.Topic,
			&card.Repetitions, &card.EaseFactor, &card.IntervalDays,
			&card.NextReviewAt, &lastReviewedAt, &card.Version, &card.CreatedAt, &card.UpdatedAt)
		if err != nil {
			return err
		}
		if lastReviewedAt.Valid {
			card.LastReviewedAt = &lastReviewedAt.Time
		}
		backup.Cards = append(backup.Cards, card)
	}
	return rows.Err()
}

func (s *BackupService) exportSessions(backup *BackupData) error {
	rows, err := s.db.Query(`
		SELECT id, owner_id, label, content_key, content_ids, context_summary,
		       covered_topics, total_generated, created_at, updated_at
		FROM study_sessions ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var sessions []SessionBackup
	for rows.Next() {
		var session SessionBackup
		err := rows.Scan(&session.ID, &session.OwnerID, &session.Label, &session.ContentKey,
			&session.ContentIDs, &session.ContextSummary, &session.CoveredTopics,
			&session.TotalGenerated, &session.CreatedAt, &session.UpdatedAt)
		if err != nil {
			return err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range sessions {
		if err := s.exportBatches(&sessions[i]); err != nil {
			return err
		}
	}

	backup.Sessions = sessions
	return nil
}

func (s *BackupService) exportBatches(session *SessionBackup) error {
	rows, err := s.db.Query(
		"SELECT batch_number, created_at FROM question_batches WHERE session_id = ? ORDER BY batch_number",
		session.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var batch BatchBackup
		if err := rows.Scan(&batch.Number, &batch.CreatedAt); err != nil {
			return err
		}
		session.Batches = append(session.Batches, batch)
	}
	return rows.Err()
}

func (s *BackupService) exportQuestions(backup *BackupData) error {
	rows, err := s.db.Query(`
		SELECT id, session_id, batch_number, position, topic, payload, status, shown_at
		FROM session_questions ORDER BY session_id, batch_number, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q QuestionBackup
		var shownAt sql.NullTime
		err := rows.Scan(&q.ID, &q.SessionID, &q.BatchNumber, &q.Position,
			&q.Topic, &q.Payload, &q.Status, &shownAt)
		if err != nil {
			return err
		}
		if shownAt.Valid {
			q.ShownAt = &shownAt.Time
		}
		backup.Questions = append(backup.Questions, q)
	}
	return rows.Err()
}

func (s *BackupService) importDocuments(docs []DocumentBackup) error {
	for _, doc := range docs {
		_, err := s.db.Exec(`
			INSERT INTO documents (id, owner_id, title, extracted_text, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			doc.ID, doc.OwnerID, doc.Title, doc.ExtractedText, doc.CreatedAt)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importCards(cards []CardBackup) error {
	for _, card := range cards {
		_, err := s.db.Exec(`
			INSERT INTO review_cards (id, owner_id, front, back, topic, repetitions,
				ease_factor, interval_days, next_review_at, last_reviewed_at, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			card.ID, card.OwnerID, card.Front, card.Back, card.Topic, card.Repetitions,
			card.EaseFactor, card.IntervalDays, card.NextReviewAt, card.LastReviewedAt,
			card.Version, card.CreatedAt, card.UpdatedAt)
		if err != nil {
			return fmt.Errorf("card %s: %w", card.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importSessions(sessions []SessionBackup) error {
	for _, session := range sessions {
		_, err := s.db.Exec(`
			INSERT INTO study_sessions (id, owner_id, label, content_key, content_ids,
				context_summary, covered_topics, total_generated, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.OwnerID, session.Label, session.ContentKey, session.ContentIDs,
			session.ContextSummary, session.CoveredTopics, session.TotalGenerated,
			session.CreatedAt, session.UpdatedAt)
		if err != nil {
			return fmt.Errorf("session %s: %w", session.ID, err)
		}

		for _, batch := range session.Batches {
			_, err := s.db.Exec(
				"INSERT INTO question_batches (session_id, batch_number, created_at) VALUES (?, ?, ?)",
				session.ID, batch.Number, batch.CreatedAt)
			if err != nil {
				return fmt.Errorf("session %s batch %d: %w", session.ID, batch.Number, err)
			}
		}
	}
	return nil
}

func (s *BackupService) importQuestions(questions []QuestionBackup) error {
	for _, q := range questions {
		_, err := s.db.Exec(`
			INSERT INTO session_questions (id, session_id, batch_number, position, topic, payload, status, shown_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.SessionID, q.BatchNumber, q.Position, q.Topic, q.Payload, q.Status, q.ShownAt)
		if err != nil {
			return fmt.Errorf("question %s: %w", q.ID, err)
		}
	}
	return nil
}
