package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"studydeck/internal/database"
	"studydeck/internal/models"
)

// ErrNotFound is returned when a row does not exist or belongs to a
// different owner. Callers cannot tell the two cases apart.
var ErrNotFound = errors.New("not found")

// DocumentRepository handles database operations for uploaded documents
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateDocument inserts a new document
func (r *DocumentRepository) CreateDocument(doc *models.Document) error {
	query := `
		INSERT INTO documents (id, owner_id, title, extracted_text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, doc.ID, doc.OwnerID, doc.Title, doc.ExtractedText, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID, scoped to its owner
func (r *DocumentRepository) GetDocument(ownerID, docID string) (*models.Document, error) {
	query := `
		SELECT id, owner_id, title, extracted_text, created_at
		FROM documents
		WHERE id = ? AND owner_id = ?
	`

	doc := &models.Document{}
	err := r.db.QueryRow(query, docID, ownerID).Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.ExtractedText,
		&doc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// ListDocuments retrieves all documents for an owner, newest first
func (r *DocumentRepository) ListDocuments(ownerID string) ([]models.Document, error) {
	query := `
		SELECT id, owner_id, title, extracted_text, created_at
		FROM documents
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&doc.Title,
			&doc.ExtractedText,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// GetExtractedText concatenates the extracted text of the given documents,
// in the order requested. Every document must exist and belong to the owner.
func (r *DocumentRepository) GetExtractedText(ownerID string, docIDs []string) (string, error) {
	var parts []string
	for _, id := range docIDs {
		doc, err := r.GetDocument(ownerID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return "", fmt.Errorf("document %s: %w", id, ErrNotFound)
			}
			return "", err
		}
		parts = append(parts, doc.ExtractedText)
	}
	return strings.Join(parts, "\n\n"), nil
}
