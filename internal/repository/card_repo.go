package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studydeck/internal/database"
	"studydeck/internal/models"
)

// ErrConflict is returned when a review update lost a race: the card changed
// since it was read, and the caller must re-read before retrying.
var ErrConflict = errors.New("card was modified concurrently")

// CardRepository handles database operations for spaced-repetition cards
type CardRepository struct {
	db *database.DB
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *database.DB) *CardRepository {
	return &CardRepository{db: db}
}

// CreateCard inserts a new review card
func (r *CardRepository) CreateCard(card *models.ReviewCard) error {
	query := `
		INSERT INTO review_cards (id, owner_id, front, back, topic, repetitions,
			ease_factor, interval_days, next_review_at, last_reviewed_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		card.ID, card.OwnerID, card.Front, card.Back, card.Topic,
		card.Repetitions, card.EaseFactor, card.IntervalDays,
		card.NextReviewAt, card.LastReviewedAt, card.Version, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// CreateCards inserts a set of cards in one transaction. Used when a
// generated flashcard set is saved for review.
func (r *CardRepository) CreateCards(cards []*models.ReviewCard) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO review_cards (id, owner_id, front, back, topic, repetitions,
			ease_factor, interval_days, next_review_at, last_reviewed_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, card := range cards {
		_, err := tx.Exec(query,
			card.ID, card.OwnerID, card.Front, card.Back, card.Topic,
			card.Repetitions, card.EaseFactor, card.IntervalDays,
			card.NextReviewAt, card.LastReviewedAt, card.Version, card.CreatedAt, card.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create card %s: %w", card.ID, err)
		}
	}

	return tx.Commit()
}

// GetCard retrieves a card by ID, scoped to its owner
func (r *CardRepository) GetCard(ownerID, cardID string) (*models.ReviewCard, error) {
	query := `
		SELECT id, owner_id, front, back, topic, repetitions, ease_factor,
		       interval_days, next_review_at, last_reviewed_at, version, created_at, updated_at
		FROM review_cards
		WHERE id = ? AND owner_id = ?
	`

	card := &models.ReviewCard{}
	var lastReviewedAt sql.NullTime

	err := r.db.QueryRow(query, cardID, ownerID).Scan(
		&card.ID,
		&card.OwnerID,
		&card.Front,
		&card.Back,
		&card.Topic,
		&card.Repetitions,
		&card.EaseFactor,
		&card.IntervalDays,
		&card.NextReviewAt,
		&lastReviewedAt,
		&card.Version,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	if lastReviewedAt.Valid {
		card.LastReviewedAt = &lastReviewedAt.Time
	}

	return card, nil
}

// ListDue retrieves the owner's cards whose next review is at or before now,
// soonest first
func (r *CardRepository) ListDue(ownerID string, now time.Time) ([]models.ReviewCard, error) {
	query := `
		SELECT id, owner_id, front, back, topic, repetitions, ease_factor,
		       interval_days, next_review_at, last_reviewed_at, version, created_at, updated_at
		FROM review_cards
		WHERE owner_id = ? AND next_review_at <= ?
		ORDER BY next_review_at ASC
	`

	rows, err := r.db.Query(query, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due cards: %w", err)
	}
	defer rows.Close()

	var cards []models.ReviewCard
	for rows.Next() {
		var card models.ReviewCard
		var lastReviewedAt sql.NullTime

		err := rows.Scan(
			&card.ID,
			&card.OwnerID,
			&card.Front,
			&card.Back,
			&card.Topic,
			&card.Repetitions,
			&card.EaseFactor,
			&card.IntervalDays,
			&card.NextReviewAt,
			&lastReviewedAt,
			&card.Version,
			&card.CreatedAt,
			&card.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if lastReviewedAt.Valid {
			card.LastReviewedAt = &lastReviewedAt.Time
		}

		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// UpdateReviewState persists the scheduling fields after a review. The write
// only lands against the version the card was read at; a stale write returns
// ErrConflict instead of overwriting a concurrent review.
func (r *CardRepository) UpdateReviewState(card *models.ReviewCard) error {
	query := `
		UPDATE review_cards
		SET repetitions = ?, ease_factor = ?, interval_days = ?,
		    next_review_at = ?, last_reviewed_at = ?, version = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?
	`

	result, err := r.db.Exec(query,
		card.Repetitions, card.EaseFactor, card.IntervalDays,
		card.NextReviewAt, card.LastReviewedAt, card.Version+1, card.UpdatedAt,
		card.ID, card.OwnerID, card.Version)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing card from a lost race
		var exists int
		err := r.db.QueryRow("SELECT COUNT(*) FROM review_cards WHERE id = ? AND owner_id = ?",
			card.ID, card.OwnerID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check update result: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	card.Version++
	return nil
}
