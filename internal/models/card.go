package models

import "time"

// ReviewCard is a single flashcard under spaced repetition. The scheduling
// fields (Repetitions, EaseFactor, IntervalDays, NextReviewAt) are mutated
// only through the scheduler's review operation.
type ReviewCard struct {
	ID             string
	OwnerID        string
	Front          string
	Back           string
	Topic          string
	Repetitions    int
	EaseFactor     float64
	IntervalDays   int
	NextReviewAt   time.Time
	LastReviewedAt *time.Time
	// Version guards review updates: a write only lands against the
	// version it was read at, so concurrent reviews cannot silently
	// overwrite each other.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDue reports whether the card is due for review at the given time.
func (c *ReviewCard) IsDue(now time.Time) bool {
	return !c.NextReviewAt.After(now)
}
