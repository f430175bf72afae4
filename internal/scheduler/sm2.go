// Package scheduler implements the SM-2 spaced-repetition algorithm that
// decides when a flashcard should next be reviewed. All functions are pure:
// they never touch storage and take the current time as an argument, so the
// caller owns persistence and clock.
package scheduler

import (
	"errors"
	"math"
	"time"

	"studydeck/internal/models"
)

const (
	// InitialEaseFactor is the ease assigned to a brand new card.
	InitialEaseFactor = 2.5

	// MinEaseFactor is the hard floor for ease. Below this, intervals
	// would collapse and the card would be reviewed forever.
	MinEaseFactor = 1.3

	// InitialIntervalDays is the interval assigned to a brand new card.
	InitialIntervalDays = 1

	// PassThreshold is the lowest quality that counts as successful
	// recall. Quality below this resets the repetition streak.
	PassThreshold = 3

	// MinQuality and MaxQuality bound the recall rating scale.
	MinQuality = 0
	MaxQuality = 5

	// SecondIntervalDays is the interval after the second consecutive
	// successful review.
	SecondIntervalDays = 6
)

// ErrQualityOutOfRange is returned when a review quality is outside [0, 5].
// Out-of-range ratings are a caller error and are rejected, never clamped.
var ErrQualityOutOfRange = errors.New("review quality must be between 0 and 5")

// Result is the next scheduling state computed for a card. The caller is
// responsible for persisting it and stamping LastReviewedAt.
type Result struct {
	Repetitions  int
	EaseFactor   float64
	IntervalDays int
	NextReviewAt time.Time
}

// NewCard returns a ReviewCard with the scheduling defaults: due
// immediately, ease 2.5, one-day interval, no completed reviews.
func NewCard(id, ownerID string, now time.Time) models.ReviewCard {
	return models.ReviewCard{
		ID:           id,
		OwnerID:      ownerID,
		Repetitions:  0,
		EaseFactor:   InitialEaseFactor,
		IntervalDays: InitialIntervalDays,
		NextReviewAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Review computes the card's next scheduling state from a recall quality
// rating (0 = total blackout, 5 = perfect recall).
//
// Quality below 3 is a failed recall: the repetition streak resets and the
// card comes back after one day. On success the interval progresses
// 1 -> 6 -> round(interval * ease). The ease factor is updated on both
// branches with the standard SM-2 formula, floored at 1.3.
func Review(card models.ReviewCard, quality int, now time.Time) (Result, error) {
	if quality < MinQuality || quality > MaxQuality {
		return Result{}, ErrQualityOutOfRange
	}

	res := Result{
		Repetitions:  card.Repetitions,
		EaseFactor:   card.EaseFactor,
		IntervalDays: card.IntervalDays,
	}

	if quality < PassThreshold {
		// Failed recall: start over, see the card again tomorrow.
		res.Repetitions = 0
		res.IntervalDays = InitialIntervalDays
	} else {
		// The interval is chosen by the repetition count before this
		// success, using the ease factor the card came in with.
		switch card.Repetitions {
		case 0:
			res.IntervalDays = InitialIntervalDays
		case 1:
			res.IntervalDays = SecondIntervalDays
		default:
			res.IntervalDays = int(math.Round(float64(card.IntervalDays) * card.EaseFactor))
		}
		res.Repetitions = card.Repetitions + 1
	}

	// EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02)), floored at 1.3.
	// Applied on both branches: a failed review still makes the card harder.
	q := float64(quality)
	ease := card.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}
	res.EaseFactor = ease

	res.NextReviewAt = now.AddDate(0, 0, res.IntervalDays)

	return res, nil
}

// Apply copies a review result onto a card and stamps the review time.
func Apply(card *models.ReviewCard, res Result, now time.Time) {
	card.Repetitions = res.Repetitions
	card.EaseFactor = res.EaseFactor
	card.IntervalDays = res.IntervalDays
	card.NextReviewAt = res.NextReviewAt
	reviewedAt := now
	card.LastReviewedAt = &reviewedAt
	card.UpdatedAt = now
}

// Due filters the cards whose next review time has arrived. Order is
// unspecified; sorting and limiting are the caller's concern.
func Due(cards []models.ReviewCard, now time.Time) []models.ReviewCard {
	var due []models.ReviewCard
	for i := range cards {
		if cards[i].IsDue(now) {
			due = append(due, cards[i])
		}
	}
	return due
}
