package scheduler

import (
	"math"
	"testing"
	"time"

	"studydeck/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCard() models.ReviewCard {
	return NewCard("card-1", "owner-1", testNow)
}

func TestReviewRejectsOutOfRangeQuality(t *testing.T) {
	card := newTestCard()

	for _, quality := range []int{-3, -1, 6, 10} {
		_, err := Review(card, quality, testNow)
		if err != ErrQualityOutOfRange {
			t.Errorf("Review(quality=%d) error = %v, want ErrQualityOutOfRange", quality, err)
		}
	}
}

func TestReviewFailureResetsStreak(t *testing.T) {
	tests := []struct {
		name string
		card models.ReviewCard
	}{
		{
			name: "new card",
			card: newTestCard(),
		},
		{
			name: "mature card",
			card: models.ReviewCard{Repetitions: 7, EaseFactor: 2.8, IntervalDays: 120},
		},
		{
			name: "card at ease floor",
			card: models.ReviewCard{Repetitions: 2, EaseFactor: 1.3, IntervalDays: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for quality := 0; quality < PassThreshold; quality++ {
				res, err := Review(tt.card, quality, testNow)
				if err != nil {
					t.Fatalf("Review(quality=%d) unexpected error: %v", quality, err)
				}
				if res.Repetitions != 0 {
					t.Errorf("Review(quality=%d) repetitions = %d, want 0", quality, res.Repetitions)
				}
				if res.IntervalDays != 1 {
					t.Errorf("Review(quality=%d) interval = %d, want 1", quality, res.IntervalDays)
				}
			}
		})
	}
}

func TestReviewIntervalProgression(t *testing.T) {
	card := newTestCard()

	// First success: interval 1.
	res, err := Review(card, 5, testNow)
	if err != nil {
		t.Fatalf("first review: %v", err)
	}
	if res.IntervalDays != 1 || res.Repetitions != 1 {
		t.Fatalf("first review: interval=%d repetitions=%d, want 1/1", res.IntervalDays, res.Repetitions)
	}
	Apply(&card, res, testNow)

	// Second success: interval 6.
	res, err = Review(card, 5, testNow)
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	if res.IntervalDays != 6 || res.Repetitions != 2 {
		t.Fatalf("second review: interval=%d repetitions=%d, want 6/2", res.IntervalDays, res.Repetitions)
	}
	Apply(&card, res, testNow)

	// Third success: round(6 * ease-after-second).
	easeAfterSecond := card.EaseFactor
	res, err = Review(card, 5, testNow)
	if err != nil {
		t.Fatalf("third review: %v", err)
	}
	want := int(math.Round(6 * easeAfterSecond))
	if res.IntervalDays != want {
		t.Errorf("third review: interval = %d, want %d", res.IntervalDays, want)
	}
	if res.Repetitions != 3 {
		t.Errorf("third review: repetitions = %d, want 3", res.Repetitions)
	}
}

func TestReviewEaseFactorNeverDropsBelowFloor(t *testing.T) {
	card := newTestCard()

	// A long run of the worst possible ratings must never push ease
	// below 1.3.
	for i := 0; i < 50; i++ {
		quality := i % (MaxQuality + 1)
		res, err := Review(card, quality, testNow)
		if err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
		if res.EaseFactor < MinEaseFactor {
			t.Fatalf("review %d (quality=%d): ease = %v, below floor %v", i, quality, res.EaseFactor, MinEaseFactor)
		}
		if res.IntervalDays < 1 {
			t.Fatalf("review %d (quality=%d): interval = %d, below 1", i, quality, res.IntervalDays)
		}
		Apply(&card, res, testNow)
	}

	// Hammer with zeros from a fresh card.
	card = newTestCard()
	for i := 0; i < 20; i++ {
		res, err := Review(card, 0, testNow)
		if err != nil {
			t.Fatalf("review %d: %v", i, err)
		}
		if res.EaseFactor < MinEaseFactor {
			t.Fatalf("review %d: ease = %v, below floor", i, res.EaseFactor)
		}
		Apply(&card, res, testNow)
	}
	if card.EaseFactor != MinEaseFactor {
		t.Errorf("ease after repeated failures = %v, want exactly %v", card.EaseFactor, MinEaseFactor)
	}
}

func TestReviewIsDeterministic(t *testing.T) {
	card := models.ReviewCard{Repetitions: 3, EaseFactor: 2.1, IntervalDays: 14}

	first, err := Review(card, 4, testNow)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := Review(card, 4, testNow)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("call %d: result %+v differs from first %+v", i, again, first)
		}
	}

	wantNext := testNow.AddDate(0, 0, first.IntervalDays)
	if !first.NextReviewAt.Equal(wantNext) {
		t.Errorf("NextReviewAt = %v, want now + %d days = %v", first.NextReviewAt, first.IntervalDays, wantNext)
	}
}

// TestReviewEndToEndScenario walks a card through the canonical sequence:
// two perfect reviews followed by a failure.
func TestReviewEndToEndScenario(t *testing.T) {
	card := newTestCard()
	if card.Repetitions != 0 || card.EaseFactor != 2.5 || card.IntervalDays != 1 {
		t.Fatalf("unexpected defaults: %+v", card)
	}

	res, err := Review(card, 5, testNow)
	if err != nil {
		t.Fatalf("review 1: %v", err)
	}
	assertState(t, "after quality 5", res, 1, 1, 2.6)
	if !res.NextReviewAt.Equal(testNow.AddDate(0, 0, 1)) {
		t.Errorf("review 1: NextReviewAt = %v, want now+1d", res.NextReviewAt)
	}
	Apply(&card, res, testNow)

	res, err = Review(card, 5, testNow)
	if err != nil {
		t.Fatalf("review 2: %v", err)
	}
	assertState(t, "after second quality 5", res, 2, 6, 2.7)
	Apply(&card, res, testNow)

	// Failure: streak resets, ease drops by 0.32.
	res, err = Review(card, 2, testNow)
	if err != nil {
		t.Fatalf("review 3: %v", err)
	}
	assertState(t, "after quality 2", res, 0, 1, 2.38)
}

func assertState(t *testing.T, label string, res Result, repetitions, interval int, ease float64) {
	t.Helper()
	if res.Repetitions != repetitions {
		t.Errorf("%s: repetitions = %d, want %d", label, res.Repetitions, repetitions)
	}
	if res.IntervalDays != interval {
		t.Errorf("%s: interval = %d, want %d", label, res.IntervalDays, interval)
	}
	if math.Abs(res.EaseFactor-ease) > 1e-9 {
		t.Errorf("%s: ease = %v, want %v", label, res.EaseFactor, ease)
	}
}

func TestDueFiltersByNextReviewAt(t *testing.T) {
	cards := []models.ReviewCard{
		{ID: "overdue", NextReviewAt: testNow.AddDate(0, 0, -3)},
		{ID: "due-now", NextReviewAt: testNow},
		{ID: "tomorrow", NextReviewAt: testNow.AddDate(0, 0, 1)},
		{ID: "next-week", NextReviewAt: testNow.AddDate(0, 0, 7)},
	}

	due := Due(cards, testNow)

	if len(due) != 2 {
		t.Fatalf("Due() returned %d cards, want 2", len(due))
	}
	got := map[string]bool{}
	for _, c := range due {
		got[c.ID] = true
	}
	if !got["overdue"] || !got["due-now"] {
		t.Errorf("Due() = %v, want overdue and due-now", got)
	}
}

func TestDueEmptyInput(t *testing.T) {
	if due := Due(nil, testNow); due != nil {
		t.Errorf("Due(nil) = %v, want nil", due)
	}
}
