package models

import (
	"encoding/json"
	"time"
)

// QuestionStatus tracks delivery state of a generated question within a
// session. The only transition is unseen -> shown, and it is irrevocable.
type QuestionStatus string

const (
	QuestionUnseen QuestionStatus = "unseen"
	QuestionShown  QuestionStatus = "shown"
)

// SessionQuestion is one AI-generated practice question inside a batch.
// The payload is opaque to the core; only ID, Topic and Status are
// interpreted here.
type SessionQuestion struct {
	ID          string
	SessionID   string
	BatchNumber int
	Position    int
	Topic       string
	Payload     json.RawMessage
	Status      QuestionStatus
	ShownAt     *time.Time
}

// QuestionBatch is one generation round appended to a session. Batches are
// numbered consecutively starting at 1.
type QuestionBatch struct {
	Number    int
	CreatedAt time.Time
	Questions []SessionQuestion
}

// StudySession is a paginated pool of generated practice questions tied to a
// set of source documents. It lives until externally deleted and cycles
// between having unseen questions and requesting a fresh batch.
type StudySession struct {
	ID             string
	OwnerID        string
	Label          string
	ContentKey     string
	ContentIDs     []string
	ContextSummary string
	CoveredTopics  []string
	TotalGenerated int
	Batches        []QuestionBatch
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UnseenCount returns the number of questions not yet delivered.
func (s *StudySession) UnseenCount() int {
	count := 0
	for i := range s.Batches {
		for j := range s.Batches[i].Questions {
			if s.Batches[i].Questions[j].Status == QuestionUnseen {
				count++
			}
		}
	}
	return count
}

// LastBatchNumber returns the highest batch number, or 0 for an empty session.
func (s *StudySession) LastBatchNumber() int {
	max := 0
	for i := range s.Batches {
		if s.Batches[i].Number > max {
			max = s.Batches[i].Number
		}
	}
	return max
}
