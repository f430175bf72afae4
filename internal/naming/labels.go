// Package naming generates human-friendly labels for study sessions so
// users can tell their sessions apart without reading UUIDs.
package naming

import (
	"crypto/rand"
	"math/big"
)

var adjectives = []string{
	"steady", "bright", "curious", "focused", "keen", "sharp", "quick", "calm",
	"patient", "diligent", "eager", "alert", "clever", "bold", "fresh", "quiet",
	"lively", "early", "late", "deep", "light", "swift", "mindful", "thorough",
}

var nouns = []string{
	"review", "sprint", "drill", "round", "streak", "summit", "chapter", "quiz",
	"lesson", "recall", "refresh", "marathon", "warmup", "deepdive", "primer", "recap",
	"workout", "circuit", "lap", "ascent", "expedition", "voyage", "trek", "session",
}

// SessionLabel generates a random label in the format "adjective-noun"
func SessionLabel() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return adjective + "-" + noun, nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
