package generation

import (
	"fmt"
	"strings"
)

const questionSystemPrompt = `You are a study assistant creating practice questions from a student's own material.

Rules:
- Every question must be answerable from the provided material alone.
- Write clear, self-contained multiple-choice questions with exactly 4 options and exactly one correct answer.
- Distractors should reflect plausible misunderstandings of the material, not random values.
- Give each question a short topic label naming the concept it tests.
- Do not repeat or trivially rephrase any topic from the "already covered" list.
- Vary the topics across the batch.`

const summarySystemPrompt = `You are a study assistant summarizing a student's material.

Rules:
- Summarize only what the material says. Do not add outside facts.
- Keep the summary concise and the key points atomic, one fact each.`

const flashcardSystemPrompt = `You are a study assistant creating flashcards from a student's material.

Rules:
- Each card tests one fact or concept from the material.
- Fronts are short prompts or terms; backs are concise, complete answers.
- Cover the material broadly rather than repeating one concept.
- Give each card a short topic label.`

// buildQuestionMessage assembles the user message for a batch request.
func buildQuestionMessage(contextSummary string, priorTopics []string, count, maxPriorTopics int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate %d practice questions from the following material.\n\n", count)
	b.WriteString("Material:\n")
	b.WriteString(contextSummary)
	b.WriteString("\n\nAlready covered topics (avoid these):\n")
	b.WriteString(formatPriorTopics(priorTopics, maxPriorTopics))

	return b.String()
}

// buildSummaryMessage assembles the user message for a summary request.
func buildSummaryMessage(text string) string {
	return "Summarize the following material.\n\nMaterial:\n" + text
}

// buildFlashcardMessage assembles the user message for flashcard generation.
func buildFlashcardMessage(text string, count int) string {
	return fmt.Sprintf("Create up to %d flashcards from the following material.\n\nMaterial:\n%s", count, text)
}

// formatPriorTopics lists the most recent topics for the prompt, capped at
// max so the steering context stays bounded. Returns "None" when empty.
func formatPriorTopics(topics []string, max int) string {
	if len(topics) == 0 {
		return "None"
	}

	if max > 0 && len(topics) > max {
		topics = topics[len(topics)-max:]
	}

	var b strings.Builder
	for i, topic := range topics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, topic)
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate caps text at max characters, cutting at a space where possible.
func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return cut
}
