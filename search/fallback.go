package search

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// The extractive fallback answers from the retrieved snippets alone, so a
// provider outage never leaves the user without a grounded response.

const conversationFinish = "What would you like to ask next?"

var continuationPrompts = []string{
	"what would you like to ask next?",
	"what should i help you with next?",
	"do you want me to explain any part in more detail?",
}

var (
	sentenceSplit  = regexp.MustCompile(`[\n\r]+|(?:[.!?])\s+`)
	termPattern    = regexp.MustCompile(`\b(?:what is|define|explain)\s+([a-z0-9+\- ]{2,40})\??`)
	followUpTokens = []string{"tell me more", "more details", "elaborate", "explain more", "go deeper", "continue"}
	summaryTokens  = []string{"document about", "summar", "overview", "tell me about"}
)

// EnsureConversationFinish appends a follow-up question to an answer that
// doesn't already end with one. Empty answers stay empty.
func EnsureConversationFinish(answer string) string {
	text := strings.TrimSpace(answer)
	if text == "" {
		return text
	}

	lower := strings.ToLower(text)
	for _, prompt := range continuationPrompts {
		if strings.Contains(lower, prompt) {
			return text
		}
	}
	return text + "\n\n" + conversationFinish
}

// GenerateFallbackAnswer builds an extractive answer from the context
// snippets when no language model is available. The shape of the answer
// follows the question: definition lookups quote matching sentences,
// summary requests bullet the main points, follow-ups continue the prior
// topic.
func GenerateFallbackAnswer(question string, contextSnippets, conversationContext []string) string {
	sentences := extractSentences(contextSnippets)
	q := strings.ToLower(strings.TrimSpace(question))

	if len(sentences) == 0 {
		return EnsureConversationFinish(
			"I found the document, but I could not extract enough clean text to answer confidently.")
	}

	if term := extractTerm(q); term != "" {
		return EnsureConversationFinish(termAnswer(term, sentences))
	}

	if containsAny(q, summaryTokens) {
		hint := ""
		joined := strings.ToLower(strings.Join(sentences, " "))
		if containsAny(joined, []string{"work experience", "technical skills", "profile summary", "resume"}) {
			hint = "This document looks like a resume/profile.\n"
		}
		answer := hint + "Main points from your document:\n" + strings.Join(buildBullets(sentences, 5), "\n")
		return EnsureConversationFinish(answer)
	}

	if containsAny(q, followUpTokens) {
		lead := "Here are more details from the document:\n"
		if topic := topicFromContext(conversationContext); topic != "" {
			lead = fmt.Sprintf("Continuing from your previous question about %q, here are more details:\n", topic)
		}
		return EnsureConversationFinish(lead + strings.Join(buildBullets(sentences, 5), "\n"))
	}

	answer := "Based on the document, this is the most relevant information:\n" +
		strings.Join(buildBullets(sentences, 4), "\n")
	return EnsureConversationFinish(answer)
}

func termAnswer(term string, sentences []string) string {
	var words []string
	for _, w := range strings.Fields(term) {
		if len(w) >= 2 {
			words = append(words, w)
		}
	}

	var matches []string
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, word := range words {
			if strings.Contains(lower, word) {
				matches = append(matches, sentence)
				break
			}
		}
	}

	if len(matches) > 0 {
		return "From your document, here is what I found:\n" + strings.Join(buildBullets(matches, 3), "\n")
	}
	return fmt.Sprintf("Your document mentions '%s', but it does not clearly define it. "+
		"I can still give a general explanation if you want.", term)
}

// extractSentences splits the snippets into deduplicated sentences with
// enough alphabetic substance to quote.
func extractSentences(snippets []string) []string {
	var sentences []string
	seen := make(map[string]bool)

	for _, snippet := range snippets {
		for _, part := range sentenceSplit.Split(snippet, -1) {
			line := normalizeLine(part)
			if len(line) < 20 || alphaCount(line) < 12 {
				continue
			}
			key := strings.ToLower(line)
			if seen[key] {
				continue
			}
			seen[key] = true
			sentences = append(sentences, line)
		}
	}
	return sentences
}

func normalizeLine(text string) string {
	line := strings.ReplaceAll(text, " ", " ")
	line = strings.ReplaceAll(line, "​", " ")
	line = camelBoundary.ReplaceAllString(line, "$1 $2")
	line = whitespace.ReplaceAllString(line, " ")
	return strings.Trim(line, " -\t\n\r")
}

func alphaCount(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}

func buildBullets(sentences []string, limit int) []string {
	bullets := make([]string, 0, limit)
	for _, sentence := range sentences {
		if len(bullets) >= limit {
			break
		}
		runes := []rune(sentence)
		if len(runes) > 220 {
			runes = runes[:220]
		}
		trimmed := strings.TrimRight(string(runes), " ,;:")
		bullets = append(bullets, "- "+trimmed)
	}
	return bullets
}

// extractTerm pulls the subject out of "what is X" style questions.
func extractTerm(question string) string {
	match := termPattern.FindStringSubmatch(question)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(match[1], " "))
}

// topicFromContext finds the first substantial line of recent
// conversation, used to phrase follow-up answers.
func topicFromContext(conversationContext []string) string {
	for _, item := range conversationContext {
		line := normalizeLine(item)
		if len(line) >= 20 {
			runes := []rune(line)
			if len(runes) > 140 {
				runes = runes[:140]
			}
			return string(runes)
		}
	}
	return ""
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
