package search

import "strings"

// Stop words to filter out of query terms before keyword matching
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "how": true, "why": true,
}

const (
	minTermLength = 3
	maxQueryTerms = 10
)

// queryTerms splits a question into lowercase keyword terms, trimming
// punctuation and dropping stop words and short tokens. At most
// maxQueryTerms terms are kept.
func queryTerms(question string) []string {
	words := strings.Fields(strings.ToLower(question))
	terms := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.Trim(word, ".,!?;:'\"-()[]{}")
		if len(cleaned) < minTermLength || stopWords[cleaned] {
			continue
		}
		terms = append(terms, cleaned)
		if len(terms) >= maxQueryTerms {
			break
		}
	}

	return terms
}

// keywordScore returns the fraction of query terms that appear in the
// content. Zero terms scores zero.
func keywordScore(content string, terms []string) float32 {
	if len(terms) == 0 {
		return 0
	}

	lowered := strings.ToLower(content)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			matched++
		}
	}

	return float32(matched) / float32(len(terms))
}
