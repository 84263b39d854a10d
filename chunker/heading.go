package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S`)

// IsHeading reports whether a line looks like a section heading: short,
// without sentence-ending punctuation, and shaped like a numbered heading,
// a markdown heading, an ALL CAPS line, or a title-cased phrase.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 80 {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(line)
	if strings.ContainsRune(".!?,;:", last) {
		return false
	}

	if strings.HasPrefix(line, "#") {
		return true
	}
	if numberedHeading.MatchString(line) {
		return true
	}
	if isAllCaps(line) {
		return true
	}
	return isTitleCase(line)
}

// isAllCaps reports whether the line has letters and none of them are
// lowercase.
func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// isTitleCase reports whether the line is a short phrase in which every
// significant word starts with an uppercase letter.
func isTitleCase(line string) bool {
	words := strings.Fields(line)
	if len(words) < 1 || len(words) > 8 {
		return false
	}
	significant := 0
	for i, word := range words {
		r := []rune(word)[0]
		if !unicode.IsLetter(r) {
			return false
		}
		if unicode.IsUpper(r) {
			significant++
			continue
		}
		// Small connector words are fine mid-phrase.
		if i > 0 && isConnector(word) {
			continue
		}
		return false
	}
	return significant >= 1
}

func isConnector(word string) bool {
	switch strings.ToLower(word) {
	case "a", "an", "and", "at", "by", "for", "in", "of", "on", "or", "the", "to", "with":
		return true
	}
	return false
}
