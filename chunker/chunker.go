// Copyright 2026 KnowStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package chunker splits extracted pages into overlapping chunks sized for
// embedding. Splitting is sentence-aware, headings and page positions are
// tracked, and output is deterministic for identical input and config.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/knowstack/knowstack/extract"
)

// Piece is one chunk of text with its provenance. Page is the first page
// the text spans; Section is the nearest preceding heading, empty when no
// heading was detected.
type Piece struct {
	Content string
	Page    int
	Section string
}

const (
	// DefaultMaxChars bounds chunk size in characters.
	DefaultMaxChars = 800
	// DefaultOverlap is how many trailing characters carry over into the
	// next chunk for context continuity.
	DefaultOverlap = 120
)

// Chunker splits pages into pieces.
type Chunker struct {
	maxChars    int
	overlap     int
	tokenBudget int
	counter     TokenCounter
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxChars sets the chunk size bound in characters.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlap sets the carry-over size in characters.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// WithTokenBudget additionally bounds chunks to n tokens, counted with the
// cl100k_base encoding. Zero disables token counting.
func WithTokenBudget(n int) Option {
	return func(c *Chunker) {
		c.tokenBudget = n
	}
}

// New creates a Chunker with the given options applied over defaults.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 2
	}

	if c.tokenBudget > 0 {
		counter, err := newTiktokenCounter()
		if err != nil {
			return nil, err
		}
		c.counter = counter
	}
	return c, nil
}

var sentenceBoundary = regexp.MustCompile(`(?:[.!?])\s+`)

// Split chunks the pages. A heading always starts a new chunk and becomes
// the Section of every piece until the next heading.
func (c *Chunker) Split(pages []extract.Page) []Piece {
	var pieces []Piece

	var current strings.Builder
	currentPage := 0
	section := ""

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		pieces = append(pieces, Piece{Content: text, Page: currentPage, Section: section})
	}

	// append adds one sentence, flushing first when the chunk would
	// exceed its budget.
	appendSentence := func(sentence string, page int) {
		if current.Len() == 0 {
			currentPage = page
		}
		if c.exceeds(current.String(), sentence) {
			prev := strings.TrimSpace(current.String())
			flush()
			if c.overlap > 0 && len(prev) > c.overlap {
				// Walk forward to a rune boundary so the tail never
				// starts mid-rune.
				cut := len(prev) - c.overlap
				for cut < len(prev) && !utf8.RuneStart(prev[cut]) {
					cut++
				}
				current.WriteString(prev[cut:])
			}
			currentPage = page
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}

	for _, page := range pages {
		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				// Paragraph break: never merge across it.
				flush()
				continue
			}
			if IsHeading(line) {
				flush()
				section = line
				continue
			}
			for _, sentence := range splitSentences(line) {
				appendSentence(sentence, page.Number)
			}
		}
	}
	flush()

	return pieces
}

// exceeds reports whether adding the sentence would push the current chunk
// past its character bound or token budget.
func (c *Chunker) exceeds(current, sentence string) bool {
	if current == "" {
		return false
	}
	if len(current)+len(sentence)+1 > c.maxChars {
		return true
	}
	if c.tokenBudget > 0 && c.counter != nil {
		if c.counter.Count(current+" "+sentence) > c.tokenBudget {
			return true
		}
	}
	return false
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with the sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation mark; keep it.
		sentences = append(sentences, strings.TrimSpace(text[start:loc[0]+1]))
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[start:]))
	}
	return sentences
}
