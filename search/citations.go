package search

import (
	"regexp"
	"strings"

	"github.com/knowstack/knowstack/core"
)

// DefaultSnippetLength caps citation snippets.
const DefaultSnippetLength = 320

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	whitespace    = regexp.MustCompile(`\s+`)
	punctSpacing  = regexp.MustCompile(`\s*([,.;:])\s*`)
)

// Assembler builds citations from retrieved chunks.
type Assembler struct {
	snippetLength int
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithSnippetLength sets the maximum snippet length in runes.
func WithSnippetLength(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.snippetLength = n
		}
	}
}

// NewAssembler creates an assembler with the default snippet length.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{snippetLength: DefaultSnippetLength}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble produces one citation per retrieved chunk, owned by the given
// message. Snippets are cleaned and truncated copies of the chunk content;
// they stay valid even after the chunk set is replaced.
func (a *Assembler) Assemble(messageId string, results []*core.RetrievedChunk) []*core.Citation {
	citations := make([]*core.Citation, 0, len(results))
	for _, result := range results {
		section := result.Chunk.Section
		if section == "" {
			section = "Body"
		}
		page := result.Chunk.Page
		if page < 1 {
			page = 1
		}

		citations = append(citations, &core.Citation{
			MessageId:    messageId,
			DocumentId:   result.Chunk.DocumentId,
			DocumentName: result.DocumentName,
			Page:         page,
			Section:      section,
			Snippet:      a.Snippet(result.Chunk.Content),
		})
	}
	return citations
}

// Snippet cleans and truncates chunk content for display.
func (a *Assembler) Snippet(content string) string {
	return truncateSnippet(CleanSnippet(content), a.snippetLength)
}

// CleanSnippet normalizes chunk text for display: exotic spaces become
// plain ones, glued camelCase words (a PDF extraction artifact) are split,
// whitespace runs collapse and punctuation gets a single trailing space.
func CleanSnippet(text string) string {
	snippet := strings.ReplaceAll(text, " ", " ")
	snippet = strings.ReplaceAll(snippet, "​", " ")
	snippet = camelBoundary.ReplaceAllString(snippet, "$1 $2")
	snippet = whitespace.ReplaceAllString(snippet, " ")
	snippet = punctSpacing.ReplaceAllString(snippet, "$1 ")
	return strings.TrimSpace(snippet)
}

// truncateSnippet cuts the text to at most max runes, preferring a
// sentence boundary, then a word boundary. It never cuts mid-token.
func truncateSnippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := string(runes[:max])

	if at := lastSentenceEnd(cut); at > 0 {
		return strings.TrimSpace(cut[:at])
	}
	if at := strings.LastIndex(cut, " "); at > 0 {
		return strings.TrimSpace(cut[:at])
	}
	return cut
}

// lastSentenceEnd returns the byte offset just past the last sentence
// terminator, or 0 if there is none.
func lastSentenceEnd(s string) int {
	end := 0
	for _, punct := range []string{". ", "! ", "? "} {
		if at := strings.LastIndex(s, punct); at >= 0 && at+1 > end {
			end = at + 1
		}
	}
	return end
}
