package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowstack/knowstack/core"
)

// Page is one page of extracted, normalized text. Numbers start at 1.
type Page struct {
	Number int
	Text   string
}

// Content types accepted by Extract. Filenames are not consulted; callers
// resolve the type before upload is accepted.
const (
	ContentTypePlain = "text/plain"
	ContentTypePDF   = "application/pdf"
	ContentTypeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extract parses the raw document bytes into normalized pages. Extraction
// is whole-document-or-error: a document that yields no readable text fails
// rather than producing an empty page set. All failures wrap
// core.ErrExtraction.
func Extract(ctx context.Context, data []byte, contentType string) ([]Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", core.ErrExtraction)
	}

	switch strings.ToLower(contentType) {
	case ContentTypePlain:
		return extractPlain(data)
	case ContentTypePDF:
		return extractPDF(data)
	case ContentTypeDOCX:
		return extractDOCX(data)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", core.ErrExtraction, contentType)
	}
}

// extractPlain treats the whole document as a single page.
func extractPlain(data []byte) ([]Page, error) {
	text := NormalizeText(string(data))
	if text == "" {
		return nil, fmt.Errorf("%w: text file has no readable text", core.ErrExtraction)
	}
	return []Page{{Number: 1, Text: text}}, nil
}
