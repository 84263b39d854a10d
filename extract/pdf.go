package extract

import (
	"bytes"
	"fmt"

	"github.com/knowstack/knowstack/core"
	"github.com/ledongthuc/pdf"
)

// extractPDF extracts text page by page, keeping the original page numbers
// so citations can point at them. Pages without extractable text are
// skipped; a document where every page is empty is an error.
func extractPDF(data []byte) (pages []Page, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed pdf: %v", core.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", core.ErrExtraction, i, err)
		}
		normalized := NormalizeText(text)
		if normalized == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: normalized})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: pdf has no extractable text", core.ErrExtraction)
	}
	return pages, nil
}
