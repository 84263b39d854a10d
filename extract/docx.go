package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/knowstack/knowstack/core"
)

// DOCX is a zip archive; the body text lives in word/document.xml. Only
// paragraph text and explicit page breaks are read, which is all the
// pipeline needs.

type docxBody struct {
	Paragraphs []docxParagraph `xml:"body>p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts  []string   `xml:"t"`
	Breaks []docxWrap `xml:"br"`
}

type docxWrap struct {
	Type string `xml:"type,attr"`
}

// extractDOCX reads paragraphs from word/document.xml. Explicit page breaks
// (<w:br w:type="page"/>) advance the page number; documents without them
// come out as a single page.
func extractDOCX(data []byte) ([]Page, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %v", core.ErrExtraction, err)
	}

	var documentXML []byte
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrExtraction, err)
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrExtraction, err)
		}
		break
	}
	if documentXML == nil {
		return nil, fmt.Errorf("%w: docx missing word/document.xml", core.ErrExtraction)
	}

	var body docxBody
	if err := xml.Unmarshal(documentXML, &body); err != nil {
		return nil, fmt.Errorf("%w: malformed document.xml: %v", core.ErrExtraction, err)
	}

	var pages []Page
	pageNumber := 1
	var current strings.Builder

	flush := func() {
		text := NormalizeText(current.String())
		current.Reset()
		if text != "" {
			pages = append(pages, Page{Number: pageNumber, Text: text})
		}
	}

	for _, paragraph := range body.Paragraphs {
		var line strings.Builder
		pageBreak := false
		for _, run := range paragraph.Runs {
			for _, br := range run.Breaks {
				if br.Type == "page" {
					pageBreak = true
				}
			}
			for _, text := range run.Texts {
				line.WriteString(text)
			}
		}

		if pageBreak {
			flush()
			pageNumber++
		}
		if trimmed := strings.TrimSpace(line.String()); trimmed != "" {
			current.WriteString(trimmed)
			current.WriteString("\n")
		}
	}
	flush()

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: docx has no extractable text", core.ErrExtraction)
	}
	return pages, nil
}
