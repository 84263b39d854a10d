package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowstack/knowstack/core"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "nbsp and zero-width removed",
			input:    "hello world​!",
			expected: "hello world!",
		},
		{
			name:     "hyphenated line break rejoined",
			input:    "infor-\nmation retrieval",
			expected: "information retrieval",
		},
		{
			name:     "whitespace runs collapsed",
			input:    "too   many\t\ttabs  and   spaces",
			expected: "too many tabs and spaces",
		},
		{
			name:     "line breaks trimmed",
			input:    "first line   \n   second line",
			expected: "first line\nsecond line",
		},
		{
			name:     "blank lines collapse to one newline",
			input:    "first paragraph\n\n\nsecond paragraph",
			expected: "first paragraph\nsecond paragraph",
		},
		{
			name:     "leading and trailing stripped",
			input:    "  \n padded \n  ",
			expected: "padded",
		},
		{
			name:     "empty stays empty",
			input:    "   \n\t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestExtractPlain(t *testing.T) {
	ctx := context.Background()

	pages, err := Extract(ctx, []byte("Hello there.\n\nSecond paragraph."), ContentTypePlain)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Contains(t, pages[0].Text, "Hello there.")
}

func TestExtractPlainEmptyFails(t *testing.T) {
	ctx := context.Background()

	_, err := Extract(ctx, []byte("   \n\t  "), ContentTypePlain)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestExtractUnsupportedType(t *testing.T) {
	ctx := context.Background()

	_, err := Extract(ctx, []byte("data"), "image/png")
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestExtractEmptyDocument(t *testing.T) {
	ctx := context.Background()

	_, err := Extract(ctx, nil, ContentTypePlain)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestExtractMalformedPDF(t *testing.T) {
	ctx := context.Background()

	_, err := Extract(ctx, []byte("definitely not a pdf"), ContentTypePDF)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

// buildDOCX assembles a minimal docx archive with the given document.xml
// body content.
func buildDOCX(t *testing.T, bodyXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	entry, err := writer.Create("word/document.xml")
	require.NoError(t, err)
	document := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + bodyXML + `</w:body></w:document>`
	_, err = entry.Write([]byte(document))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	ctx := context.Background()

	data := buildDOCX(t, `<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>`)

	pages, err := Extract(ctx, data, ContentTypeDOCX)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Contains(t, pages[0].Text, "First paragraph.")
	assert.Contains(t, pages[0].Text, "Second paragraph.")
}

func TestExtractDOCXPageBreaks(t *testing.T) {
	ctx := context.Background()

	data := buildDOCX(t, `<w:p><w:r><w:t>Page one text.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:br w:type="page"/><w:t>Page two text.</w:t></w:r></w:p>`)

	pages, err := Extract(ctx, data, ContentTypeDOCX)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "Page one text.", pages[0].Text)
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, "Page two text.", pages[1].Text)
}

func TestExtractDOCXEmptyFails(t *testing.T) {
	ctx := context.Background()

	data := buildDOCX(t, `<w:p><w:r><w:t>   </w:t></w:r></w:p>`)

	_, err := Extract(ctx, data, ContentTypeDOCX)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestExtractDOCXNotAnArchive(t *testing.T) {
	ctx := context.Background()

	_, err := Extract(ctx, []byte("plain bytes"), ContentTypeDOCX)
	assert.ErrorIs(t, err, core.ErrExtraction)
}
