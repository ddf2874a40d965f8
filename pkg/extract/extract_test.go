package extract_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
	"docchat/pkg/extract"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		format   models.Format
		wantErr  bool
	}{
		{"notes.txt", models.FormatText, false},
		{"README.md", models.FormatMarkdown, false},
		{"guide.MARKDOWN", models.FormatMarkdown, false},
		{"paper.pdf", models.FormatPDF, false},
		{"report.docx", models.FormatDocx, false},
		{"archive.zip", "", true},
		{"image.png", "", true},
		{"noextension", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			format, err := extract.DetectFormat(tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestTextPlain(t *testing.T) {
	text, err := extract.Text(models.FormatText, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	text, err = extract.Text(models.FormatMarkdown, []byte("# Title\n\nBody text."))
	require.NoError(t, err)
	assert.Contains(t, text, "Body text.")
}

func TestTextUnsupported(t *testing.T) {
	_, err := extract.Text(models.Format("rtf"), []byte("{\\rtf1}"))
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
}

func TestTextInvalidPDF(t *testing.T) {
	_, err := extract.Text(models.FormatPDF, []byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestTextDocx(t *testing.T) {
	data := buildDocx(t, `<?xml version="1.0"?>
		<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body>
				<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
				<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
			</w:body>
		</w:document>`)

	text, err := extract.Text(models.FormatDocx, data)
	require.NoError(t, err)
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
}

func TestTextDocxMissingBody(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = extract.Text(models.FormatDocx, buf.Bytes())
	assert.Error(t, err)
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}
