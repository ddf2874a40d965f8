package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docchat/internal/models"
)

// ErrUnsupportedFormat is returned for uploads outside the four supported
// document formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

// DetectFormat maps a filename to one of the supported document formats.
func DetectFormat(filename string) (models.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return models.FormatText, nil
	case ".md", ".markdown":
		return models.FormatMarkdown, nil
	case ".pdf":
		return models.FormatPDF, nil
	case ".docx":
		return models.FormatDocx, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

// Text extracts plain text from raw document bytes. The bytes are not
// retained after extraction.
func Text(format models.Format, data []byte) (string, error) {
	switch format {
	case models.FormatText, models.FormatMarkdown:
		return sanitizeUTF8(string(data)), nil
	case models.FormatPDF:
		return pdfText(data)
	case models.FormatDocx:
		return docxText(data)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf buffer: %w", err)
	}

	return sanitizeUTF8(buf.String()), nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
