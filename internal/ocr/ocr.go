// Package ocr extracts plain text from PDF earnings releases. Some
// investor-relations pages serve the release as a PDF instead of HTML;
// the extraction engine routes those bodies through here before pattern
// matching.
package ocr

import (
	"bytes"
	"context"
	"os"

	"github.com/rotisserie/eris"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// IsPDF reports whether body starts with the PDF magic bytes.
func IsPDF(body []byte) bool {
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

// TextFromBytes writes body to a temporary file and extracts its text.
// The file is removed before returning.
func TextFromBytes(ctx context.Context, ext Extractor, body []byte) (string, error) {
	f, err := os.CreateTemp("", "earnings-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp pdf")
	}
	path := f.Name()
	defer os.Remove(path) //nolint:errcheck

	if _, err := f.Write(body); err != nil {
		f.Close()
		return "", eris.Wrap(err, "ocr: write temp pdf")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "ocr: close temp pdf")
	}

	return ext.ExtractText(ctx, path)
}
