package ocr

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExtractor captures the path it was handed and returns canned
// output, so TextFromBytes can be tested without the pdftotext binary.
type recordingExtractor struct {
	gotPath string
	gotBody []byte
	text    string
	err     error
}

func (r *recordingExtractor) ExtractText(_ context.Context, pdfPath string) (string, error) {
	r.gotPath = pdfPath
	r.gotBody, _ = os.ReadFile(pdfPath)
	return r.text, r.err
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, IsPDF([]byte("<html><body>hi</body></html>")))
	assert.False(t, IsPDF(nil))
}

func TestNewPdfToText_DefaultBin(t *testing.T) {
	p := NewPdfToText("")
	assert.Equal(t, "pdftotext", p.binPath)
}

func TestNewPdfToText_CustomBin(t *testing.T) {
	p := NewPdfToText("/opt/poppler/bin/pdftotext")
	assert.Equal(t, "/opt/poppler/bin/pdftotext", p.binPath)
}

func TestTextFromBytes_PassesTempFile(t *testing.T) {
	rec := &recordingExtractor{text: "Revenue of $2.5 billion for the quarter"}
	body := []byte("%PDF-1.7 fake pdf payload")

	text, err := TextFromBytes(context.Background(), rec, body)
	require.NoError(t, err)
	assert.Equal(t, "Revenue of $2.5 billion for the quarter", text)
	assert.Equal(t, body, rec.gotBody)

	// Temp file is gone after the call.
	_, statErr := os.Stat(rec.gotPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTextFromBytes_ExtractorError(t *testing.T) {
	rec := &recordingExtractor{err: os.ErrPermission}

	_, err := TextFromBytes(context.Background(), rec, []byte("%PDF-1.7"))
	require.Error(t, err)
}

func TestPdfToText_MissingBinary(t *testing.T) {
	p := NewPdfToText("/nonexistent/bin/pdftotext")

	_, err := p.ExtractText(context.Background(), "whatever.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}
