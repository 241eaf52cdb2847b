package pdfvalidation

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePDFBytesRejectsOversizedFile(t *testing.T) {
	limits := PDFLimits{MaxFileSizeMB: 1, MaxPages: 5, DocumentTypeName: "resume"}
	content := append([]byte(pdfMagic), bytes.Repeat([]byte("a"), 1024*1024)...)

	result := ValidatePDFBytes(content, limits)

	assert.False(t, result.Valid)
	assert.Equal(t, "The resume must be smaller than 1MB", result.Error)
}

func TestValidatePDFBytesRejectsMissingHeader(t *testing.T) {
	result := ValidatePDFBytes([]byte("hello world"), ResumeLimits)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "missing PDF header")
	assert.Nil(t, result.Content)
}

func TestValidatePDFBytesRejectsUnparseablePDF(t *testing.T) {
	result := ValidatePDFBytes([]byte("%PDF-1.4\nnot really a pdf"), ResumeLimits)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "Failed to read PDF")
}

func TestSanitizePDFTrimsTrailingBytes(t *testing.T) {
	in := []byte("%PDF-1.4 body %%EOF\r\ngarbage")
	assert.Equal(t, []byte("%PDF-1.4 body %%EOF\r\n"), sanitizePDF(in))

	noEOF := []byte("%PDF-1.4 body")
	assert.Equal(t, noEOF, sanitizePDF(noEOF))
}
