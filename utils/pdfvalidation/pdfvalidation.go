package pdfvalidation

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pdfMagic = "%PDF-"

// PDFLimits defines the validation limits for PDF uploads
type PDFLimits struct {
	MaxFileSizeMB    int
	MaxPages         int
	DocumentTypeName string
}

// ResumeLimits bound the resumes attached to teacher applications
var ResumeLimits = PDFLimits{
	MaxFileSizeMB:    10,
	MaxPages:         20,
	DocumentTypeName: "resume",
}

// ValidationResult contains the result of PDF validation
type ValidationResult struct {
	Valid     bool
	PageCount int
	FileSize  int64
	Error     string
	Content   []byte
}

// ValidatePDFFile reads a multipart upload and validates it against the limits.
// Content is populated so the caller does not have to read the file twice.
func ValidatePDFFile(file *multipart.FileHeader, limits PDFLimits) (*ValidationResult, error) {
	if file.Size > limits.maxBytes() {
		return &ValidationResult{FileSize: file.Size, Error: limits.sizeMessage()}, nil
	}

	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return &ValidationResult{FileSize: file.Size, Error: "Only PDF files are supported"}, nil
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, limits.maxBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ValidatePDFBytes(content, limits), nil
}

// ValidatePDFBytes validates PDF content against the given limits
func ValidatePDFBytes(content []byte, limits PDFLimits) *ValidationResult {
	result := &ValidationResult{FileSize: int64(len(content))}

	if result.FileSize > limits.maxBytes() {
		result.Error = limits.sizeMessage()
		return result
	}

	if !bytes.HasPrefix(content, []byte(pdfMagic)) {
		result.Error = "Invalid PDF file: missing PDF header"
		return result
	}

	pageCount, err := getPDFPageCount(content)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to read PDF: %v", err)
		return result
	}
	result.PageCount = pageCount

	switch {
	case pageCount == 0:
		result.Error = "PDF has no pages"
	case limits.MaxPages > 0 && pageCount > limits.MaxPages:
		result.Error = fmt.Sprintf("PDF has %d pages, which exceeds the maximum of %d pages for a %s",
			pageCount, limits.MaxPages, limits.DocumentTypeName)
	default:
		result.Valid = true
		result.Content = content
	}
	return result
}

func (l PDFLimits) maxBytes() int64 {
	return int64(l.MaxFileSizeMB) * 1024 * 1024
}

func (l PDFLimits) sizeMessage() string {
	return fmt.Sprintf("The %s must be smaller than %dMB", l.DocumentTypeName, l.MaxFileSizeMB)
}

// sanitizePDF removes trailing garbage data after the last EOF marker
func sanitizePDF(content []byte) []byte {
	lastEOF := bytes.LastIndex(content, []byte("%%EOF"))
	if lastEOF == -1 {
		return content
	}

	end := lastEOF + len("%%EOF")
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	return content[:end]
}

func getPDFPageCount(content []byte) (int, error) {
	content = sanitizePDF(content)

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return r.NumPage(), nil
}
