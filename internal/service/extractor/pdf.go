package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
)

// PDFMagic is the signature every PDF file starts with
var PDFMagic = []byte("%PDF-")

// PDFExtractor pulls plain text out of uploaded PDF files
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Name() string                  { return "pdf" }
func (e *PDFExtractor) SourceType() models.SourceType { return models.SourcePDF }

// CanHandle accepts uploads with a .pdf name or PDF MIME type whose bytes
// carry the PDF signature
func (e *PDFExtractor) CanHandle(src *librarySvc.Source) bool {
	if !src.IsFile() {
		return false
	}
	return IsPDFUpload(src.Filename, src.ContentType) && bytes.HasPrefix(src.Data, PDFMagic)
}

// IsPDFUpload checks the declared name and type only
func IsPDFUpload(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return mediaType == "application/pdf"
}

func (e *PDFExtractor) Extract(ctx context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("pdf read: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(src.Filename), filepath.Ext(src.Filename))
	if title == "" || title == "." {
		title = "Untitled PDF"
	}

	return &librarySvc.ExtractionResult{
		SourceType: models.SourcePDF,
		Title:      title,
		Text:       CollapseWhitespace(string(b)),
		Metadata: map[string]any{
			"filename":   src.Filename,
			"page_count": r.NumPage(),
			"file_size":  len(src.Data),
		},
	}, nil
}
