package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/xxxsen/papergen/internal/model"
)

const (
	maxPDFPages       = 200
	maxExtractedBytes = 2 << 20
)

type pdfExtractor struct{}

func newPDFExtractor() IExtractor {
	return &pdfExtractor{}
}

func (e *pdfExtractor) Kind() model.SourceKind {
	return model.SourceKindPDF
}

func (e *pdfExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("pdf data is empty")
	}
	reader, err := pdf.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	totalPages := reader.NumPage()
	if totalPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	pages := totalPages
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= pages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		// Pages that fail text extraction are skipped rather than failing
		// the whole document.
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		cleaned := cleanText(text)
		if cleaned == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(cleaned)
		if b.Len() > maxExtractedBytes {
			break
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("pdf contains no extractable text")
	}
	return &Result{Title: strings.TrimSpace(in.Title), Text: text}, nil
}
