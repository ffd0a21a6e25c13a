package loader

import (
	"fmt"

	"docqa/internal/domain"

	"github.com/ledongthuc/pdf"
)

// PDFLoader extracts the plain text of each PDF page. Page numbers are
// 1-based; pages without a content stream are skipped.
type PDFLoader struct{}

func (PDFLoader) Name() string { return "pdf" }

func (PDFLoader) Load(path string) (pages []domain.Page, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The reader panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, domain.Page{Number: i, Text: content})
	}
	return pages, nil
}
