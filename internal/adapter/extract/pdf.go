package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
)

// PDFExtractor returns the plain text of every page in order, pages separated
// by a newline.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(name string, data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %s: malformed pdf: %v", domain.ErrExtraction, name, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrExtraction, name, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: %s: page %d: %v", domain.ErrExtraction, name, i, err)
		}
		pages = append(pages, pageText)
	}

	return joinPages(pages), nil
}

// joinPages separates pages with a newline so the last word of a page never
// runs into the first word of the next.
func joinPages(pages []string) string {
	return strings.Join(pages, "\n")
}
