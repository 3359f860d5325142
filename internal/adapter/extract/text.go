package extract

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"docqa/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor accepts UTF-8 text documents (plain text, markdown).
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(name string, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrExtraction, name)
	}
	return string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))), nil
}
