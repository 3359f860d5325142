package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Rule routes documents whose name matches Pattern to the named extractor.
type Rule struct {
	Pattern   string
	Extractor string
}

// Registry picks an extractor by matching the document name against
// doublestar patterns. The first matching rule wins.
type Registry struct {
	rules      []Rule
	extractors map[string]port.Extractor
}

// DefaultRules routes PDFs to the pdf extractor and common text formats to
// the text extractor.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "**/*.pdf", Extractor: "pdf"},
		{Pattern: "**/*.{txt,text,md,markdown,rst,csv}", Extractor: "text"},
	}
}

func NewRegistry(rules []Rule) *Registry {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Registry{
		rules: rules,
		extractors: map[string]port.Extractor{
			"pdf":  NewPDFExtractor(),
			"text": NewTextExtractor(),
		},
	}
}

// Register adds or replaces a named extractor.
func (r *Registry) Register(name string, e port.Extractor) {
	r.extractors[name] = e
}

// Extract implements port.Extractor.
func (r *Registry) Extract(name string, data []byte) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return e.Extract(name, data)
}

func (r *Registry) lookup(name string) (port.Extractor, error) {
	match := strings.ToLower(filepath.ToSlash(name))
	base := strings.ToLower(filepath.Base(name))
	for _, rule := range r.rules {
		if !matches(rule.Pattern, match) && !matches(rule.Pattern, base) {
			continue
		}
		e, found := r.extractors[rule.Extractor]
		if !found {
			return nil, fmt.Errorf("%w: rule %q names unknown extractor %q", domain.ErrExtraction, rule.Pattern, rule.Extractor)
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: no extractor for %s", domain.ErrExtraction, name)
}

func matches(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
