package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits document text into normalized terms.
type Tokenizer struct {
	stopwords map[string]struct{}
	useStem   bool
}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer(useStemming bool) *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		useStem:   useStemming,
	}
}

// Tokenize lowercases text, drops stopwords and single letters, and
// optionally strips common English suffixes.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		if t.useStem {
			word = stem(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// CountTokens returns an approximate LLM token count for budget estimation.
func (t *Tokenizer) CountTokens(text string) int {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}
	// average English word is about 1.3 tokens
	return int(float64(len(words)) * 1.3)
}

// suffixes ordered longest first; a suffix is removed only if at least
// three runes of stem remain.
var suffixes = []string{
	"ational", "ization", "fulness", "iveness",
	"ations", "ements", "ments", "ation", "ement", "ness", "ment",
	"ings", "edly", "ing", "ies", "ied", "ers", "est", "ed", "er", "ly", "es", "s",
}

func stem(word string) string {
	if strings.HasSuffix(word, "ss") {
		return word
	}
	for _, suf := range suffixes {
		if !strings.HasSuffix(word, suf) {
			continue
		}
		base := word[:len(word)-len(suf)]
		if len([]rune(base)) < 3 {
			continue
		}
		switch suf {
		case "ies", "ied":
			return base + "y"
		case "ing", "ed", "er", "est":
			// running -> run
			if n := len(base); n >= 2 && base[n-1] == base[n-2] && !strings.ContainsRune("lsz", rune(base[n-1])) {
				return base[:n-1]
			}
		}
		return base
	}
	return word
}

// splitWords splits text into words using unicode letter/digit classes.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// defaultStopwords returns a set of common English stopwords.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
