package chunker

import (
	"errors"
	"strings"
	"testing"

	"docqa/internal/domain"
)

func TestSplitHardCut(t *testing.T) {
	chunks, err := Split("ABCDEFGHIJ", 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"ABCD", "CDEF", "EFGH", "GHIJ"}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d", len(expected), len(chunks))
	}
	for i, want := range expected {
		if chunks[i].Text != want {
			t.Errorf("chunk %d: expected %q, got %q", i, want, chunks[i].Text)
		}
		if chunks[i].SequenceIndex != i {
			t.Errorf("chunk %d: expected sequence index %d, got %d", i, i, chunks[i].SequenceIndex)
		}
	}
}

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split("", 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplitInvalidParameters(t *testing.T) {
	tests := []struct {
		size    int
		overlap int
	}{
		{10, 0},
		{10, 10},
		{10, 12},
		{0, 0},
		{5, -1},
	}

	for _, tt := range tests {
		_, err := Split("some text", tt.size, tt.overlap)
		if !errors.Is(err, domain.ErrInvalidChunking) {
			t.Errorf("Split(size=%d, overlap=%d): expected ErrInvalidChunking, got %v", tt.size, tt.overlap, err)
		}
	}

	if _, err := NewTextChunker(100, 100); !errors.Is(err, domain.ErrInvalidChunking) {
		t.Errorf("NewTextChunker: expected ErrInvalidChunking, got %v", err)
	}
}

func TestSplitProperties(t *testing.T) {
	texts := []string{
		"ABCDEFGHIJ",
		"short",
		strings.Repeat("lorem ipsum dolor sit amet. ", 40),
		"First paragraph about the lease.\n\nSecond paragraph about pets. Pets are allowed with a deposit.\n\nThird paragraph about the term of the agreement and renewal options.",
		"line one\nline two\nline three\nline four\nline five\nline six",
		strings.Repeat("x", 1000),
		"Größe überprüfen: naïve café, 東京 タワー, Ωmega. " + strings.Repeat("ü", 50),
	}
	params := []struct {
		size    int
		overlap int
	}{
		{4, 2},
		{5, 1},
		{20, 5},
		{50, 10},
		{100, 99},
		{800, 100},
	}

	for _, text := range texts {
		for _, p := range params {
			chunks, err := Split(text, p.size, p.overlap)
			if err != nil {
				t.Fatalf("Split(size=%d, overlap=%d): %v", p.size, p.overlap, err)
			}
			if len(chunks) == 0 {
				t.Fatalf("Split(size=%d, overlap=%d): expected chunks for non-empty text", p.size, p.overlap)
			}

			if got := Reassemble(chunks, p.overlap); got != text {
				t.Errorf("size=%d overlap=%d: reassembled text differs from source\nwant %q\ngot  %q", p.size, p.overlap, text, got)
			}

			for i, c := range chunks {
				n := len([]rune(c.Text))
				if c.Text == "" {
					t.Errorf("size=%d overlap=%d: chunk %d is empty", p.size, p.overlap, i)
				}
				if n > p.size {
					t.Errorf("size=%d overlap=%d: chunk %d has %d runes", p.size, p.overlap, i, n)
				}
				if c.SequenceIndex != i {
					t.Errorf("size=%d overlap=%d: chunk %d has sequence index %d", p.size, p.overlap, i, c.SequenceIndex)
				}
				if i == 0 {
					continue
				}
				prev := []rune(chunks[i-1].Text)
				cur := []rune(c.Text)
				if len(prev) < p.overlap || len(cur) < p.overlap {
					t.Errorf("size=%d overlap=%d: chunk %d shorter than overlap", p.size, p.overlap, i)
					continue
				}
				if string(prev[len(prev)-p.overlap:]) != string(cur[:p.overlap]) {
					t.Errorf("size=%d overlap=%d: chunk %d does not start with the tail of chunk %d", p.size, p.overlap, i, i-1)
				}
			}
		}
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	text := "The tenant pays rent monthly.\n\nPets are allowed with written consent from the landlord."

	chunks, err := Split(text, 40, 5)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("expected first chunk to end at the paragraph break, got %q", chunks[0].Text)
	}
}

func TestSplitPrefersWordBoundary(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"

	chunks, err := Split(text, 16, 3)
	if err != nil {
		t.Fatal(err)
	}

	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, " ") {
			t.Errorf("chunk %d: expected cut after a space, got %q", i, c.Text)
		}
	}
}

func TestSplitSingleChunk(t *testing.T) {
	content := "Just a single line"

	chunks, err := Split(content, 800, 100)
	if err != nil {
		t.Fatal(err)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != content {
		t.Errorf("expected chunk text to match content")
	}
}

func TestTextChunker(t *testing.T) {
	c, err := NewTextChunker(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if c.ChunkSize() != 4 || c.Overlap() != 2 {
		t.Errorf("unexpected parameters %d/%d", c.ChunkSize(), c.Overlap())
	}

	chunks, err := c.Chunk("ABCDEFGHIJ")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 4 {
		t.Errorf("expected 4 chunks, got %d", len(chunks))
	}
}
