package chunker

import (
	"fmt"

	"docqa/internal/domain"
)

// separators are tried in order when looking for a natural cut inside a window.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", " "}

// TextChunker splits plain text into overlapping character windows.
type TextChunker struct {
	chunkSize int
	overlap   int
}

func NewTextChunker(chunkSize, overlap int) (*TextChunker, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &TextChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}, nil
}

func (c *TextChunker) Chunk(text string) ([]domain.Chunk, error) {
	return Split(text, c.chunkSize, c.overlap)
}

func (c *TextChunker) ChunkSize() int { return c.chunkSize }

func (c *TextChunker) Overlap() int { return c.overlap }

// Split walks text in windows of at most chunkSize runes. Each chunk after the
// first starts with the last overlap runes of its predecessor, so dropping the
// leading overlap of every later chunk reconstructs text exactly.
//
// Inside a window the cut moves back to the latest natural boundary as long as
// the chunk keeps at least half the window; otherwise the window is cut hard.
func Split(text string, chunkSize, overlap int) ([]domain.Chunk, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	minLen := chunkSize / 2
	if minLen <= overlap {
		minLen = overlap + 1
	}

	var chunks []domain.Chunk
	start := 0
	for {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = start + naturalCut(runes[start:end], minLen)
		}

		chunks = append(chunks, domain.Chunk{
			Text:          string(runes[start:end]),
			SequenceIndex: len(chunks),
		})

		if end == len(runes) {
			break
		}
		start = end - overlap
	}

	return chunks, nil
}

// naturalCut returns the window length to keep. The separator stays with the
// chunk it terminates.
func naturalCut(window []rune, minLen int) int {
	for _, sep := range separators {
		sr := []rune(sep)
		for i := len(window) - len(sr); i+len(sr) >= minLen && i >= 0; i-- {
			if hasPrefixAt(window, sr, i) {
				return i + len(sr)
			}
		}
	}
	return len(window)
}

func hasPrefixAt(runes, prefix []rune, at int) bool {
	if at+len(prefix) > len(runes) {
		return false
	}
	for j, r := range prefix {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}

func validate(chunkSize, overlap int) error {
	if overlap <= 0 || overlap >= chunkSize {
		return fmt.Errorf("%w: need 0 < overlap < chunk_size, got chunk_size=%d overlap=%d",
			domain.ErrInvalidChunking, chunkSize, overlap)
	}
	return nil
}

// Reassemble joins chunks produced by Split back into the source text.
func Reassemble(chunks []domain.Chunk, overlap int) string {
	var out []rune
	for i, c := range chunks {
		r := []rune(c.Text)
		if i > 0 {
			if len(r) <= overlap {
				continue
			}
			r = r[overlap:]
		}
		out = append(out, r...)
	}
	return string(out)
}
