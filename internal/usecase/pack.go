package usecase

import (
	"sort"

	"docqa/internal/adapter/chunker"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// PackUseCase fits retrieved chunks into a prompt context.
type PackUseCase struct {
	tokenizer port.Tokenizer
	overlap   int
	budget    int
}

// NewPackUseCase creates a packer. overlap must match the overlap the
// chunks were split with; budget <= 0 disables the token limit.
func NewPackUseCase(tokenizer port.Tokenizer, overlap, budget int) *PackUseCase {
	return &PackUseCase{
		tokenizer: tokenizer,
		overlap:   overlap,
		budget:    budget,
	}
}

// Pack keeps hits in rank order until the budget is spent, then merges
// chunks with consecutive sequence indexes into single blocks so the shared
// overlap appears once.
func (u *PackUseCase) Pack(hits []domain.ScoredChunk) domain.PackedContext {
	packed := domain.PackedContext{
		Blocks:       []string{},
		BudgetTokens: u.budget,
	}
	if len(hits) == 0 {
		return packed
	}

	selected := make([]domain.Chunk, 0, len(hits))
	seen := make(map[int]bool, len(hits))
	used := 0
	for _, h := range hits {
		if seen[h.Chunk.SequenceIndex] {
			continue
		}
		tokens := u.tokenizer.CountTokens(h.Chunk.Text)
		if u.budget > 0 && used+tokens > u.budget {
			packed.Dropped++
			continue
		}
		seen[h.Chunk.SequenceIndex] = true
		selected = append(selected, h.Chunk)
		used += tokens
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].SequenceIndex < selected[j].SequenceIndex
	})

	for i := 0; i < len(selected); {
		j := i + 1
		for j < len(selected) && selected[j].SequenceIndex == selected[j-1].SequenceIndex+1 {
			j++
		}
		packed.Blocks = append(packed.Blocks, u.merge(selected[i:j]))
		i = j
	}

	for _, b := range packed.Blocks {
		packed.UsedTokens += u.tokenizer.CountTokens(b)
	}
	return packed
}

func (u *PackUseCase) merge(run []domain.Chunk) string {
	if len(run) == 1 {
		return run[0].Text
	}
	return chunker.Reassemble(run, u.overlap)
}
