package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// DefaultSystemPrompt frames the generator as a document assistant.
const DefaultSystemPrompt = "You are a helpful assistant that provides accurate answers based on the provided documents."

// Searcher returns the chunks closest to a query. *Index implements it.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

type AnswerOptions struct {
	TopK         int
	SystemPrompt string
	Logger       *slog.Logger
}

// AnswerUseCase grounds generated answers in retrieved chunks.
type AnswerUseCase struct {
	searcher  Searcher
	packer    *PackUseCase
	generator port.AnswerGenerator
	opts      AnswerOptions
	logger    *slog.Logger
}

func NewAnswerUseCase(searcher Searcher, packer *PackUseCase, generator port.AnswerGenerator, opts AnswerOptions) *AnswerUseCase {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		searcher:  searcher,
		packer:    packer,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Ask retrieves context for question and asks the generator. Retrieval
// errors are returned. A generator failure still yields an Answer whose
// Text reads "Error: ..." and whose Err wraps domain.ErrAnswerGeneration.
func (u *AnswerUseCase) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	hits, err := u.searcher.Search(ctx, question, u.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	packed := u.packer.Pack(hits)
	contextText := packed.Text()

	answer := &domain.Answer{
		Question: question,
		Context:  contextText,
		Sources:  hits,
	}

	start := time.Now()
	text, err := u.generator.Generate(ctx, u.opts.SystemPrompt, contextText, question)
	if err != nil {
		if !errors.Is(err, domain.ErrAnswerGeneration) {
			err = fmt.Errorf("%w: %v", domain.ErrAnswerGeneration, err)
		}
		u.logger.Error("answer generation failed", "model", u.generator.ModelName(), "error", err)
		answer.Text = "Error: " + err.Error()
		answer.Err = err
		return answer, nil
	}

	u.logger.Info("answer generated",
		"model", u.generator.ModelName(),
		"sources", len(hits),
		"context_tokens", packed.UsedTokens,
		"duration", time.Since(start),
	)
	answer.Text = text
	return answer, nil
}
