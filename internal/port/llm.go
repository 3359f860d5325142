package port

import "context"

// AnswerGenerator produces an answer to a question from retrieved context.
type AnswerGenerator interface {
	Generate(ctx context.Context, systemPrompt, contextText, question string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
