package llm

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docqa/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var userPrompt = template.Must(template.ParseFS(promptTemplates, "templates/user_prompt.txt"))

// ChatOptions configures an OpenAI-compatible chat client.
type ChatOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// ChatGenerator answers questions through the chat completions API.
type ChatGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewChatGenerator(opts ChatOptions) (*ChatGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", domain.ErrAnswerGeneration)
	}
	if opts.Model == "" {
		opts.Model = "gpt-5-mini"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &ChatGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

// RenderUserPrompt fills the question prompt with retrieved context.
func RenderUserPrompt(contextText, question string) (string, error) {
	var buf bytes.Buffer
	err := userPrompt.Execute(&buf, struct {
		Context  string
		Question string
	}{contextText, question})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

func (g *ChatGenerator) Generate(ctx context.Context, systemPrompt, contextText, question string) (string, error) {
	prompt, err := RenderUserPrompt(contextText, question)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAnswerGeneration, err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               g.model,
		Messages:            messages,
		Temperature:         g.temperature,
		MaxCompletionTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAnswerGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrAnswerGeneration)
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *ChatGenerator) ModelName() string {
	return g.model
}
