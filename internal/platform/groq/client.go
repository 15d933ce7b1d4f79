// Package groq generates text through Groq's OpenAI-compatible API.
package groq

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const (
	BaseURL      = "https://api.groq.com/openai/v1"
	DefaultModel = "llama-3.1-8b-instant"
)

// ErrNoChoices is returned when the completion holds no choices.
var ErrNoChoices = errors.New("groq returned no choices")

// Client wraps a langchaingo model pointed at Groq.
type Client struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
}

// NewClient creates a Groq client for the given model.
func NewClient(apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	llm, err := openai.New(
		openai.WithBaseURL(BaseURL),
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create groq client: %w", err)
	}
	return newClient(llm), nil
}

func newClient(llm llms.Model) *Client {
	return &Client{llm: llm, temperature: 0.6, maxTokens: 700}
}

// Generate sends the system and user prompts and returns the completion text.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	var msgs []llms.MessageContent
	if system != "" {
		msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	resp, err := c.llm.GenerateContent(ctx, msgs,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("groq generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Content, nil
}
