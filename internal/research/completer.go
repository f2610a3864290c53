package research

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/timberline-data/enrich-cli/pkg/anthropic"
	"github.com/timberline-data/enrich-cli/pkg/groq"
)

// Completer is the text-completion surface the extraction engine needs.
// Both completion backends are adapted to it here so the rest of the
// pipeline never touches provider request types.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GroqCompleter adapts the Groq chat client. This is the default
// extraction backend.
type GroqCompleter struct {
	Client      groq.Client
	Model       string
	MaxTokens   int
	Temperature float64
}

func (c GroqCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := c.MaxTokens
	temp := c.Temperature

	resp, err := c.Client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model:       c.Model,
		Messages:    []groq.Message{{Role: "user", Content: prompt}},
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "research: groq completion")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// AnthropicCompleter adapts the Anthropic messages client as the
// alternative extraction backend.
type AnthropicCompleter struct {
	Client      anthropic.Client
	Model       string
	MaxTokens   int64
	Temperature float64
}

func (c AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	temp := c.Temperature

	resp, err := c.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Prompt:      prompt,
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "research: anthropic completion")
	}
	return resp.Text, nil
}
