package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterClient talks to an OpenAI-compatible chat-completions endpoint
// (OpenRouter by default).
type OpenRouterClient struct {
	client *openai.Client
	model  string
}

// NewOpenRouterClient builds a client for the given endpoint and model.
// baseURL may be empty for the upstream OpenAI API.
func NewOpenRouterClient(apiKey, baseURL, model string) *OpenRouterClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenRouterClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends prompt as a single user message and returns the content of
// the first choice. Empty responses are reported as errors rather than empty
// strings so callers never embed a blank exercise.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", &Error{Op: "Complete", Message: "chat completion failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Op: "Complete", Message: "no response choices returned"}
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", &Error{Op: "Complete", Message: "empty content in response message"}
	}
	return content, nil
}
