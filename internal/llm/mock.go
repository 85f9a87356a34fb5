package llm

import "context"

// MockClient is a canned-response client for tests. Prompts records every
// prompt it was asked to complete.
type MockClient struct {
	Response string
	Err      error
	Prompts  []string
}

// Complete records the prompt and returns the canned response or error.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
