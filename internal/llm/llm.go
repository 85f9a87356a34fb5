// Package llm wraps the chat-completions API used for exercise generation and
// speaking evaluation.
package llm

import (
	"context"
	"fmt"
)

// Client generates a completion for a single user prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Error tags an LLM failure with the operation that produced it.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("llm.%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
