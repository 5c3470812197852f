// Package ai talks to chat-completion backends.
//
// Design decisions:
//   - Client is an interface so the daily text engine can swap backends
//     (DeepSeek, OpenAI, Ollama, placeholder) without knowing the wire format.
//   - Every call takes a context; the engine runs it off the UI loop.
//   - The API key travels with each request because it is resolved on every
//     generation attempt, not once at startup.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single-prompt completion request.
type Request struct {
	APIKey      string
	Model       string
	Temperature float64
	Prompt      string // sent as the only user message
}

// Client is the interface all backends implement.
type Client interface {
	// Complete sends the prompt and returns the first choice's content.
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the backend name for display and logs.
	Name() string
}

var (
	// ErrNoChoices is returned when the backend answers 2xx with no choices.
	ErrNoChoices = errors.New("ai: response has no choices")
	// ErrInvalidJSON is returned when content is not JSON even after extraction.
	ErrInvalidJSON = errors.New("ai: content is not valid JSON")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Backend, e.Code, truncate(e.Body, 200))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
