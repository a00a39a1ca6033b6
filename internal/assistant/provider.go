// Package assistant answers natural-language questions about visitor
// activity. It renders an already-aggregated insights.Summary into a system
// prompt and forwards the conversation to a language model provider.
package assistant

import "context"

// Provider is a chat-completion backend.
type Provider interface {
	// Generate sends the conversation and returns the model's reply.
	Generate(ctx context.Context, req Request) (*Response, error)
	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response holds the model's output.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
