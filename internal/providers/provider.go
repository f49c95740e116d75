package providers

import "context"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one earlier turn of a conversation.
type Message struct {
	Role Role
	Text string
}

// ChatRequest carries one user turn. History holds the preceding turns, oldest
// first, without the system prompt.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	History      []Message
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

type ChatResponse struct {
	Text string
}

type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
