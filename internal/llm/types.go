package llm

import "time"

// Role identifies a message sender in a chat completion.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest describes one generation call. A non-zero Timeout
// bounds the provider call; a timeout surfaces as an error and is not
// retried by the provider.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CompletionResponse is the provider's answer plus usage accounting.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
