package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks rfp-assistant/internal/llm Embedder,Generator

import "context"

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string
	Content string
}

// Embedder converts text into fixed-length embedding vectors.
type Embedder interface {
	// EmbedTexts generates one embedding per input text.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a chat completion for a sequence of messages.
type Generator interface {
	// Complete sends the messages to the generation model and returns its reply.
	Complete(ctx context.Context, messages []Message) (string, error)
}
