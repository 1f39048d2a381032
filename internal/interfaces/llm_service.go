package interfaces

import "context"

// Message represents a single message in a chat conversation.
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// GenerationService is the consumed generation capability. Implementations
// wrap a cloud provider (Gemini, Claude); this core never builds prompts
// into provider-specific shapes itself.
type GenerationService interface {
	// Chat generates a completion for the conversation history, which must
	// be in chronological order including any system prompt.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream generates a completion incrementally. onToken is invoked
	// once per fragment, in generation order, before ChatStream returns the
	// full aggregated text. A non-nil error from onToken aborts the stream.
	ChatStream(ctx context.Context, messages []Message, onToken func(string) error) (string, error)

	// HealthCheck verifies the provider is reachable and responding.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}

// BatchEmbedding is one provider result item. Index is the item's declared
// position within the request batch; providers may return items out of
// order and callers must re-sort by Index.
type BatchEmbedding struct {
	Index  int
	Values []float32
}

// EmbeddingProvider is the consumed embedding capability for a single
// provider request. Batch partitioning and order restoration live in the
// embedding service, not here.
type EmbeddingProvider interface {
	// EmbedBatch embeds up to the provider batch limit of texts in one
	// request and returns one item per input.
	EmbedBatch(ctx context.Context, texts []string) ([]BatchEmbedding, error)

	// Dimension returns the configured embedding dimensionality.
	Dimension() int

	// HealthCheck verifies the provider is reachable and responding.
	HealthCheck(ctx context.Context) error
}
