package interfaces

import "context"

// EmbeddingService converts text segments into fixed-length vectors,
// batching to the provider limit and preserving input order.
type EmbeddingService interface {
	// EmbedOne embeds a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// EmbedMany embeds texts and returns vectors in the same order and of
	// the same length as the input. All-or-nothing: any batch failure
	// returns models.ErrEmbeddingProvider and no vectors.
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimensionality.
	Dimension() int

	// IsAvailable reports whether the underlying provider responds.
	IsAvailable(ctx context.Context) bool
}
