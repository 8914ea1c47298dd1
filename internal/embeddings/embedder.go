package embeddings

import "context"

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for many texts, returned in input
	// order. Implementations may split the work into provider-sized
	// batches internally.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension, fixed per model.
	Dimensions() int

	// Name returns the model identifier.
	Name() string
}
