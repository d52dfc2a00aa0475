package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// EmbeddingClient is an implementation of the EmbeddingProvider interface
// using the OpenAI embeddings API
type EmbeddingClient struct {
	client     *openai.Client
	modelName  string
	dimensions int
	batchSize  int
	logger     *zap.Logger
}

// NewEmbeddingClient creates a new OpenAI embedding client
func NewEmbeddingClient(
	client *openai.Client,
	modelName string,
	dimensions int,
	batchSize int,
	logger *zap.Logger,
) *EmbeddingClient {
	return &EmbeddingClient{
		client:     client,
		modelName:  modelName,
		dimensions: dimensions,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Embed generates an embedding for a single text
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, chunking requests at the
// configured batch size
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batchSize := c.batchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(c.modelName),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings with OpenAI: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), end-start)
		}

		for _, d := range resp.Data {
			vectors = append(vectors, d.Embedding)
		}
	}

	c.logger.Debug("Generated embeddings",
		zap.String("model", c.modelName),
		zap.Int("count", len(vectors)))
	return vectors, nil
}

// Dimensions returns the fixed dimensionality of produced vectors
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}
