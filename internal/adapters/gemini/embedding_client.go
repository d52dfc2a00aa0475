package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// EmbeddingClient is an implementation of the EmbeddingProvider interface
// using the Gemini embedding API
type EmbeddingClient struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	modelName  string
	dimensions int
	batchSize  int
	logger     *zap.Logger
}

// NewEmbeddingClient creates a new Gemini embedding client
func NewEmbeddingClient(
	client *genai.Client,
	modelName string,
	dimensions int,
	batchSize int,
	logger *zap.Logger,
) *EmbeddingClient {
	return &EmbeddingClient{
		client:     client,
		model:      client.EmbeddingModel(modelName),
		modelName:  modelName,
		dimensions: dimensions,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Embed generates an embedding for a single text
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content with Gemini: %w", err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("empty embedding response from Gemini")
	}
	return resp.Embedding.Values, nil
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

		batch := c.model.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		resp, err := c.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to batch-embed contents with Gemini: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("Gemini returned %d embeddings for %d inputs", len(resp.Embeddings), end-start)
		}

		for _, e := range resp.Embeddings {
			vectors = append(vectors, e.Values)
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
