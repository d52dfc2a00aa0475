package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// FallbackClient is an implementation of the classification fallback interface
// using Google Gemini
type FallbackClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

// NewFallbackClient creates a new Gemini fallback client
func NewFallbackClient(
	client *genai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *FallbackClient {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &FallbackClient{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}
}

// Close closes the Gemini client
func (c *FallbackClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete sends the classification prompt and returns the raw reply text
func (c *FallbackClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	reply := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	c.logger.Debug("Gemini fallback reply",
		zap.String("model", c.modelName),
		zap.String("reply", reply))
	return reply, nil
}
