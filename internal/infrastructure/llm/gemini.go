package llm

import (
	"context"
	"fmt"

	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient implements repository.LLMClient.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiClient creates a client that asks the model for JSON output, which
// is the only format the ranking prompt accepts.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key must not be empty")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.3)

	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: modelName,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := logging.WithComponent("gemini")
	log.Debug().Str("model", c.modelName).Int("prompt_len", len(prompt)).Msg("[Gemini] sending request")

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}

	log.Debug().Int("response_len", len(text)).Msg("[Gemini] response received")
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned from gemini")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			return string(text), nil
		}
	}

	return "", fmt.Errorf("unexpected response format from gemini")
}

func (c *GeminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s) [Cloud]", c.modelName)
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
