package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/goccy/go-json"
)

// LocalOllamaClient implements repository.LLMClient by calling a local Ollama server.
type LocalOllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewLocalOllamaClient initializes a new client for a local Ollama instance.
// A nil httpClient gets one whose transport logs bodies at debug level.
func NewLocalOllamaClient(host string, model string, httpClient *http.Client) *LocalOllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: &LoggingTransport{}}
	}
	return &LocalOllamaClient{
		host:       host,
		model:      model,
		httpClient: httpClient,
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

type ollamaPullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// Generate sends a prompt to the local Ollama instance, requesting JSON output.
func (c *LocalOllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := logging.WithComponent("ollama")
	log.Debug().Str("model", c.model).Msg("[Ollama] sending request")

	var ollamaResp ollamaResponse
	err := c.post(ctx, "/api/generate", ollamaRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	}, &ollamaResp)
	if err != nil {
		return "", err
	}

	log.Debug().Int("response_len", len(ollamaResp.Response)).Msg("[Ollama] response received")
	return ollamaResp.Response, nil
}

// Name returns the descriptive name of the client.
func (c *LocalOllamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s) [Local]", c.model)
}

// PullModel pulls the configured model from the Ollama library so the first
// ranking call does not pay for the download.
func (c *LocalOllamaClient) PullModel(ctx context.Context) error {
	log := logging.WithComponent("ollama")
	log.Info().Str("model", c.model).Msg("[Ollama] pulling model")

	if err := c.post(ctx, "/api/pull", ollamaPullRequest{Model: c.model, Stream: false}, nil); err != nil {
		return fmt.Errorf("pull %s: %w", c.model, err)
	}

	log.Info().Str("model", c.model).Msg("[Ollama] model pulled")
	return nil
}

func (c *LocalOllamaClient) post(ctx context.Context, path string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned error status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return nil
}
