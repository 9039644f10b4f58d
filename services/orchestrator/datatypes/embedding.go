package datatypes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type EmbeddingRequest struct {
	Text string `json:"text"`
}

type EmbeddingResponse struct {
	Id        string    `json:"id"`
	Timestamp int       `json:"timestamp"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
	Dim       int       `json:"dim"`
}

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// GetWithContext requests an embedding for text from the embedding service.
//
// # Description
//
// Posts the text to the service configured via EMBEDDING_SERVICE_URL and
// fills the receiver with the parsed response. The vector dimensionality is
// whatever the service produces; callers must not assume a fixed size.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - text: The text to embed.
//
// # Outputs
//
//   - error: Non-nil if the request fails or the service returns non-200.
//
// # Assumptions
//
//   - EMBEDDING_SERVICE_URL is set and reachable.
func (e *EmbeddingResponse) GetWithContext(ctx context.Context, text string) error {
	embeddingServiceURL := os.Getenv("EMBEDDING_SERVICE_URL")
	embReq := EmbeddingRequest{Text: text}
	reqBody, err := json.Marshal(embReq)
	if err != nil {
		return fmt.Errorf("failed to marshal the embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, embeddingServiceURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to setup a new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make the request to the embedding service: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Warn("Failed to close embedding response body", "error", err)
		}
	}(resp.Body)

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("the response was not a 200 OK from the embedding service: %s, "+
			"%d", string(bodyBytes), resp.StatusCode)
	}

	if err := json.Unmarshal(bodyBytes, &e); err != nil {
		return fmt.Errorf("failed to parse the response from the embedding service %w", err)
	}
	return nil
}

// Get requests an embedding without an explicit context.
func (e *EmbeddingResponse) Get(text string) error {
	return e.GetWithContext(context.Background(), text)
}

// OpenAIEmbedder computes embeddings through the OpenAI embeddings API.
//
// # Description
//
// Alternative to the local embedding service for deployments without one.
// The model defaults to text-embedding-3-small and can be overridden via
// OPENAI_EMBEDDING_MODEL.
//
// # Thread Safety
//
// OpenAIEmbedder is safe for concurrent use; the underlying client pools
// connections.
//
// # Example
//
//	embedder := NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"))
//	vector, err := embedder.Embed(ctx, "liderlik becerileri")
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI API.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	model := openai.EmbeddingModel(os.Getenv("OPENAI_EMBEDDING_MODEL"))
	if model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Embed computes a vector embedding for the given text.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - text: The text to embed.
//
// # Outputs
//
//   - []float32: The embedding vector.
//   - error: Non-nil if the API call fails or returns no data.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding returned no data")
	}
	return resp.Data[0].Embedding, nil
}

// ServiceEmbedder adapts EmbeddingResponse.GetWithContext to the
// EmbeddingProvider interface used across the retrieval packages.
//
// # Thread Safety
//
// ServiceEmbedder is safe for concurrent use. Each call creates a new
// EmbeddingResponse instance.
type ServiceEmbedder struct{}

// NewServiceEmbedder creates an embedding provider backed by the embedding service.
func NewServiceEmbedder() *ServiceEmbedder {
	return &ServiceEmbedder{}
}

// Embed computes a vector embedding using the configured embedding service.
func (e *ServiceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var embResp EmbeddingResponse
	if err := embResp.GetWithContext(ctx, text); err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return embResp.Vector, nil
}
