package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder turns text into a vector. The embedding model itself is an
// external collaborator (spec §1 Non-goals: "does not implement a vector
// index"); the gateway only depends on this interface.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// httpEmbedder is a concrete Embedder posting to an OpenAI-compatible
// embeddings endpoint, mirroring agentoven's embeddings.OpenAIDriver.
type httpEmbedder struct {
	apiKey     string
	model      string
	endpoint   string
	dimensions int
	client     *http.Client
}

// NewHTTPEmbedder builds an Embedder against an OpenAI-compatible endpoint.
func NewHTTPEmbedder(apiKey, model, endpoint string) Embedder {
	dims := 1536
	if model == "text-embedding-3-large" {
		dims = 3072
	}
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/embeddings"
	}
	return &httpEmbedder{
		apiKey:     apiKey,
		model:      model,
		endpoint:   endpoint,
		dimensions: dims,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *httpEmbedder) Dimensions() int { return d.dimensions }

type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (d *httpEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Input: text, Model: d.model})
	if err != nil {
		return nil, fmt.Errorf("knowledge: marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("knowledge: build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge: embeddings endpoint returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("knowledge: decode embed response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("knowledge: embeddings API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("knowledge: embeddings API returned no data")
	}
	return parsed.Data[0].Embedding, nil
}
