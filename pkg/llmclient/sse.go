package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/r3labs/sse/v2"
)

// SSEClient is a Client against an OpenAI-compatible chat/completions
// endpoint, grounded on the teacher pack's r3labs/sse usage
// (teradata-labs-loom's pkg/mcp/transport.HTTPTransport): a POST body
// carrying the request, an SSE response stream read token by token.
// Complete is a plain blocking HTTP call in the same bytes/json/net-http
// style as pkg/knowledge's httpEmbedder; Stream is the one case in this
// module that actually needs r3labs/sse.
type SSEClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// NewSSEClient builds an SSEClient against an OpenAI-compatible endpoint.
func NewSSEClient(apiKey, endpoint string) *SSEClient {
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	return &SSEClient{apiKey: apiKey, endpoint: endpoint, http: &http.Client{Timeout: 60 * time.Second}}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// chatStreamChunk is one OpenAI-format streaming delta.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete performs a blocking, non-streaming chat completion.
func (c *SSEClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(chatRequest{Model: req.Model, Temperature: req.Temperature, MaxTokens: req.MaxTokens, Messages: req.Messages})
	if err != nil {
		return "", fmt.Errorf("llmclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llmclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llmclient: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llmclient: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llmclient: endpoint returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("llmclient: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llmclient: api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llmclient: no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Stream performs a streaming chat completion, calling onToken for every
// incremental content delta as r3labs/sse delivers each SSE frame.
func (c *SSEClient) Stream(ctx context.Context, req Request, onToken func(string)) error {
	body, err := json.Marshal(chatRequest{Model: req.Model, Temperature: req.Temperature, MaxTokens: req.MaxTokens, Messages: req.Messages, Stream: true})
	if err != nil {
		return fmt.Errorf("llmclient: marshal request: %w", err)
	}

	client := sse.NewClient(c.endpoint)
	client.Method = http.MethodPost
	client.Body = bytes.NewReader(body)
	client.Headers["Content-Type"] = "application/json"
	client.Headers["Authorization"] = "Bearer " + c.apiKey

	var streamErr error
	err = client.SubscribeWithContext(ctx, "", func(msg *sse.Event) {
		data := bytes.TrimSpace(msg.Data)
		if len(data) == 0 || string(data) == "[DONE]" {
			return
		}
		var chunk chatStreamChunk
		if unmarshalErr := json.Unmarshal(data, &chunk); unmarshalErr != nil {
			streamErr = fmt.Errorf("llmclient: decode stream chunk: %w", unmarshalErr)
			return
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onToken(choice.Delta.Content)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("llmclient: subscribe: %w", err)
	}
	return streamErr
}
