// Package llmproxy is a thin transport boundary to an OpenAI-chat-completion
// shaped endpoint, used by the generative-answer endpoint. It is a
// boundary only: it never retries, never caches, and never judges answer
// quality.
package llmproxy

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antflydb/tinyfinder/internal/jsonutil"
)

// Client forwards chat-completion requests to a configured provider.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

// FromConfig builds a Client, or returns (nil, false) if apiKey is empty —
// the generative-answer endpoint treats that as "not configured".
func FromConfig(apiKey, baseURL, model string) (*Client, bool) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, false
	}
	return &Client{
		http:    &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}, true
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Message is one chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request mirrors the upstream chat-completion request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// Response is the non-streaming completion shape.
type Response struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// streamChunk is one SSE "data:" JSON payload from the upstream stream.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) completionsURL() string {
	return c.baseURL + "/chat/completions"
}

// Complete performs a non-streaming chat completion and returns the decoded
// response; the answer text is the first choice's message content.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	req.Stream = false
	body, err := jsonutil.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("completion request failed with status %d", resp.StatusCode)
	}

	var out Response
	if err := jsonutil.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode completion response: %w", err)
	}
	return out, nil
}

// StreamEvent is one frame to relay to the caller's SSE connection.
type StreamEvent struct {
	Event string // "" for a plain data frame, or "done"/"error"
	Data  string
}

// Stream performs a streaming chat completion, sending each relayed content
// delta (and a closing "done" event, or an "error" event on failure) to the
// provided sink. It never buffers the full answer.
func (c *Client) Stream(ctx context.Context, req Request, sink func(StreamEvent)) error {
	req.Stream = true
	body, err := jsonutil.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		sink(StreamEvent{Event: "error", Data: fmt.Sprintf("completion stream request failed: %v", err)})
		return fmt.Errorf("completion stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		sink(StreamEvent{Event: "error", Data: fmt.Sprintf("completion stream request failed with status %d", resp.StatusCode)})
		return fmt.Errorf("completion stream request failed with status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			sink(StreamEvent{Event: "done"})
			return nil
		}

		var chunk streamChunk
		if err := jsonutil.Unmarshal([]byte(data), &chunk); err != nil {
			sink(StreamEvent{Event: "error", Data: fmt.Sprintf("invalid stream payload: %v", err)})
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				sink(StreamEvent{Data: choice.Delta.Content})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		sink(StreamEvent{Event: "error", Data: fmt.Sprintf("stream error: %v", err)})
		return err
	}
	return nil
}
