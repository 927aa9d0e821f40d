// Package ollama is a terminal chat client for a local Ollama server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultBaseURL = "http://localhost:11434"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatChunk is one line of a streamed /api/chat response.
type chatChunk struct {
	Message *Message `json:"message,omitempty"`
	Done    bool     `json:"done"`
	Error   string   `json:"error,omitempty"`
}

// Chatter sends a conversation and streams the reply.
type Chatter interface {
	Chat(ctx context.Context, req ChatRequest, onChunk func(string)) (string, error)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{}}
}

// Chat posts req with streaming enabled and calls onChunk for every content
// fragment. It returns the concatenated reply. Lines that are not valid JSON
// are skipped.
func (c *Client) Chat(ctx context.Context, req ChatRequest, onChunk func(string)) (string, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var reply strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 10*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return reply.String(), fmt.Errorf("chat: %s", chunk.Error)
		}
		if chunk.Message != nil && chunk.Message.Content != "" {
			if onChunk != nil {
				onChunk(chunk.Message.Content)
			}
			reply.WriteString(chunk.Message.Content)
		}
		if chunk.Done {
			return reply.String(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return reply.String(), fmt.Errorf("read chat stream: %w", err)
	}
	return reply.String(), nil
}
