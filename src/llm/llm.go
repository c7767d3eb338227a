// Package llm calls an OpenAI-compatible chat completion endpoint with an
// annotated frame and accompanying text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"screen-pilot/src/logutil"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 120 * time.Second

type Config struct {
	// EndpointURL is the full chat completions URL, e.g.
	// http://127.0.0.1:1235/v1/chat/completions.
	EndpointURL  string
	Model        string
	APIKey       string
	SystemPrompt string
	Temperature  float32
	TopP         float32
	MaxTokens    int
	Timeout      time.Duration
}

// Client performs model calls. It is safe for concurrent use.
type Client struct {
	cfg    Config
	client *openai.Client
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.EndpointURL) == "" {
		return nil, errors.New("model endpoint URL is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model name is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	key := cfg.APIKey
	if key == "" {
		key = "n/a" // local servers ignore the key
	}
	clientConfig := openai.DefaultConfig(key)
	clientConfig.BaseURL = BaseURL(cfg.EndpointURL)
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{cfg: cfg, client: openai.NewClientWithConfig(clientConfig)}, nil
}

// BaseURL strips the chat completions path so the client can re-append it.
func BaseURL(endpoint string) string {
	u := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return strings.TrimSuffix(u, "/chat/completions")
}

// Complete sends the system prompt, the optional text and the base64 PNG
// image and returns the first choice's content. Any failure yields "", which
// callers treat as retryable.
func (c *Client) Complete(ctx context.Context, imageB64, text string) string {
	parts := make([]openai.ChatMessagePart, 0, 2)
	if text != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: text,
		})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    fmt.Sprintf("data:image/png;base64,%s", imageB64),
			Detail: openai.ImageURLDetailAuto,
		},
	})

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.cfg.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("LLM: request to %s failed: %v", logutil.Sanitize(c.cfg.EndpointURL), err)
		return ""
	}
	if len(resp.Choices) == 0 {
		log.Printf("LLM: response had no choices")
		return ""
	}
	content := resp.Choices[0].Message.Content
	log.Printf("LLM: received %d chars: %s", len(content), logutil.Sanitize(content))
	return content
}
