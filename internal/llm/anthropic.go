package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/config"
	"github.com/fieldwork-ai/fieldwork/internal/domain/conversation"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
}

// NewAnthropicClient creates a client from the LLM config section.
func NewAnthropicClient(cfg config.LLM) *AnthropicClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultAnthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096 // required by the API
	}
	return &AnthropicClient{
		baseURL:     strings.TrimRight(base, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		http:        &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string { return c.model }

type anthropicRequest struct {
	Model       string                 `json:"model"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature,omitempty"`
	System      string                 `json:"system,omitempty"`
	Messages    []conversation.Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends the conversation and returns the assistant reply with usage.
// System-role messages are lifted into the top-level system field, as the
// messages API requires.
func (c *AnthropicClient) Chat(ctx context.Context, msgs []conversation.Message) (*Response, error) {
	var system []string
	chat := make([]conversation.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == conversation.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		chat = append(chat, m)
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      strings.Join(system, "\n\n"),
		Messages:    chat,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "anthropic", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "anthropic", Status: resp.StatusCode, Err: err}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &ProviderError{Provider: "anthropic", Status: resp.StatusCode,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ProviderError{Provider: "anthropic", Status: resp.StatusCode,
			Err: fmt.Errorf("%s", msg)}
	}
	if len(parsed.Content) == 0 {
		return nil, &ProviderError{Provider: "anthropic", Status: resp.StatusCode,
			Err: fmt.Errorf("empty content")}
	}

	return &Response{
		Content:   parsed.Content[0].Text,
		Model:     c.model,
		TokensIn:  parsed.Usage.InputTokens,
		TokensOut: parsed.Usage.OutputTokens,
		Timestamp: time.Now(),
	}, nil
}
