// Package ai asks an LLM for a second opinion on live trade setups. The
// detector finds the pattern; the model weighs the surrounding context and
// answers BUY, SELL or HOLD with a confidence score.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smc-trading-dashboard/config"
)

// Provider identifies the LLM backend.
type Provider string

const (
	ProviderClaude   Provider = "claude"
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
)

const (
	defaultClaudeURL   = "https://api.anthropic.com/v1/messages"
	defaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	defaultDeepSeekURL = "https://api.deepseek.com/v1/chat/completions"
)

// Client talks to one LLM provider. DeepSeek speaks the OpenAI chat
// format, so both share a code path with different endpoints.
type Client struct {
	provider    Provider
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

func NewClient(cfg config.AIConfig) *Client {
	c := &Client{
		provider:    Provider(cfg.Provider),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 1024
	}
	switch c.provider {
	case ProviderOpenAI:
		c.baseURL = defaultOpenAIURL
	case ProviderDeepSeek:
		c.baseURL = defaultDeepSeekURL
	default:
		c.provider = ProviderClaude
		c.baseURL = defaultClaudeURL
	}
	return c
}

// IsConfigured reports whether the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Provider returns the configured backend.
func (c *Client) Provider() Provider {
	return c.provider
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends a system plus user prompt and returns the raw text reply.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("llm client has no api key")
	}
	if c.provider == ProviderClaude {
		return c.completeClaude(ctx, systemPrompt, userPrompt)
	}
	return c.completeChat(ctx, systemPrompt, userPrompt)
}

func (c *Client) completeClaude(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := struct {
		Model       string    `json:"model"`
		MaxTokens   int       `json:"max_tokens"`
		Temperature float64   `json:"temperature,omitempty"`
		System      string    `json:"system,omitempty"`
		Messages    []message `json:"messages"`
	}{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      systemPrompt,
		Messages:    []message{{Role: "user", Content: userPrompt}},
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}
	body, err := c.post(ctx, req, headers)
	if err != nil {
		return "", err
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode claude response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("claude API error: %s: %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from claude")
	}
	return resp.Content[0].Text, nil
}

func (c *Client) completeChat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature,omitempty"`
	}{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	body, err := c.post(ctx, req, headers)
	if err != nil {
		return "", err
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%s API error: %s: %s", c.provider, resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", c.provider)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, payload interface{}, headers map[string]string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read llm response: %w", err)
	}
	return body, nil
}
