// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sqlai/cli/internal/httperrors"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 60 * time.Second

// OpenAIConfig holds settings shared by every credential.
type OpenAIConfig struct {
	BaseURL string
	// Timeout bounds the HTTP round trip; the rotator adds its own per-attempt deadline.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	api *openai.Client
}

// NewOpenAIClient creates a client for one API key.
func NewOpenAIClient(apiKey string, cfg OpenAIConfig) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &Error{Kind: KindFatal, Err: errors.New("api key is required")}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, &Error{Kind: KindFatal, Err: errors.New("base URL is required")}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	openaiCfg := openai.DefaultConfig(apiKey)
	openaiCfg.BaseURL = baseURL
	openaiCfg.HTTPClient = httpClient

	return &OpenAIClient{api: openai.NewClientWithConfig(openaiCfg)}, nil
}

// NewOpenAIFactory returns a Factory producing OpenAIClients that share cfg.
func NewOpenAIFactory(cfg OpenAIConfig) Factory {
	return func(apiKey string) (Client, error) {
		return NewOpenAIClient(apiKey, cfg)
	}
}

// Complete sends the system and user messages and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindFatal, Err: errors.New("empty chat completion choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kindForStatus(apiErr.HTTPStatusCode), StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &Error{Kind: kindForStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindFatal, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || httperrors.IsNetworkError(err) {
		return &Error{Kind: KindTransient, Err: err}
	}
	return &Error{Kind: KindFatal, Err: fmt.Errorf("unexpected completion failure: %w", err)}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout, status >= 500:
		return KindTransient
	default:
		return KindFatal
	}
}
