// Package openai adapts an OpenAI-compatible chat completion endpoint to
// generator.Generator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finance-agent/pkg/generator"

	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config holds the endpoint settings.
type Config struct {
	APIKey string
	// BaseURL overrides the public endpoint, e.g. for a local gateway
	BaseURL string
	Model   string
}

// Client implements generator.Generator with go-openai.
type Client struct {
	client *goopenai.Client
	model  string
	hasKey bool
}

var _ generator.Generator = (*Client)(nil)

// New creates an OpenAI-compatible client.
func New(config Config) *Client {
	cfg := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
		hasKey: config.APIKey != "",
	}
}

// Name implements generator.Generator.
func (c *Client) Name() string {
	return "openai"
}

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.hasKey {
		return "", generator.ErrNotConfigured
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", translateError(err))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: %w", generator.ErrEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

// translateError maps go-openai error types onto the generator taxonomy.
func translateError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &generator.StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &generator.StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}

	if strings.Contains(strings.ToLower(err.Error()), "unmarshal") {
		return fmt.Errorf("%w: %v", generator.ErrMalformedResponse, err)
	}

	return err
}
