// Package gemini speaks the generateContent contract of the Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"finance-agent/pkg/generator"
	"finance-agent/pkg/logging"

	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed response body is kept in the error.
const maxErrorBody = 512

// Config holds the endpoint settings.
type Config struct {
	// APIKey is sent as the "key" query parameter
	APIKey string
	// URL is the full generateContent endpoint
	URL string
	// HTTPClient defaults to a client without timeout; deadlines come from ctx
	HTTPClient *http.Client
	// Logger defaults to the global logger
	Logger *logging.Logger
}

// Client implements generator.Generator over HTTP.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
}

var _ generator.Generator = (*Client)(nil)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type request struct {
	Contents []content `json:"contents"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// New creates a Gemini client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("gemini: empty endpoint url")
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("gemini: invalid endpoint url: %w", err)
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = logging.L()
	}

	return &Client{
		apiKey:     config.APIKey,
		endpoint:   config.URL,
		httpClient: config.HTTPClient,
		logger:     config.Logger.Named("gemini"),
	}, nil
}

// Name implements generator.Generator.
func (c *Client) Name() string {
	return "gemini"
}

// Generate posts prompt as the only part of a single content entry and
// returns candidates[0].content.parts[0].text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", generator.ErrNotConfigured
	}

	body, err := json.Marshal(request{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error repeats the request URL, which carries the key.
		return "", fmt.Errorf("gemini: request failed: %w", redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Upstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(snippet)))
		return "", fmt.Errorf("gemini: %w", &generator.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		})
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("gemini: %w: %v", generator.ErrMalformedResponse, err)
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: %w", generator.ErrEmptyResponse)
	}

	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) requestURL() string {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return c.endpoint
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }

func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{
		msg:   strings.ReplaceAll(err.Error(), secret, "REDACTED"),
		cause: unwrapURLError(err),
	}
}

// unwrapURLError strips the *url.Error layer so the cause keeps its type
// without the URL in its message.
func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
