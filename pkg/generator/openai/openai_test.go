package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-agent/pkg/generator"
)

func TestGenerate_Success(t *testing.T) {
	var gotModel, gotRole, gotContent, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		if len(body.Messages) == 1 {
			gotRole = body.Messages[0].Role
			gotContent = body.Messages[0].Content
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"📊 Expenses are $320."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	c := New(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1/"})
	reply, err := c.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if reply != "📊 Expenses are $320." {
		t.Errorf("Unexpected reply %q", reply)
	}
	if gotModel != DefaultModel {
		t.Errorf("Expected default model, got %q", gotModel)
	}
	if gotRole != "user" || gotContent != "the prompt" {
		t.Errorf("Expected single user message, got %s/%q", gotRole, gotContent)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Unexpected auth header %q", gotAuth)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer server.Close()

	_, err := New(Config{APIKey: "sk", BaseURL: server.URL + "/v1"}).Generate(context.Background(), "p")
	if !errors.Is(err, generator.ErrUpstreamStatus) {
		t.Fatalf("Expected ErrUpstreamStatus, got %v", err)
	}

	var se *generator.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %+v", se)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	_, err := New(Config{APIKey: "sk", BaseURL: server.URL + "/v1"}).Generate(context.Background(), "p")
	if !errors.Is(err, generator.ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerate_MissingKey(t *testing.T) {
	_, err := New(Config{}).Generate(context.Background(), "p")
	if !errors.Is(err, generator.ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}
