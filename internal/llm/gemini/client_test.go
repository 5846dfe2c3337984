package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/genai"

	"peerprep/interview/internal/llm"
)

func newStubClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     "test",
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: server.Client(),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    server.URL,
			APIVersion: "v1beta",
		},
	})
	if err != nil {
		t.Fatalf("failed to create genai client: %v", err)
	}

	client := &Client{
		client: genaiClient,
		config: &Config{APIKey: "test", Model: "test-model", Temperature: 0.5},
	}

	return client, server.Close
}

func writeCandidates(w http.ResponseWriter, texts ...[]string) {
	candidates := []map[string]any{}
	for _, parts := range texts {
		p := []map[string]any{}
		for _, text := range parts {
			p = append(p, map[string]any{"text": text})
		}
		candidates = append(candidates, map[string]any{"content": map[string]any{"parts": p}})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"candidates": candidates, "modelVersion": "test-version"})
}

func TestClientGenerateContentSuccess(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeCandidates(w, []string{"Feedback: good", "Score: 7"})
	}

	client, cleanup := newStubClient(t, handler)
	defer cleanup()

	resp, err := client.GenerateContent(context.Background(), "prompt", "req-1")
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if resp.Content != "Feedback: good\nScore: 7" {
		t.Fatalf("expected joined parts, got %q", resp.Content)
	}
	if resp.RequestID != "req-1" {
		t.Fatalf("expected request id to be echoed, got %s", resp.RequestID)
	}
	if resp.Metadata.Model != "test-model" || resp.Metadata.Provider != ProviderName {
		t.Fatalf("expected metadata to include model, got %+v", resp.Metadata)
	}
}

func TestClientGenerateContentSkipsEmptyCandidates(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		writeCandidates(w, []string{"  "}, []string{"second"})
	}
	client, cleanup := newStubClient(t, handler)
	defer cleanup()

	resp, err := client.GenerateContent(context.Background(), "prompt", "req")
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if resp.Content != "second" {
		t.Fatalf("expected second candidate, got %q", resp.Content)
	}
}

func TestClientGenerateContentRateLimit(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
	}
	client, cleanup := newStubClient(t, handler)
	defer cleanup()

	_, err := client.GenerateContent(context.Background(), "prompt", "req")
	if err == nil {
		t.Fatal("expected error")
	}
	var provErr *llm.ProviderError
	if !errors.As(err, &provErr) || provErr.Code != llm.ErrCodeRateLimit {
		t.Fatalf("expected provider rate limit error, got %v", err)
	}
}

func TestClientGenerateContentTimeout(t *testing.T) {
	release := make(chan struct{})
	handler := func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}
	client, cleanup := newStubClient(t, handler)
	defer cleanup()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GenerateContent(ctx, "prompt", "req")
	if code := llm.ErrorCode(err); code != llm.ErrCodeTimeout {
		t.Fatalf("expected timeout code, got %q (%v)", code, err)
	}
}

func TestClientGenerateContentEmptyResponse(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		writeCandidates(w, []string{""})
	}
	client, cleanup := newStubClient(t, handler)
	defer cleanup()

	_, err := client.GenerateContent(context.Background(), "prompt", "req")
	if code := llm.ErrorCode(err); code != llm.ErrCodeEmpty {
		t.Fatalf("expected empty response code, got %q (%v)", code, err)
	}
}

func TestClientGenerateContentRejectsBlankPrompt(t *testing.T) {
	client := &Client{config: &Config{Model: "test-model"}}

	_, err := client.GenerateContent(context.Background(), "   ", "req")
	if code := llm.ErrorCode(err); code != llm.ErrCodeInvalidInput {
		t.Fatalf("expected invalid input code, got %q", code)
	}
}

func TestGetProviderNameAndErrorHelpers(t *testing.T) {
	client := &Client{}
	if client.GetProviderName() != "gemini" {
		t.Fatalf("expected provider name gemini")
	}

	rateLimit := map[string]bool{
		"429 rate limit exceeded": true,
		"RESOURCE_EXHAUSTED":      true,
		"quota exceeded":          true,
		"other error":             false,
	}
	for input, expect := range rateLimit {
		if got := isRateLimitError(errors.New(input)); got != expect {
			t.Fatalf("isRateLimitError(%s) = %v, expected %v", input, got, expect)
		}
	}
	if isRateLimitError(nil) {
		t.Fatalf("expected nil error to return false")
	}

	if !isAuthError(errors.New("Error 403, Message: PERMISSION_DENIED")) {
		t.Fatal("expected permission denied to be an auth error")
	}
	if isAuthError(errors.New("connection reset")) {
		t.Fatal("expected connection reset not to be an auth error")
	}
}
