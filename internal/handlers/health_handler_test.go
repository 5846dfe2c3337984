package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"text/template"

	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/testhelpers"
)

type mockPromptManager struct {
	templates map[string]map[string]*template.Template
}

func (m *mockPromptManager) BuildPrompt(mode, variant string, data any) (string, error) {
	return "mock prompt", nil
}

func (m *mockPromptManager) GetTemplates() map[string]map[string]*template.Template {
	return m.templates
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.err
}

func decodeReadinessResponse(t *testing.T, rec *httptest.ResponseRecorder) ReadinessResponse {
	t.Helper()
	var response ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return response
}

func realPrompts(t *testing.T) prompts.PromptProvider {
	t.Helper()
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}
	return pm
}

func TestHealthzHandler(t *testing.T) {
	handler := NewHealthHandler(nil, nil, nil, nil)
	rec := httptest.NewRecorder()

	handler.HealthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "interview" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestReadyzHandler_AllHealthy(t *testing.T) {
	handler := NewHealthHandler(testhelpers.SetupTestDB(t), &mockProvider{}, realPrompts(t), &mockPinger{})
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	response := decodeReadinessResponse(t, rec)
	if response.Status != "ready" || response.Service != "interview" {
		t.Fatalf("unexpected response %+v", response)
	}
	for _, name := range []string{"database", "provider", "prompt_manager", "events"} {
		if response.Checks[name].Status != "ok" {
			t.Fatalf("expected check %s ok, got %+v", name, response.Checks[name])
		}
	}
}

func TestReadyzHandler_EventsOptional(t *testing.T) {
	handler := NewHealthHandler(testhelpers.SetupTestDB(t), &mockProvider{}, realPrompts(t), nil)
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if _, ok := decodeReadinessResponse(t, rec).Checks["events"]; ok {
		t.Fatal("events check should be omitted when no broker is configured")
	}
}

func TestReadyzHandler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler *HealthHandler
		failed  string
	}{
		{
			name:    "missing database",
			handler: NewHealthHandler(nil, &mockProvider{}, realPrompts(t), nil),
			failed:  "database",
		},
		{
			name:    "missing provider",
			handler: NewHealthHandler(testhelpers.SetupTestDB(t), nil, realPrompts(t), nil),
			failed:  "provider",
		},
		{
			name:    "no templates",
			handler: NewHealthHandler(testhelpers.SetupTestDB(t), &mockProvider{}, &mockPromptManager{}, nil),
			failed:  "prompt_manager",
		},
		{
			name:    "broker down",
			handler: NewHealthHandler(testhelpers.SetupTestDB(t), &mockProvider{}, realPrompts(t), &mockPinger{err: errors.New("connection refused")}),
			failed:  "events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ReadyzHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected status 503, got %d", rec.Code)
			}
			response := decodeReadinessResponse(t, rec)
			if response.Status != "not_ready" {
				t.Fatalf("expected not_ready, got %s", response.Status)
			}
			if response.Checks[tt.failed].Status != "failed" || response.Checks[tt.failed].Message == "" {
				t.Fatalf("expected %s check to fail, got %+v", tt.failed, response.Checks[tt.failed])
			}
		})
	}
}
