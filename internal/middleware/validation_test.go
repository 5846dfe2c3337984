package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"peerprep/interview/internal/models"
)

type mockRequest struct {
	Value string `json:"value"`
}

func (m *mockRequest) Validate() error {
	switch m.Value {
	case "error_response":
		return &models.ErrorResponse{Code: "invalid_value", Message: "value is invalid"}
	case "generic_error":
		return errors.New("failed")
	default:
		return nil
	}
}

func serve(t *testing.T, body string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	handler := ValidateRequest[*mockRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		req := GetValidatedRequest[*mockRequest](r)
		if req.Value != "ok" {
			t.Fatalf("expected value ok, got %s", req.Value)
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, called
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp
}

func TestValidateRequestSuccess(t *testing.T) {
	rec, called := serve(t, `{"value":"ok"}`)

	if !called {
		t.Fatal("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestValidateRequestInvalidJSON(t *testing.T) {
	rec, called := serve(t, `{`)

	if called {
		t.Fatal("handler should not run for invalid json")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "invalid_json" {
		t.Fatalf("expected invalid_json code, got %s", resp.Code)
	}
}

func TestValidateRequestBodyTooLarge(t *testing.T) {
	body := `{"value":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	rec, called := serve(t, body)

	if called {
		t.Fatal("handler should not run for oversized body")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestValidateRequestValidationErrors(t *testing.T) {
	t.Run("error response", func(t *testing.T) {
		rec, _ := serve(t, `{"value":"error_response"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for validation error, got %d", rec.Code)
		}
		if resp := decodeError(t, rec); resp.Code != "invalid_value" {
			t.Fatalf("expected invalid_value code, got %s", resp.Code)
		}
	})

	t.Run("generic error", func(t *testing.T) {
		rec, _ := serve(t, `{"value":"generic_error"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for generic validation error, got %d", rec.Code)
		}
		resp := decodeError(t, rec)
		if resp.Code != "validation_error" || resp.Message != "failed" {
			t.Fatalf("unexpected error body: %+v", resp)
		}
	})
}

func TestValidateRequestWithRealModel(t *testing.T) {
	var got *models.FeedbackRequest
	handler := ValidateRequest[*models.FeedbackRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetValidatedRequest[*models.FeedbackRequest](r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewBufferString(`{"session_id":" s1 ","answer":" hash maps "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got == nil || got.SessionID != "s1" || got.Answer != "hash maps" {
		t.Fatalf("expected trimmed request, got %+v", got)
	}
}
