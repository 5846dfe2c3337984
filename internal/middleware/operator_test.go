package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireOperator(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		configured string
		given      string
		status     int
		code       string
	}{
		{name: "matching key", configured: "ops-key", given: "ops-key", status: http.StatusOK},
		{name: "missing key", configured: "ops-key", status: http.StatusUnauthorized, code: "invalid_operator_key"},
		{name: "wrong key", configured: "ops-key", given: "ops-kez", status: http.StatusUnauthorized, code: "invalid_operator_key"},
		{name: "not configured", given: "anything", status: http.StatusForbidden, code: "operator_disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/transcripts/stats", nil)
			if tt.given != "" {
				req.Header.Set(OperatorKeyHeader, tt.given)
			}
			rec := httptest.NewRecorder()
			RequireOperator(tt.configured)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.code != "" {
				if got := decodeError(t, rec).Code; got != tt.code {
					t.Fatalf("expected code %s, got %s", tt.code, got)
				}
			}
		})
	}
}
