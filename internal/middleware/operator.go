package middleware

import (
	"crypto/subtle"
	"net/http"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

// OperatorKeyHeader carries the shared key for operator endpoints.
const OperatorKeyHeader = "X-Operator-Key"

// RequireOperator guards endpoints that read across candidates. With no key configured
// the endpoints are disabled.
func RequireOperator(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				utils.JSON(w, http.StatusForbidden, models.ErrorResponse{Code: "operator_disabled", Message: "Operator endpoints are disabled"})
				return
			}
			given := r.Header.Get(OperatorKeyHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				unauthorized(w, "invalid_operator_key", "Missing or invalid operator key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
