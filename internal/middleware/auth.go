package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

const candidateKey contextKey = "candidate_id"

var (
	ErrMissingAuthHeader = errors.New("missing or invalid Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid claims")
)

// Authenticate resolves the candidate from an HS256 bearer token. Requests without an
// Authorization header continue anonymously; a header carrying a bad token is rejected.
// An empty secret disables authentication entirely.
func Authenticate(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := VerifyToken(r, secret)
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				unauthorized(w, "invalid_token", "Invalid or expired token")
				return
			}
			candidateID, err := CandidateFromClaims(claims)
			if err != nil {
				unauthorized(w, "invalid_token", "Token has no usable subject")
				return
			}

			ctx := WithCandidate(r.Context(), candidateID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCandidate rejects anonymous requests.
func RequireCandidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CandidateFromContext(r.Context()); !ok {
			unauthorized(w, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, code, message string) {
	utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{Code: code, Message: message})
}

// VerifyToken parses and validates the bearer token on r.
func VerifyToken(r *http.Request, secret string) (jwt.MapClaims, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return nil, ErrMissingAuthHeader
	}
	tokenStr := strings.TrimPrefix(authz, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// CandidateFromClaims extracts the "sub" claim as a string.
func CandidateFromClaims(claims jwt.MapClaims) (string, error) {
	sub, ok := claims["sub"]
	if !ok {
		return "", errors.New("missing sub claim")
	}

	switch v := sub.(type) {
	case string:
		if v == "" {
			return "", errors.New("empty sub claim")
		}
		return v, nil
	case float64:
		// JWT numbers get decoded as float64
		return fmt.Sprintf("%d", int64(v)), nil
	default:
		return "", errors.New("invalid sub claim type")
	}
}

func WithCandidate(ctx context.Context, candidateID string) context.Context {
	return context.WithValue(ctx, candidateKey, candidateID)
}

// CandidateFromContext returns the authenticated candidate, if any.
func CandidateFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(candidateKey).(string)
	return id, ok && id != ""
}
