package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/sports-scheduling/clients"
)

type contextKey string

const userContextKey contextKey = "user"

// Claims: полезная нагрузка токена, выпущенного identity-service.
type Claims struct {
	RegNumber string `json:"reg_number"`
	FullName  string `json:"full_name,omitempty"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// ParseToken verifies an HS256 token and returns its claims.
func (a *Authenticator) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if strings.TrimSpace(claims.RegNumber) == "" {
		return nil, errors.New("token has no reg_number")
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// Authenticate requires a valid bearer token, stores its claims in the context and forwards
// the raw token to collaborator gateways.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Access token required. Please login first.")
			return
		}
		claims, err := a.ParseToken(raw)
		if err != nil {
			a.logger.Debug("token verification failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			writeError(w, http.StatusForbidden, "Invalid or expired token. Please login again.")
			return
		}

		ctx := WithClaims(r.Context(), claims)
		ctx = clients.WithBearerToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClaims stores authenticated claims; handlers read them back with GetRegNumberFromContext.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": message})
}
