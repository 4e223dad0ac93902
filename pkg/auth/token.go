package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"sparkchat/pkg/config"
)

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	SigningSecrets map[string]struct{}
}

type ctxUserKey struct{}

// MintToken builds a session token for userID signed with secret. The
// identity service issues these; the server only ever verifies them.
func MintToken(userID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	return userID + "." + hex.EncodeToString(mac.Sum(nil))
}

// VerifyToken checks the token signature against every configured signing
// secret and returns the embedded user id. This is the identity-service
// contract authenticate(token) -> userId.
func VerifyToken(token string, secrets map[string]struct{}) (string, error) {
	i := strings.LastIndex(token, ".")
	if i <= 0 || i == len(token)-1 {
		return "", fmt.Errorf("malformed token")
	}
	userID, sig := token[:i], token[i+1:]
	if len(secrets) == 0 {
		return "", fmt.Errorf("no signing secrets configured")
	}
	for s := range secrets {
		mac := hmac.New(sha256.New, []byte(s))
		mac.Write([]byte(userID))
		expected := hex.EncodeToString(mac.Sum(nil))
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return userID, nil
		}
	}
	return "", fmt.Errorf("invalid token signature")
}

// TokenFromRequest extracts the session token from the Authorization
// header, the X-Auth-Token header, or the `token` query parameter (the
// only channel available to browser websocket clients), in that order.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(strings.ToLower(h), "bearer ") {
			return strings.TrimSpace(h[len("bearer "):])
		}
	}
	if h := strings.TrimSpace(r.Header.Get("X-Auth-Token")); h != "" {
		return h
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate resolves the caller identity for a request using the
// canonical runtime signing secrets.
func Authenticate(r *http.Request) (string, error) {
	tok := TokenFromRequest(r)
	if tok == "" {
		return "", fmt.Errorf("missing token")
	}
	return VerifyToken(tok, config.GetSigningSecrets())
}

// UserIDFromContext returns the authenticated user id or empty string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserID injects the authenticated user id into ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}
