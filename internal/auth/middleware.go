package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrMalformedHeader is returned for an Authorization header that is not a
// bearer token.
var ErrMalformedHeader = errors.New("invalid authorization format")

// TokenSource pulls the raw token out of a request.
type TokenSource func(r *http.Request) (string, error)

// BearerToken reads the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrMalformedHeader
	}
	return token, nil
}

// QueryToken reads the token from the ?token= parameter. Browsers cannot set
// headers on a WebSocket handshake.
func QueryToken(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Authenticate extracts a token with src and returns the player it names.
func (m *JWTManager) Authenticate(r *http.Request, src TokenSource) (string, error) {
	token, err := src(r)
	if err != nil {
		return "", err
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.PlayerID, nil
}

// WriteError writes a 401 JSON body for an authentication failure.
func WriteError(w http.ResponseWriter, err error) {
	msg := ErrInvalidToken.Error()
	if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrMalformedHeader) {
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}` + "\n"))
}

// Middleware rejects requests without a valid bearer token and stores the
// player ID in the request context.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			playerID, err := jwtMgr.Authenticate(r, BearerToken)
			if err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPlayerID(r.Context(), playerID)))
		})
	}
}

type contextKey string

const playerIDKey contextKey = "player_id"

// WithPlayerID returns a context carrying the authenticated player ID.
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerIDKey, playerID)
}

// PlayerIDFromContext extracts the authenticated player ID from the request context.
func PlayerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(playerIDKey).(string)
	return id
}
