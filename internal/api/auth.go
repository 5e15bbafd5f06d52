package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// User is the identity returned by the token verification service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenVerifier resolves a bearer token to a user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

type userKey struct{}

// UserFromContext returns the user set by Authorization, if any.
func UserFromContext(ctx context.Context) User {
	u, _ := ctx.Value(userKey{}).(User)
	return u
}

// Authorization requires a bearer token that the verifier accepts.
func Authorization(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.Contains(header, "Bearer ") {
				respondWithError(w, http.StatusUnauthorized, "Please provide jwt in Authorization header")
				return
			}
			token := strings.TrimSpace(strings.SplitN(header, "Bearer ", 2)[1])
			if token == "" {
				respondWithError(w, http.StatusUnauthorized, `No Bearer token supplied. Please add an "Authorization" header with value "Bearer <access_token>"`)
				return
			}

			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Warn("Token verification failed", "error", err)
				respondWithError(w, http.StatusUnauthorized, "Your token could not be verified")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

// RemoteVerifier checks tokens against the remote verification endpoint.
type RemoteVerifier struct {
	url    string
	client *http.Client
}

// NewRemoteVerifier creates a RemoteVerifier for url.
func NewRemoteVerifier(url string) *RemoteVerifier {
	return &RemoteVerifier{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

// Verify forwards token to the verification endpoint.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return User{}, fmt.Errorf("verify returned status %d", resp.StatusCode)
	}

	var body struct {
		UserID json.RawMessage `json:"userId"`
		Email  string          `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return User{}, fmt.Errorf("decoding verify response: %w", err)
	}
	id := strings.Trim(string(body.UserID), `"`)
	if id == "" || id == "null" {
		return User{}, errors.New("verify response has no userId")
	}
	return User{ID: id, Email: body.Email}, nil
}
