package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("posts an escaped body", func(t *testing.T) {
		var got payload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer relay-token", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		s := NewSender(server.URL, "relay-token", "team@example.com", "")
		err := s.Send(ctx, Message{Subject: "Weekly standup week ending 2026-10-15", Body: "a < b & \"c\""})

		require.NoError(t, err)
		assert.Equal(t, "team@example.com", got.To)
		assert.Equal(t, "team@example.com", got.From)
		assert.Equal(t, "Weekly standup week ending 2026-10-15", got.Subject)
		assert.Equal(t, `<pre style="white-space: pre-wrap; font-family: sans-serif;">a &lt; b &amp; &#34;c&#34;</pre>`, got.Body)
	})

	t.Run("skips without a token or recipient", func(t *testing.T) {
		assert.ErrorIs(t, NewSender("http://unused", "", "team@example.com", "").Send(ctx, Message{}), ErrNotConfigured)
		assert.ErrorIs(t, NewSender("http://unused", "tok", "", "").Send(ctx, Message{}), ErrNotConfigured)
	})

	t.Run("maps 401 to ErrUnauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		err := NewSender(server.URL, "bad", "team@example.com", "").Send(ctx, Message{Body: "x"})

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("reports other failures", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		err := NewSender(server.URL, "tok", "team@example.com", "").Send(ctx, Message{Body: "x"})

		assert.ErrorContains(t, err, "status 502")
	})
}
