package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMailerSend(t *testing.T) {
	t.Run("posts the message form", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "api", user)
			assert.Equal(t, "key-123", pass)

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "orders@mealcourt.example", r.Form.Get("from"))
			assert.Equal(t, "jo@example.com", r.Form.Get("to"))
			assert.Equal(t, "Your order is confirmed", r.Form.Get("subject"))
			assert.Contains(t, r.Form.Get("text"), "12.00")

			w.Write([]byte(`{"id":"msg-1"}`))
		}))
		defer srv.Close()

		m := NewHTTPMailer(srv.URL, "key-123", "orders@mealcourt.example")
		err := m.Send(context.Background(), "jo@example.com", "Your order is confirmed", "Your payment of 12.00 went through.")
		assert.NoError(t, err)
	})

	t.Run("non-2xx is an error with the API message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Forbidden"}`))
		}))
		defer srv.Close()

		m := NewHTTPMailer(srv.URL, "wrong-key", "orders@mealcourt.example")
		err := m.Send(context.Background(), "jo@example.com", "subject", "body")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Contains(t, err.Error(), "Forbidden")
	})
}
