package infobip

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycbridge/internal/notify"
)

func TestClient_Send(t *testing.T) {
	t.Run("posts whatsapp text with app key", func(t *testing.T) {
		var got textMessage
		var gotReq *http.Request
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReq = r.Clone(context.Background())
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"messageId":"m-1"}`))
		}))
		defer srv.Close()

		c := New(srv.URL+"/", "api-key", "447860099299")
		err := c.Send(context.Background(), notify.Message{RecipientHandle: "+5511999990000", Body: "Aprovado"})
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, gotReq.Method)
		assert.Equal(t, "/whatsapp/1/message/text", gotReq.URL.Path)
		assert.Equal(t, "App api-key", gotReq.Header.Get("Authorization"))
		assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", gotReq.Header.Get("Accept"))
		assert.Equal(t, "447860099299", got.From)
		assert.Equal(t, "5511999990000", got.To)
		assert.Equal(t, "Aprovado", got.Content.Text)
	})

	t.Run("unconfigured client is a no-op", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		for _, c := range []*Client{
			New("", "key", "sender"),
			New(srv.URL, "", "sender"),
			New(srv.URL, "key", ""),
		} {
			assert.ErrorIs(t, c.Send(context.Background(), notify.Message{RecipientHandle: "+1", Body: "x"}), notify.ErrNotConfigured)
		}
		assert.False(t, called)
	})

	t.Run("non-2xx returns status error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"requestError":{}}`))
		}))
		defer srv.Close()

		err := New(srv.URL, "key", "sender").Send(context.Background(), notify.Message{RecipientHandle: "+1", Body: "x"})
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	})

	t.Run("bounded timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c := New(srv.URL, "key", "sender", WithTimeout(50*time.Millisecond))
		err := c.Send(context.Background(), notify.Message{RecipientHandle: "+1", Body: "x"})
		require.Error(t, err)
	})
}

func TestNormalizeRecipient(t *testing.T) {
	assert.Equal(t, "5511999990000", NormalizeRecipient("+5511999990000"))
	assert.Equal(t, "5511999990000", NormalizeRecipient(" 5511999990000 "))
}
