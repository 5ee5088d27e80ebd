package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGenerateUsesChatEndpointWithImages(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{\"titel\":\"Suppe\"}"},"done":true,"eval_count":12}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Model: "llava", Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	out, err := c.Generate(context.Background(), outbound.ModelRequest{
		Prompt:      "rezept",
		Media:       &outbound.InlineMedia{MIMEType: "image/jpeg", Data: []byte("abc")},
		Temperature: 0.1,
		MaxTokens:   64,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"titel":"Suppe"}`, out)

	assert.False(t, got.Stream)
	assert.Equal(t, "llava", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, []string{"YWJj"}, got.Messages[0].Images)
	assert.Equal(t, 64, got.Options.NumPredict)
}

func TestGenerateMapsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "llava", Timeout: time.Second}, zaptest.NewLogger(t))
	_, err := c.Generate(context.Background(), outbound.ModelRequest{Prompt: "x"})

	var upstream *outbound.UpstreamStatusError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "llava", Timeout: time.Second}, zaptest.NewLogger(t))
	assert.NoError(t, c.Ping(context.Background()))
}
