package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finrag-go/internal/domain/ports"
)

func TestOllamaAdapter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Raw, "prompt carries its own delimiters, raw mode required")
		assert.False(t, req.Stream)
		assert.Equal(t, 64, req.Options.NumPredict)
		assert.Equal(t, []string{"<end_of_turn>"}, req.Options.Stop)
		require.NotNil(t, req.Options.Temperature)
		assert.Zero(t, *req.Options.Temperature, "explicit zero temperature must survive encoding")

		json.NewEncoder(w).Encode(map[string]any{
			"response": "Hello there!",
			"done":     true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test-model")
	resp, err := adapter.Complete(context.Background(), "Hi", ports.GenerateOptions{
		MaxTokens: 64,
		Stop:      []string{"<end_of_turn>"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello there!", resp)
}

func TestOllamaAdapter_CompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"Hello","done":false}` + "\n"))
		w.Write([]byte(`{"response":" world","done":false}` + "\n"))
		w.Write([]byte(`{"response":"!","done":true}` + "\n"))
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test")
	ch, err := adapter.CompleteStream(context.Background(), "test", ports.GenerateOptions{})
	require.NoError(t, err)

	var tokens []string
	for token := range ch {
		require.NoError(t, token.Error)
		tokens = append(tokens, token.Content)
	}

	assert.Equal(t, []string{"Hello", " world", "!"}, tokens)
}

func TestOllamaAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test")

	_, err := adapter.Complete(context.Background(), "test", ports.GenerateOptions{})
	assert.Error(t, err)

	_, err = adapter.CompleteStream(context.Background(), "test", ports.GenerateOptions{})
	assert.Error(t, err)
}

func TestOllamaAdapter_DefaultValues(t *testing.T) {
	adapter := NewOllamaAdapter("", "")
	assert.Equal(t, "http://localhost:11434", adapter.baseURL)
	assert.Equal(t, "gemma3", adapter.model)
}
