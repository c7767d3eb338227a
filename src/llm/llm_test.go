package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresEndpointAndModel(t *testing.T) {
	_, err := New(Config{Model: "m"})
	assert.Error(t, err)
	_, err = New(Config{EndpointURL: "http://x/v1/chat/completions"})
	assert.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:1235/v1", BaseURL("http://127.0.0.1:1235/v1/chat/completions"))
	assert.Equal(t, "http://127.0.0.1:1235/v1", BaseURL("http://127.0.0.1:1235/v1/chat/completions/"))
	assert.Equal(t, "http://host/v1", BaseURL("http://host/v1"))
}

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func TestCompleteSendsImageAndText(t *testing.T) {
	var got capturedRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{
		EndpointURL:  srv.URL + "/v1/chat/completions",
		Model:        "qwen3-vl-2b",
		SystemPrompt: "be brief",
		Temperature:  0.5,
		TopP:         0.9,
		MaxTokens:    600,
	})
	require.NoError(t, err)

	out := c.Complete(context.Background(), "iVBORw0KGgo=", "your move")
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "qwen3-vl-2b", got.Model)
	assert.InDelta(t, 0.5, got.Temperature, 1e-6)
	assert.InDelta(t, 0.9, got.TopP, 1e-6)
	assert.Equal(t, 600, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.JSONEq(t, `"be brief"`, string(got.Messages[0].Content))

	var parts []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "your move", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", parts[1].ImageURL.URL)
}

func TestCompleteOmitsEmptyText(t *testing.T) {
	var got capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"x"}}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{EndpointURL: srv.URL + "/v1/chat/completions", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "x", c.Complete(context.Background(), "AAAA", ""))

	var parts []map[string]any
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 1)
	assert.Equal(t, "image_url", parts[0]["type"])
}

func TestCompleteFailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"down"}}`, http.StatusInternalServerError)
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c, err := New(Config{EndpointURL: srv.URL + "/v1/chat/completions", Model: "m"})
			require.NoError(t, err)
			assert.Equal(t, "", c.Complete(context.Background(), "AAAA", "hi"))
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Config{EndpointURL: srv.URL + "/v1/chat/completions", Model: "m", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "", c.Complete(context.Background(), "AAAA", "hi"))
}
