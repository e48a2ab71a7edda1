package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lakshayybhati/liftor-worker/internal/config"
	apperrors "github.com/lakshayybhati/liftor-worker/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAIConfig(endpoint string) config.AIConfig {
	return config.AIConfig{
		APIEndpoint:       endpoint,
		APIKey:            "sk-test",
		Model:             "deepseek-chat",
		Temperature:       0.6,
		ConnectTimeout:    2 * time.Second,
		StreamTimeout:     2 * time.Second,
		SoftCompleteChars: 2000,
		MaxTokensCap:      8192,
	}
}

func sseFrame(content string) string {
	frame := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"delta": map[string]string{"content": content}},
		},
	}
	data, _ := json.Marshal(frame)
	return "data: " + string(data) + "\n\n"
}

func TestGenerateAccumulatesStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.True(t, req.Stream)
		assert.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseFrame(`{"monday": `))
		fmt.Fprint(w, sseFrame(`{"rest": true}}`))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewLLMClient(testAIConfig(server.URL))
	text, err := client.Generate(context.Background(), "system prompt", "user prompt", 2000)
	require.NoError(t, err)
	assert.Equal(t, `{"monday": {"rest": true}}`, text)
}

func TestGenerateMaxTokensClamp(t *testing.T) {
	var gotMaxTokens int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		gotMaxTokens = req.MaxTokens
		fmt.Fprint(w, sseFrame(strings.Repeat("x", 40)))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewLLMClient(testAIConfig(server.URL))

	_, err := client.Generate(context.Background(), "s", "u", 99999)
	require.NoError(t, err)
	assert.Equal(t, 8192, gotMaxTokens)

	_, err = client.Generate(context.Background(), "s", "u", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxTokens, gotMaxTokens)
}

func TestGenerateStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, apperrors.CodeAuth},
		{http.StatusPaymentRequired, apperrors.CodeQuota},
		{http.StatusTooManyRequests, apperrors.CodeRateLimited},
		{http.StatusInternalServerError, apperrors.CodeAI},
		{http.StatusBadRequest, apperrors.CodeAI},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewLLMClient(testAIConfig(server.URL))
			_, err := client.Generate(context.Background(), "s", "u", 1000)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestGenerateShortResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseFrame("ok"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewLLMClient(testAIConfig(server.URL))
	_, err := client.Generate(context.Background(), "s", "u", 1000)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAI, apperrors.CodeOf(err))
}

func TestGenerateStreamTimeoutBelowFloor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, sseFrame("partial"))
		flusher.Flush()
		// Hang past the stream timeout without sending [DONE].
		time.Sleep(600 * time.Millisecond)
	}))
	defer server.Close()

	cfg := testAIConfig(server.URL)
	cfg.StreamTimeout = 150 * time.Millisecond
	client := NewLLMClient(cfg)

	_, err := client.Generate(context.Background(), "s", "u", 1000)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAITimeout, apperrors.CodeOf(err))
}

func TestGenerateStreamTimeoutSoftComplete(t *testing.T) {
	payload := strings.Repeat("a", 64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, sseFrame(payload))
		flusher.Flush()
		time.Sleep(600 * time.Millisecond)
	}))
	defer server.Close()

	cfg := testAIConfig(server.URL)
	cfg.StreamTimeout = 150 * time.Millisecond
	cfg.SoftCompleteChars = 32 // below what the server already sent
	client := NewLLMClient(cfg)

	text, err := client.Generate(context.Background(), "s", "u", 1000)
	require.NoError(t, err)
	assert.Equal(t, payload, text)
}

func TestGenerateSkipsMalformedFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not valid json}\n\n")
		fmt.Fprint(w, sseFrame(strings.Repeat("y", 30)))
		fmt.Fprint(w, ": comment line ignored\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewLLMClient(testAIConfig(server.URL))
	text, err := client.Generate(context.Background(), "s", "u", 1000)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("y", 30), text)
}
