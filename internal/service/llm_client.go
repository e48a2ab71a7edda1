package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lakshayybhati/liftor-worker/internal/config"
	apperrors "github.com/lakshayybhati/liftor-worker/internal/errors"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	"go.uber.org/zap"
)

// LLMClient issues a chat-completion request and returns the full reply.
type LLMClient interface {
	// Generate sends system+user prompts and accumulates the streamed
	// reply. maxTokensHint is clamped to the configured cap; zero or
	// negative means the default.
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokensHint int) (string, error)
}

const (
	defaultMaxTokens = 4096
	// minResponseChars guards against degenerate replies that cannot
	// possibly hold a JSON payload.
	minResponseChars = 20
	progressInterval = 10 * time.Second
)

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatStreamFrame is one `data: {...}` frame of the stream.
type chatStreamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// deepseekClient streams chat completions from a DeepSeek-compatible
// endpoint. Two timers apply: a connection timer until response headers
// arrive, and a stream timer over the whole body. When the stream timer
// fires with enough text already collected the reply is treated as
// complete-enough rather than failed.
type deepseekClient struct {
	cfg        config.AIConfig
	httpClient *http.Client
}

// NewLLMClient creates the DeepSeek chat-completions client.
func NewLLMClient(cfg config.AIConfig) LLMClient {
	return &deepseekClient{
		cfg: cfg,
		// No client-level timeout: the connect and stream timers govern.
		httpClient: &http.Client{},
	}
}

func (c *deepseekClient) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokensHint int) (string, error) {
	maxTokens := maxTokensHint
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if c.cfg.MaxTokensCap > 0 && maxTokens > c.cfg.MaxTokensCap {
		maxTokens = c.cfg.MaxTokensCap
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   maxTokens,
		Stream:      true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAI, "failed to marshal request")
	}

	url := strings.TrimRight(c.cfg.APIEndpoint, "/") + "/chat/completions"

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAI, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))
	req.Header.Set("Accept", "text/event-stream")

	// Connection timer: cancel if headers do not arrive in time.
	connectTimedOut := false
	connectTimer := time.AfterFunc(c.cfg.ConnectTimeout, func() {
		connectTimedOut = true
		cancel()
	})

	resp, err := c.httpClient.Do(req)
	connectTimer.Stop()
	if err != nil {
		if connectTimedOut {
			return "", apperrors.Newf(apperrors.CodeAITimeout, "no response headers within %s", c.cfg.ConnectTimeout)
		}
		return "", apperrors.Wrap(err, apperrors.CodeAI, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", statusError(resp.StatusCode, string(body))
	}

	// Stream timer: bounds the body read; the soft-complete floor decides
	// whether firing is fatal.
	streamTimedOut := false
	streamTimer := time.AfterFunc(c.cfg.StreamTimeout, func() {
		streamTimedOut = true
		cancel()
	})
	defer streamTimer.Stop()

	text, readErr := c.readStream(resp.Body)

	if streamTimedOut {
		if len(text) >= c.cfg.SoftCompleteChars {
			logger.Warn("llm stream timed out past soft-complete floor, keeping partial reply",
				zap.Int("chars", len(text)))
			return c.checkLength(text)
		}
		return "", apperrors.Newf(apperrors.CodeAITimeout, "stream timed out with %d chars collected", len(text))
	}
	if readErr != nil {
		if ctx.Err() != nil {
			return "", apperrors.Wrap(ctx.Err(), apperrors.CodeAITimeout, "stream cancelled")
		}
		return "", apperrors.Wrap(readErr, apperrors.CodeAI, "stream read failed")
	}

	return c.checkLength(text)
}

// readStream scans SSE frames, accumulating delta content until the
// [DONE] sentinel or the body ends.
func (c *deepseekClient) readStream(body io.Reader) (string, error) {
	var builder strings.Builder
	start := time.Now()
	lastProgress := start

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var frame chatStreamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			// Malformed frames are skipped; the recovery parser deals
			// with whatever the aggregate ends up being.
			continue
		}
		if len(frame.Choices) > 0 {
			builder.WriteString(frame.Choices[0].Delta.Content)
		}

		if time.Since(lastProgress) >= progressInterval {
			lastProgress = time.Now()
			logger.Info("llm stream progress",
				zap.Int("chars", builder.Len()),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		// Keep what was collected; the caller decides based on timers.
		return builder.String(), err
	}
	return builder.String(), nil
}

func (c *deepseekClient) checkLength(text string) (string, error) {
	if len(text) < minResponseChars {
		return "", apperrors.Newf(apperrors.CodeAI, "response too short (%d chars)", len(text))
	}
	return text, nil
}

func statusError(status int, body string) error {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.New(apperrors.CodeAuth, "invalid API key")
	case http.StatusPaymentRequired:
		return apperrors.New(apperrors.CodeQuota, "insufficient balance")
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.CodeRateLimited, "rate limited by provider")
	default:
		return apperrors.Newf(apperrors.CodeAI, "unexpected status %d: %s", status, truncate(body, 200))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
