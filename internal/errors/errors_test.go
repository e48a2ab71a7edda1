package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(CodeAITimeout, "stream timed out")
	assert.Equal(t, "AI_TIMEOUT: stream timed out", err.Error())

	wrapped := Wrap(errors.New("connection reset"), CodeAI, "request failed")
	assert.Equal(t, "AI_ERROR: request failed: connection reset", wrapped.Error())
}

func TestCodeOfAppError(t *testing.T) {
	assert.Equal(t, CodeRateLimited, CodeOf(New(CodeRateLimited, "slow down")))

	// Wrapped AppErrors are found through the chain.
	outer := fmt.Errorf("outer context: %w", New(CodeJSONParse, "bad json"))
	assert.Equal(t, CodeJSONParse, CodeOf(outer))
}

func TestCodeOfPlainErrorFirstColonRule(t *testing.T) {
	assert.Equal(t, "AI_TIMEOUT", CodeOf(errors.New("AI_TIMEOUT: stream timed out with 500 chars")))
	assert.Equal(t, "JSON_PARSE_ERROR", CodeOf(errors.New("JSON_PARSE_ERROR: unable to repair")))
}

func TestCodeOfFallsBackToUnexpected(t *testing.T) {
	assert.Equal(t, CodeUnexpected, CodeOf(errors.New("something broke without a token")))
	assert.Equal(t, CodeUnexpected, CodeOf(errors.New("no colon here")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestIs(t *testing.T) {
	assert.True(t, Is(New(CodeDB, "query failed"), CodeDB))
	assert.False(t, Is(New(CodeDB, "query failed"), CodeAI))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("inner")
	assert.ErrorIs(t, Wrap(inner, CodeDB, "db"), inner)
}
