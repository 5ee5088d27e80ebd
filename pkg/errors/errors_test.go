package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeValidationFailed, http.StatusBadRequest},
		{CodeQuotaExceeded, http.StatusTooManyRequests},
		{CodeUpstreamRateLimited, http.StatusTooManyRequests},
		{CodeUpstreamUnavailable, http.StatusServiceUnavailable},
		{CodeMalformedOutput, http.StatusUnprocessableEntity},
		{CodeStageExpired, http.StatusGone},
		{CodeForbidden, http.StatusForbidden},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, NewAppError(tt.code, "m", "").StatusCode())
		})
	}
}

func TestLocalize(t *testing.T) {
	err := NewQuotaExceededError("guest", 5)

	assert.Equal(t, "Du hast dein tägliches Importlimit erreicht.", err.Localize("de-DE,de;q=0.9"))
	assert.Equal(t, "You have reached your daily import limit.", err.Localize("en"))
	assert.Equal(t, "You have reached your daily import limit.", err.Localize("fr"))
	assert.Equal(t, 0, err.Metadata["remaining"])
}

func TestIsAndGetCodeThroughWrapping(t *testing.T) {
	base := NewRateLimitedError("vision model", fmt.Errorf("status 429"))
	wrapped := fmt.Errorf("source 2: %w", base)

	assert.True(t, Is(wrapped, CodeUpstreamRateLimited))
	assert.Equal(t, CodeUpstreamRateLimited, GetCode(wrapped))
	assert.Equal(t, CodeInternal, GetCode(fmt.Errorf("plain")))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.True(t, appErr.Transient())
}

func TestWrapKeepsAppError(t *testing.T) {
	original := NewMalformedOutputError(nil)
	assert.Same(t, original, Wrap(fmt.Errorf("ctx: %w", original), "ignored"))
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Equal(t, CodeInternal, Wrap(fmt.Errorf("boom"), "failed").Code)
}
