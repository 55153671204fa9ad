package translate

import (
	"context"
	"errors"
	"strings"
)

// isRetryableError checks if a transport error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "timeout")
}

// cleanOutput strips wrapping an LLM sometimes adds around a bare translation
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	// LLMs sometimes return ASS-style \N line breaks
	return strings.ReplaceAll(s, `\N`, "\n")
}
