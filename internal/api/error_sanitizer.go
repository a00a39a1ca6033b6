package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/ignite/visitor-insights/internal/assistant"
	"github.com/ignite/visitor-insights/internal/engagement"
	"github.com/ignite/visitor-insights/internal/pkg/httputil"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
	"github.com/ignite/visitor-insights/internal/snapshot"
)

// respondSafeError logs the internal error and sends a sanitized JSON error.
// 5xx responses never include err.Error().
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	if internalErr != nil && code >= 500 {
		logger.Error("api: request failed", "status", code, "message", publicMsg, "error", internalErr)
	}
	if publicMsg == "" {
		publicMsg = safeErrorMessage(code, internalErr)
	}
	httputil.Error(w, code, publicMsg)
}

// respondCodedError is respondSafeError with a machine-readable code.
func respondCodedError(w http.ResponseWriter, status int, code string, internalErr error, publicMsg string) {
	if internalErr != nil && status >= 500 {
		logger.Error("api: request failed", "status", status, "code", code, "error", internalErr)
	}
	httputil.ErrorWithCode(w, status, code, publicMsg)
}

// respondServiceError maps domain errors to status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	var rateLimit *assistant.ErrRateLimit
	var unavailable *assistant.ErrProviderUnavailable
	switch {
	case errors.Is(err, engagement.ErrInvalidArgument), errors.Is(err, assistant.ErrEmptyMessage):
		respondCodedError(w, http.StatusBadRequest, "invalid_argument", err, err.Error())
	case errors.Is(err, snapshot.ErrNoSnapshot):
		respondCodedError(w, http.StatusServiceUnavailable, "snapshot_not_ready", err, "visitor snapshot not ready, retry shortly")
	case errors.As(err, &rateLimit):
		if rateLimit.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateLimit.RetryAfter.Seconds()))))
		}
		respondCodedError(w, http.StatusTooManyRequests, "rate_limited", err, "AI provider rate limit reached, try again shortly")
	case errors.As(err, &unavailable):
		respondCodedError(w, http.StatusBadGateway, "provider_unavailable", err, "AI provider unavailable")
	default:
		respondSafeError(w, http.StatusInternalServerError, err, "")
	}
}

// safeErrorMessage maps internal error patterns to public-safe messages.
// For 4xx the original message is returned.
func safeErrorMessage(code int, internalErr error) string {
	if code < 500 {
		if internalErr != nil {
			return internalErr.Error()
		}
		return "Bad request"
	}

	if internalErr == nil {
		return "internal server error"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Service temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	default:
		return "internal server error"
	}
}
