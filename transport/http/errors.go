package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clawcraft/gatekeeper/core"
)

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrSignatureMismatch),
		errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrTestModeDisabled):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotRegistered),
		errors.Is(err, core.ErrNoRegistryConfigured),
		errors.Is(err, core.ErrChallengeNotFound),
		errors.Is(err, core.ErrChallengeExpired),
		errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing text; internal errors are not echoed
func messageFor(err error) string {
	switch {
	case errors.Is(err, core.ErrChallengeNotFound):
		return "Invalid or expired nonce"
	case errors.Is(err, core.ErrChallengeExpired):
		return "Challenge expired"
	case errors.Is(err, core.ErrSignatureMismatch):
		return "Invalid signature"
	case errors.Is(err, core.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, core.ErrTestModeDisabled):
		return "Quick join is only available in test mode"
	case errors.Is(err, core.ErrInvalidToken), errors.Is(err, core.ErrTokenExpired):
		return "Invalid receipt"
	}
	if statusFor(err) == http.StatusInternalServerError {
		return "Internal error"
	}
	return err.Error()
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": messageFor(err),
		"code":  core.Code(err),
	})
}
