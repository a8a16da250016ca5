package core

import "errors"

var (
	ErrNotRegistered        = errors.New("agent is not registered")
	ErrNoRegistryConfigured = errors.New("no registry configured for chain")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrChallengeNotFound    = errors.New("invalid or unknown nonce")
	ErrChallengeExpired     = errors.New("challenge expired")
	ErrSignatureMismatch    = errors.New("invalid signature")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTestModeDisabled     = errors.New("quick-join is only available in test mode")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrNotFound             = errors.New("not found")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrWhitelistCorrupt     = errors.New("whitelist file is corrupt")
)

// Code returns the taxonomy name reported to clients for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotRegistered):
		return "NotRegistered"
	case errors.Is(err, ErrNoRegistryConfigured):
		return "NoRegistryConfigured"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	case errors.Is(err, ErrChallengeNotFound):
		return "ChallengeNotFound"
	case errors.Is(err, ErrChallengeExpired):
		return "ChallengeExpired"
	case errors.Is(err, ErrSignatureMismatch):
		return "SignatureMismatch"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrTestModeDisabled):
		return "TestModeDisabled"
	case errors.Is(err, ErrInvalidRequest):
		return "InvalidRequest"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return "InvalidReceipt"
	default:
		return "Internal"
	}
}
