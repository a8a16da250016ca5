package core

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChallengeMessage(t *testing.T) {
	issuedAt := time.UnixMilli(1735689600123)
	msg := ChallengeMessage("Bob", 42, 8453, "0xabc", issuedAt)

	assert.Equal(t,
		"ClawCraft Agent Verification\n\nMinecraft Username: Bob\nAgent ID: 42\nChain ID: 8453\nNonce: 0xabc\nTimestamp: 1735689600123",
		msg)
	assert.Equal(t, msg, ChallengeMessage("Bob", 42, 8453, "0xabc", issuedAt))
}

func TestVerifiedAgent(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	a := VerifiedAgent{Username: " Bob ", VerifiedAt: now}

	assert.Equal(t, "bob", a.Key())
	assert.False(t, a.Stale(now.Add(23*time.Hour)))
	assert.True(t, a.Stale(now.Add(25*time.Hour)))

	assert.Equal(t, " Bob ", a.Name())
	a.Registration = json.RawMessage(`{"name":"Builder Bob"}`)
	assert.Equal(t, "Builder Bob", a.Name())
	a.Registration = json.RawMessage(`not json`)
	assert.Equal(t, " Bob ", a.Name())
}

func TestCode(t *testing.T) {
	tests := map[error]string{
		ErrNotRegistered:        "NotRegistered",
		ErrNoRegistryConfigured: "NoRegistryConfigured",
		ErrUpstreamUnavailable:  "UpstreamUnavailable",
		ErrChallengeNotFound:    "ChallengeNotFound",
		ErrChallengeExpired:     "ChallengeExpired",
		ErrSignatureMismatch:    "SignatureMismatch",
		ErrUnauthorized:         "Unauthorized",
		ErrTestModeDisabled:     "TestModeDisabled",
		ErrInvalidRequest:       "InvalidRequest",
		ErrTokenExpired:         "InvalidReceipt",
		ErrNotFound:             "Internal",
	}
	for err, want := range tests {
		assert.Equal(t, want, Code(err), err.Error())
		assert.Equal(t, want, Code(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

func TestValidUsername(t *testing.T) {
	for _, name := range []string{"Bob", "bob_the_agent", "A1_", "abcdefghijklmnop"} {
		assert.True(t, ValidUsername(name), name)
	}
	for _, name := range []string{"", "ab", "abcdefghijklmnopq", "Bob\nAgent ID: 1", "Bob\x00", "bob smith", "böb", "bob-1"} {
		assert.False(t, ValidUsername(name), name)
	}
}
