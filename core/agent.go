package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Method records how a username came to be verified.
type Method string

const (
	MethodOnChain       Method = "on-chain"
	MethodAdminOverride Method = "admin-override"
	MethodTestMode      Method = "test-mode"
)

const (
	// ChallengeTTL is how long an issued challenge may be completed
	ChallengeTTL = 5 * time.Minute

	// VerificationTTL is how long a verified binding stays fresh
	VerificationTTL = 24 * time.Hour
)

// Challenge represents a pending verification awaiting a signature
type Challenge struct {
	Nonce    string    `json:"nonce"`    // 0x-prefixed random token, used once
	Username string    `json:"username"` // Minecraft username as claimed
	AgentID  uint64    `json:"agentId"`
	ChainID  uint64    `json:"chainId"`
	IssuedAt time.Time `json:"issuedAt"`
	Message  string    `json:"message"` // Text the agent wallet must sign
}

// ExpiresAt returns the end of the challenge validity window
func (c Challenge) ExpiresAt() time.Time {
	return c.IssuedAt.Add(ChallengeTTL)
}

// VerifiedAgent is a username bound to an agent identity
type VerifiedAgent struct {
	Username     string          `json:"username"`
	AgentID      uint64          `json:"agentId"`
	ChainID      uint64          `json:"chainId"`
	Wallet       common.Address  `json:"wallet"`
	VerifiedAt   time.Time       `json:"verifiedAt"`
	Method       Method          `json:"method"`
	Registration json.RawMessage `json:"registrationData,omitempty"`
}

// Key is the cache key for the binding: the lower-cased username
func (a VerifiedAgent) Key() string {
	return NormalizeUsername(a.Username)
}

// Stale reports whether the binding is older than VerificationTTL at now
func (a VerifiedAgent) Stale(now time.Time) bool {
	return now.Sub(a.VerifiedAt) >= VerificationTTL
}

// Name returns the registration document name, or the username if absent
func (a VerifiedAgent) Name() string {
	if len(a.Registration) > 0 {
		var doc struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(a.Registration, &doc); err == nil && doc.Name != "" {
			return doc.Name
		}
	}
	return a.Username
}

// AgentIdentity is an agent id resolved against a registry on one chain
type AgentIdentity struct {
	AgentID         uint64
	ChainID         uint64
	Owner           common.Address
	Wallet          common.Address // Address that must sign challenges
	RegistrationURI string
	Registration    json.RawMessage // nil when the document could not be fetched
}

// WhitelistEntry is one record in the game server's whitelist file
type WhitelistEntry struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// VerifiedEvent is published whenever a binding is written
type VerifiedEvent struct {
	Username   string    `json:"username"`
	AgentID    uint64    `json:"agentId"`
	ChainID    uint64    `json:"chainId"`
	Wallet     string    `json:"wallet"`
	Method     Method    `json:"method"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// Receipt attests a successful on-chain verification
type Receipt struct {
	ID        string
	Username  string
	AgentID   uint64
	ChainID   uint64
	Wallet    common.Address
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// ValidUsername reports whether username is a legal Minecraft player name
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// NormalizeUsername folds a username to its case-insensitive key
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ChallengeMessage builds the exact text signed by the agent wallet.
// Both issuing and verifying a challenge go through this function.
func ChallengeMessage(username string, agentID, chainID uint64, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"ClawCraft Agent Verification\n\nMinecraft Username: %s\nAgent ID: %d\nChain ID: %d\nNonce: %s\nTimestamp: %d",
		username, agentID, chainID, nonce, issuedAt.UnixMilli(),
	)
}
