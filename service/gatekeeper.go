package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/internal/eth"
	"github.com/clawcraft/gatekeeper/ports"
)

// ReceiptTTL is the lifetime of a verification receipt
const ReceiptTTL = time.Hour

// Options holds the operational switches of the gatekeeper
type Options struct {
	AdminKey string // Shared secret for admin overrides; empty disables them
	TestMode bool   // Enables quick-join
}

// StartResult is returned to the agent when a verification starts
type StartResult struct {
	Challenge    core.Challenge
	WalletToSign common.Address
}

// CompleteResult is returned when a verification succeeds
type CompleteResult struct {
	Agent   core.VerifiedAgent
	Receipt string // Empty when no tokenizer is configured
}

// Stats summarizes gatekeeper state for introspection
type Stats struct {
	VerifiedAgents    int            `json:"verifiedAgents"`
	PendingChallenges int            `json:"pendingChallenges"`
	ByMethod          map[string]int `json:"byMethod"`
	ByChain           map[string]int `json:"byChain"`
	ConfiguredChains  []uint64       `json:"configuredChains"`
	TestMode          bool           `json:"testMode"`
}

// Gatekeeper drives the verification state machine:
// Unverified -> PendingChallenge -> Verified
type Gatekeeper struct {
	resolver   ports.IdentityResolver
	challenges *ChallengeStore
	agents     *AgentCache
	tokenizer  ports.Tokenizer
	eventPub   ports.EventPublisher
	clock      ports.Clock
	logger     watermill.LoggerAdapter
	chains     func() []uint64
	opts       Options
}

// NewGatekeeper creates a new gatekeeper service. tokenizer and eventPub may be nil.
func NewGatekeeper(
	resolver ports.IdentityResolver,
	challenges *ChallengeStore,
	agents *AgentCache,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	clock ports.Clock,
	logger watermill.LoggerAdapter,
	opts Options,
) *Gatekeeper {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Gatekeeper{
		resolver:   resolver,
		challenges: challenges,
		agents:     agents,
		tokenizer:  tokenizer,
		eventPub:   eventPub,
		clock:      clock,
		logger:     logger,
		chains:     func() []uint64 { return nil },
		opts:       opts,
	}
}

// WithChains sets the source of configured chain ids reported by Stats
func (g *Gatekeeper) WithChains(chains func() []uint64) *Gatekeeper {
	g.chains = chains
	return g
}

// Start resolves the claimed agent and issues a challenge for its wallet to sign
func (g *Gatekeeper) Start(ctx context.Context, username string, agentID, chainID uint64) (StartResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || agentID == 0 || chainID == 0 {
		return StartResult{}, fmt.Errorf("missing required fields: %w", core.ErrInvalidRequest)
	}
	if !core.ValidUsername(username) {
		return StartResult{}, fmt.Errorf("invalid username %q: %w", username, core.ErrInvalidRequest)
	}

	identity, err := g.resolver.Resolve(ctx, chainID, agentID)
	if err != nil {
		return StartResult{}, fmt.Errorf("on-chain verification failed: %w", err)
	}

	challenge, err := g.challenges.Issue(ctx, username, agentID, chainID)
	if err != nil {
		return StartResult{}, err
	}

	g.logger.Debug("Challenge issued", watermill.LogFields{
		"username": username,
		"agent_id": agentID,
		"chain_id": chainID,
		"wallet":   identity.Wallet.Hex(),
	})

	return StartResult{Challenge: challenge, WalletToSign: identity.Wallet}, nil
}

// Complete consumes the challenge, re-resolves the agent and checks the signature
func (g *Gatekeeper) Complete(ctx context.Context, nonce, signature string) (CompleteResult, error) {
	if nonce == "" || signature == "" {
		return CompleteResult{}, fmt.Errorf("missing nonce or signature: %w", core.ErrInvalidRequest)
	}

	challenge, err := g.challenges.Consume(ctx, nonce)
	if err != nil {
		return CompleteResult{}, err
	}

	// On-chain state may have changed since Start; resolve again
	identity, err := g.resolver.Resolve(ctx, challenge.ChainID, challenge.AgentID)
	if err != nil {
		// A transient outage must not cost the agent its challenge
		if errors.Is(err, core.ErrUpstreamUnavailable) {
			if rerr := g.challenges.Restore(ctx, challenge); rerr != nil {
				g.logger.Error("Failed to restore challenge", rerr, watermill.LogFields{"username": challenge.Username})
			}
		}
		return CompleteResult{}, fmt.Errorf("on-chain verification failed: %w", err)
	}

	message := core.ChallengeMessage(challenge.Username, challenge.AgentID, challenge.ChainID, challenge.Nonce, challenge.IssuedAt)
	sig, err := eth.DecodeSignature(signature)
	if err != nil || !eth.VerifyPersonalSignature(message, sig, identity.Wallet) {
		g.logger.Info("Signature mismatch", watermill.LogFields{
			"username": challenge.Username,
			"agent_id": challenge.AgentID,
			"wallet":   identity.Wallet.Hex(),
		})
		return CompleteResult{}, core.ErrSignatureMismatch
	}

	agent := core.VerifiedAgent{
		Username:     challenge.Username,
		AgentID:      challenge.AgentID,
		ChainID:      challenge.ChainID,
		Wallet:       identity.Wallet,
		VerifiedAt:   g.clock.Now(),
		Method:       core.MethodOnChain,
		Registration: identity.Registration,
	}
	if err := g.record(ctx, agent); err != nil {
		return CompleteResult{}, err
	}

	result := CompleteResult{Agent: agent}
	if g.tokenizer != nil {
		receipt := &core.Receipt{
			ID:        uuid.New().String(),
			Username:  agent.Username,
			AgentID:   agent.AgentID,
			ChainID:   agent.ChainID,
			Wallet:    agent.Wallet,
			IssuedAt:  agent.VerifiedAt,
			ExpiresAt: agent.VerifiedAt.Add(ReceiptTTL),
		}
		token, err := g.tokenizer.ReceiptToToken(receipt)
		if err != nil {
			// The binding is already stored; a missing receipt is not fatal
			g.logger.Error("Failed to mint receipt", err, watermill.LogFields{"username": agent.Username})
		} else {
			result.Receipt = token
		}
	}

	return result, nil
}

// Status returns the fresh binding for username, if any
func (g *Gatekeeper) Status(ctx context.Context, username string) (core.VerifiedAgent, bool, error) {
	return g.agents.Get(ctx, username)
}

// AdminWhitelist writes a binding without resolution or signature checks
func (g *Gatekeeper) AdminWhitelist(ctx context.Context, adminKey, username string, agentID, chainID uint64) (core.VerifiedAgent, error) {
	if g.opts.AdminKey == "" || subtle.ConstantTimeCompare([]byte(adminKey), []byte(g.opts.AdminKey)) != 1 {
		return core.VerifiedAgent{}, core.ErrUnauthorized
	}
	username = strings.TrimSpace(username)
	if !core.ValidUsername(username) {
		return core.VerifiedAgent{}, fmt.Errorf("invalid username %q: %w", username, core.ErrInvalidRequest)
	}

	registration, _ := json.Marshal(map[string]string{
		"name":        username,
		"description": "Manually whitelisted",
	})
	agent := core.VerifiedAgent{
		Username:     username,
		AgentID:      agentID,
		ChainID:      chainID,
		VerifiedAt:   g.clock.Now(),
		Method:       core.MethodAdminOverride,
		Registration: registration,
	}
	if err := g.record(ctx, agent); err != nil {
		return core.VerifiedAgent{}, err
	}
	return agent, nil
}

// QuickJoin whitelists username without any verification. Test mode only.
func (g *Gatekeeper) QuickJoin(ctx context.Context, username string) (core.VerifiedAgent, error) {
	if !g.opts.TestMode {
		return core.VerifiedAgent{}, core.ErrTestModeDisabled
	}
	username = strings.TrimSpace(username)
	if !core.ValidUsername(username) {
		return core.VerifiedAgent{}, fmt.Errorf("invalid username %q: %w", username, core.ErrInvalidRequest)
	}

	agent := core.VerifiedAgent{
		Username:   username,
		VerifiedAt: g.clock.Now(),
		Method:     core.MethodTestMode,
	}
	if err := g.record(ctx, agent); err != nil {
		return core.VerifiedAgent{}, err
	}
	return agent, nil
}

// Agents lists all fresh bindings
func (g *Gatekeeper) Agents(ctx context.Context) ([]core.VerifiedAgent, error) {
	return g.agents.List(ctx)
}

// Stats summarizes the verified set and pending challenges
func (g *Gatekeeper) Stats(ctx context.Context) (Stats, error) {
	agents, err := g.agents.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	pending, err := g.challenges.Pending(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		VerifiedAgents:    len(agents),
		PendingChallenges: pending,
		ByMethod:          map[string]int{},
		ByChain:           map[string]int{},
		ConfiguredChains:  g.chains(),
		TestMode:          g.opts.TestMode,
	}
	for _, a := range agents {
		stats.ByMethod[string(a.Method)]++
		if a.ChainID != 0 {
			stats.ByChain[fmt.Sprint(a.ChainID)]++
		}
	}
	if stats.ConfiguredChains == nil {
		stats.ConfiguredChains = []uint64{}
	}
	sort.Slice(stats.ConfiguredChains, func(i, j int) bool { return stats.ConfiguredChains[i] < stats.ConfiguredChains[j] })
	return stats, nil
}

// VerifyReceipt decodes a receipt minted by Complete
func (g *Gatekeeper) VerifyReceipt(token string) (*core.Receipt, error) {
	if g.tokenizer == nil {
		return nil, core.ErrInvalidToken
	}
	receipt, err := g.tokenizer.TokenToReceipt(token)
	if err != nil {
		return nil, err
	}
	if g.clock.Now().After(receipt.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	return receipt, nil
}

// record stores the binding and announces it
func (g *Gatekeeper) record(ctx context.Context, agent core.VerifiedAgent) error {
	if err := g.agents.Put(ctx, agent); err != nil {
		return err
	}

	g.logger.Info("Agent verified", watermill.LogFields{
		"username": agent.Username,
		"agent_id": agent.AgentID,
		"chain_id": agent.ChainID,
		"method":   string(agent.Method),
	})

	if g.eventPub == nil {
		return nil
	}
	event := core.VerifiedEvent{
		Username:   agent.Username,
		AgentID:    agent.AgentID,
		ChainID:    agent.ChainID,
		Wallet:     agent.Wallet.Hex(),
		Method:     agent.Method,
		VerifiedAt: agent.VerifiedAt,
	}
	if err := g.eventPub.PublishVerified(ctx, event); err != nil {
		// The binding is stored, which is the critical part
		g.logger.Error("Failed to publish verified event", err, watermill.LogFields{"username": agent.Username})
	}
	return nil
}
