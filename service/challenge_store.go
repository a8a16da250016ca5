package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

const challengePrefix = "challenge:"

// ChallengeStore issues and consumes one-time verification challenges
type ChallengeStore struct {
	store ports.Store
	clock ports.Clock
	ttl   time.Duration
}

// NewChallengeStore creates a challenge store with the default 5 minute window
func NewChallengeStore(store ports.Store, clock ports.Clock) *ChallengeStore {
	return &ChallengeStore{
		store: store,
		clock: clock,
		ttl:   core.ChallengeTTL,
	}
}

// Issue creates a challenge for the claim and evicts challenges past their window
func (s *ChallengeStore) Issue(ctx context.Context, username string, agentID, chainID uint64) (core.Challenge, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.clock.Now()
	s.evictExpired(ctx, now)

	issuedAt := now.Truncate(time.Millisecond)
	nonce := hexutil.Encode(nonceBytes)
	challenge := core.Challenge{
		Nonce:    nonce,
		Username: username,
		AgentID:  agentID,
		ChainID:  chainID,
		IssuedAt: issuedAt,
		Message:  core.ChallengeMessage(username, agentID, chainID, nonce, issuedAt),
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to encode challenge: %w", err)
	}
	// The store TTL outlives the window so an expired consume is reported as
	// expired rather than unknown
	if err := s.store.Put(ctx, challengePrefix+nonce, payload, 2*s.ttl); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// Consume removes the challenge for nonce and returns it if still valid.
// Removal happens before the expiry check: an expired nonce gets no second chance.
func (s *ChallengeStore) Consume(ctx context.Context, nonce string) (core.Challenge, error) {
	payload, err := s.store.Take(ctx, challengePrefix+nonce)
	if errors.Is(err, core.ErrNotFound) {
		return core.Challenge{}, core.ErrChallengeNotFound
	}
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return core.Challenge{}, core.ErrChallengeNotFound
	}

	if s.clock.Now().Sub(challenge.IssuedAt) > s.ttl {
		return core.Challenge{}, core.ErrChallengeExpired
	}
	return challenge, nil
}

// Restore puts back a challenge returned by Consume, keeping its original
// issue time. It is a no-op once the challenge is outside its window.
func (s *ChallengeStore) Restore(ctx context.Context, challenge core.Challenge) error {
	age := s.clock.Now().Sub(challenge.IssuedAt)
	if age > s.ttl {
		return nil
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}
	if err := s.store.Put(ctx, challengePrefix+challenge.Nonce, payload, 2*s.ttl-age); err != nil {
		return fmt.Errorf("failed to restore challenge: %w", err)
	}
	return nil
}

// Pending counts challenges still inside their validity window
func (s *ChallengeStore) Pending(ctx context.Context) (int, error) {
	now := s.clock.Now()
	count := 0
	err := s.store.Scan(ctx, challengePrefix, func(_ string, value []byte) error {
		var challenge core.Challenge
		if json.Unmarshal(value, &challenge) == nil && now.Sub(challenge.IssuedAt) <= s.ttl {
			count++
		}
		return nil
	})
	return count, err
}

func (s *ChallengeStore) evictExpired(ctx context.Context, now time.Time) {
	_ = s.store.Scan(ctx, challengePrefix, func(key string, value []byte) error {
		var challenge core.Challenge
		if err := json.Unmarshal(value, &challenge); err != nil || now.Sub(challenge.IssuedAt) > s.ttl {
			return s.store.Delete(ctx, key)
		}
		return nil
	})
}
