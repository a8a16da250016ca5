package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

const agentPrefix = "agent:"

// AgentCache holds verified username bindings with a read-time freshness check
type AgentCache struct {
	store ports.Store
	clock ports.Clock
	ttl   time.Duration
}

// NewAgentCache creates a cache with the default 24 hour freshness window
func NewAgentCache(store ports.Store, clock ports.Clock) *AgentCache {
	return &AgentCache{
		store: store,
		clock: clock,
		ttl:   core.VerificationTTL,
	}
}

// Put writes the binding, replacing any previous one for the same username
func (c *AgentCache) Put(ctx context.Context, agent core.VerifiedAgent) error {
	payload, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("failed to encode agent: %w", err)
	}
	// No store TTL: staleness is decided on read against the cache clock
	if err := c.store.Put(ctx, agentPrefix+agent.Key(), payload, 0); err != nil {
		return fmt.Errorf("failed to store agent: %w", err)
	}
	return nil
}

// Get returns the fresh binding for username. Stale bindings are deleted and reported absent.
func (c *AgentCache) Get(ctx context.Context, username string) (core.VerifiedAgent, bool, error) {
	key := agentPrefix + core.NormalizeUsername(username)

	payload, err := c.store.Get(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return core.VerifiedAgent{}, false, nil
	}
	if err != nil {
		return core.VerifiedAgent{}, false, fmt.Errorf("failed to load agent: %w", err)
	}

	var agent core.VerifiedAgent
	if err := json.Unmarshal(payload, &agent); err != nil || agent.Stale(c.clock.Now()) {
		if err := c.store.Delete(ctx, key); err != nil {
			return core.VerifiedAgent{}, false, fmt.Errorf("failed to evict agent: %w", err)
		}
		return core.VerifiedAgent{}, false, nil
	}
	return agent, true, nil
}

// List returns every fresh binding ordered by username. Stale entries are skipped, not evicted.
func (c *AgentCache) List(ctx context.Context) ([]core.VerifiedAgent, error) {
	now := c.clock.Now()
	agents := []core.VerifiedAgent{}
	err := c.store.Scan(ctx, agentPrefix, func(_ string, value []byte) error {
		var agent core.VerifiedAgent
		if json.Unmarshal(value, &agent) == nil && !agent.Stale(now) {
			agents = append(agents, agent)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	sort.Slice(agents, func(i, j int) bool { return agents[i].Key() < agents[j].Key() })
	return agents, nil
}

var _ ports.AgentLister = (*AgentCache)(nil)
