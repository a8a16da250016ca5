package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ethereum/go-ethereum/common"

	"github.com/clawcraft/gatekeeper/adapters/metadata"
	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

// IdentityResolver resolves agent ids against the configured registries.
//
// Registry reads are hard requirements: any failure aborts resolution.
// The registration document is enrichment: fetch and parse failures leave
// Registration nil and only an explicit "active": false rejects the agent.
type IdentityResolver struct {
	registry ports.Registry
	fetcher  ports.MetadataFetcher
	logger   watermill.LoggerAdapter
	timeout  time.Duration
}

// NewIdentityResolver creates a resolver. timeout bounds each outbound call.
func NewIdentityResolver(registry ports.Registry, fetcher ports.MetadataFetcher, logger watermill.LoggerAdapter, timeout time.Duration) *IdentityResolver {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IdentityResolver{
		registry: registry,
		fetcher:  fetcher,
		logger:   logger,
		timeout:  timeout,
	}
}

// Resolve reads owner, registration URI and agent wallet for agentID on chainID
func (r *IdentityResolver) Resolve(ctx context.Context, chainID, agentID uint64) (core.AgentIdentity, error) {
	fields := watermill.LogFields{"chain_id": chainID, "agent_id": agentID}

	owner, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (common.Address, error) {
		return r.registry.OwnerOf(ctx, chainID, agentID)
	})
	if err != nil {
		return core.AgentIdentity{}, classify(err)
	}

	uri, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (string, error) {
		return r.registry.TokenURI(ctx, chainID, agentID)
	})
	if err != nil {
		return core.AgentIdentity{}, classify(err)
	}

	wallet, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (common.Address, error) {
		return r.registry.AgentWallet(ctx, chainID, agentID)
	})
	if err != nil {
		return core.AgentIdentity{}, classify(err)
	}
	// No dedicated wallet (method missing or zero address): the owner signs
	if wallet == (common.Address{}) {
		wallet = owner
	}

	identity := core.AgentIdentity{
		AgentID:         agentID,
		ChainID:         chainID,
		Owner:           owner,
		Wallet:          wallet,
		RegistrationURI: uri,
	}

	raw, err := r.fetchRegistration(ctx, uri)
	if err != nil {
		r.logger.Info("Registration document unavailable", fields.Add(watermill.LogFields{
			"uri":     uri,
			"warning": err.Error(),
		}))
		return identity, nil
	}
	// Deactivation is honored even when the rest of the document is malformed
	if metadata.Deactivated(raw) {
		return core.AgentIdentity{}, fmt.Errorf("agent %d on chain %d is marked inactive: %w", agentID, chainID, core.ErrNotRegistered)
	}
	if _, err := metadata.ParseRegistration(raw); err != nil {
		r.logger.Info("Registration document ignored", fields.Add(watermill.LogFields{
			"uri":     uri,
			"warning": err.Error(),
		}))
		return identity, nil
	}

	identity.Registration = json.RawMessage(raw)
	return identity, nil
}

func (r *IdentityResolver) fetchRegistration(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, errors.New("empty registration uri")
	}
	return withTimeout(ctx, r.timeout, func(ctx context.Context) ([]byte, error) {
		return r.fetcher.Fetch(ctx, uri)
	})
}

// classify keeps the taxonomy errors and folds everything else into
// ErrUpstreamUnavailable, so callers only ever see the three resolver kinds
func classify(err error) error {
	switch {
	case errors.Is(err, core.ErrNotRegistered),
		errors.Is(err, core.ErrNoRegistryConfigured),
		errors.Is(err, core.ErrUpstreamUnavailable):
		return err
	default:
		return fmt.Errorf("%v: %w", err, core.ErrUpstreamUnavailable)
	}
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

var _ ports.IdentityResolver = (*IdentityResolver)(nil)
