package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clawcraft/gatekeeper/core"
)

// Registry reads agent state from an on-chain identity registry.
//
// OwnerOf and TokenURI return core.ErrNotRegistered when the token does not
// exist. AgentWallet returns the zero address when the registry has no
// distinct wallet for the agent. Unknown chains fail with
// core.ErrNoRegistryConfigured and transport failures wrap
// core.ErrUpstreamUnavailable.
type Registry interface {
	OwnerOf(ctx context.Context, chainID, agentID uint64) (common.Address, error)
	TokenURI(ctx context.Context, chainID, agentID uint64) (string, error)
	AgentWallet(ctx context.Context, chainID, agentID uint64) (common.Address, error)
	// Chains lists the chain ids with a configured registry, ascending.
	Chains() []uint64
}

// MetadataFetcher retrieves an off-chain registration document
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// IdentityResolver resolves an agent id into its on-chain identity
type IdentityResolver interface {
	Resolve(ctx context.Context, chainID, agentID uint64) (core.AgentIdentity, error)
}
