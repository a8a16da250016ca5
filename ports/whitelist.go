package ports

import (
	"context"

	"github.com/clawcraft/gatekeeper/core"
)

// AgentLister lists the currently fresh verified agents
type AgentLister interface {
	List(ctx context.Context) ([]core.VerifiedAgent, error)
}

// Whitelist persists the game server's admission list
type Whitelist interface {
	// Read returns the current entries. A missing file is an empty list.
	Read(ctx context.Context) ([]core.WhitelistEntry, error)
	Write(ctx context.Context, entries []core.WhitelistEntry) error
}

// Reloader tells the game server to re-read its whitelist
type Reloader interface {
	Reload(ctx context.Context) error
}
