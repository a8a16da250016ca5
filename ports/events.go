package ports

import (
	"context"

	"github.com/clawcraft/gatekeeper/core"
)

// EventPublisher notifies downstream consumers (the reward oracle) about verifications
type EventPublisher interface {
	PublishVerified(ctx context.Context, event core.VerifiedEvent) error
}
