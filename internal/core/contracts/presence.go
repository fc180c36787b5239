package contracts

import (
	"context"
	"time"
)

// PresenceStore tracks which identities are currently online, per server.
// Backed by TTL-scored Redis ZSETs; purely advisory, never consulted for
// authorization.
type PresenceStore interface {
	// UpdateOnlineStatus refreshes the identity's presence in a server.
	UpdateOnlineStatus(ctx context.Context, serverID, userID string, ttl time.Duration) error
	// GetOnlineMembers returns identities recently seen in a server.
	GetOnlineMembers(ctx context.Context, serverID string) ([]string, error)
	// ClearServer drops the whole presence set for a server.
	ClearServer(ctx context.Context, serverID string) error
}
