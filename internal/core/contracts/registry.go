package contracts

import "context"

// ConnRegistry maps a durable identity to its currently-open connection
// handles. One identity may own many handles at once (multi-device);
// the registry only observes connect/disconnect, it never creates or
// destroys handles itself.
type ConnRegistry interface {
	// Add registers a live handle under its owning identity.
	Add(identity string, c Client)
	// Remove drops a handle; removing an absent handle is a no-op.
	Remove(identity string, c Client)
	// Handles returns the identity's live handles, possibly empty.
	Handles(identity string) []Client
}

// Client is one live bidirectional transport session.
type Client interface {
	// ID is the opaque handle token, unique per session.
	ID() string
	// Identity is the durable principal this handle belongs to.
	Identity() string
	// Send queues data for delivery; it must not block on transport I/O.
	Send(ctx context.Context, data []byte) error
	Close()
}
