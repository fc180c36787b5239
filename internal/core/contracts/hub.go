package contracts

import (
	"concord/internal/core/domain"
	"context"
)

// Gate answers "is this identity currently entitled to this group?".
// It is consulted at every subscribe, never cached: a previously granted
// subscription is not proof of current authorization.
type Gate interface {
	CanSubscribe(ctx context.Context, identity string, groupKey string) bool
}

// Publisher is the only write surface mutation handlers may call.
type Publisher interface {
	// Publish delivers an event to the snapshot of handles subscribed
	// to the group at dispatch time. Best-effort, at-most-once.
	Publish(ctx context.Context, groupKey string, event domain.Event)
	// PublishAll delivers an event to every attached handle.
	PublishAll(ctx context.Context, event domain.Event)
}

// Revoker forcibly detaches an identity's live handles from a group.
// Called after the persisted membership row is gone, so that no later
// Publish can reach a handle whose authorization has been revoked.
type Revoker interface {
	RevokeGroup(ctx context.Context, identity string, groupKey string)
}

// Broadcaster is the full hub surface used by the transport layer.
type Broadcaster interface {
	Publisher
	Revoker
	// Attach makes a handle visible to PublishAll.
	Attach(c Client)
	// Detach removes the handle from every group it is in. Subscriptions
	// do not outlive the handle.
	Detach(c Client)
	// JoinGroup subscribes the handle after re-running the gate check.
	JoinGroup(ctx context.Context, c Client, groupKey string) error
}
