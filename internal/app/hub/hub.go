package hub

import (
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"concord/internal/platform/metrics"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub resolves a group key to its subscribed connections and pushes
// typed events to all of them. Two instances exist in the process: one
// scoped to chat-server groups and one for profile-wide events that go
// to every attached connection.
//
// Subscriptions live in memory only. A dropped connection loses its
// subscriptions and must rejoin after reconnect; nothing is replayed.
type Hub struct {
	log      *slog.Logger
	gate     contracts.Gate
	registry contracts.ConnRegistry

	mu       sync.RWMutex
	clients  map[string]contracts.Client            // handle_id → client
	groups   map[string]map[string]contracts.Client // group → handle_id → client
	byHandle map[string]map[string]struct{}         // handle_id → group keys
}

// OpenGate admits every subscription. It backs the profile-wide hub,
// which has no groups to protect: everything it carries goes to every
// attached handle anyway.
type OpenGate struct{}

func (OpenGate) CanSubscribe(_ context.Context, _ string, _ string) bool { return true }

func NewHub(log *slog.Logger, gate contracts.Gate, registry contracts.ConnRegistry) *Hub {
	return &Hub{
		log:      log,
		gate:     gate,
		registry: registry,
		clients:  make(map[string]contracts.Client),
		groups:   make(map[string]map[string]contracts.Client),
		byHandle: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Attach(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Detach removes the handle from every group it was in. The transport
// calls this on disconnect; subscriptions do not outlive the handle.
func (h *Hub) Detach(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := c.ID()
	delete(h.clients, id)
	for key := range h.byHandle[id] {
		h.dropFromGroup(key, id)
	}
	delete(h.byHandle, id)
}

// JoinGroup subscribes the handle to a group after re-running the gate
// check. The client-declared target is never trusted: authorization is
// evaluated server-side on every call.
func (h *Hub) JoinGroup(ctx context.Context, c contracts.Client, groupKey string) error {
	key := domain.NormalizeGroup(groupKey)
	if !h.gate.CanSubscribe(ctx, c.Identity(), key) {
		metrics.GroupJoinsRejected.Inc()
		h.log.WarnContext(ctx, "hub - join group - gate rejected",
			"identity", c.Identity(), "group", key)
		return domain.ErrNotAMember
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[key] == nil {
		h.groups[key] = make(map[string]contracts.Client)
	}
	h.groups[key][c.ID()] = c
	if h.byHandle[c.ID()] == nil {
		h.byHandle[c.ID()] = make(map[string]struct{})
	}
	h.byHandle[c.ID()][key] = struct{}{}
	return nil
}

// Publish delivers the event to the snapshot of handles subscribed at
// dispatch time. A handle that disconnects mid-dispatch simply does not
// receive it; a failed send is treated the same way.
func (h *Hub) Publish(ctx context.Context, groupKey string, event domain.Event) {
	key := domain.NormalizeGroup(groupKey)
	h.mu.RLock()
	targets := make([]contracts.Client, 0, len(h.groups[key]))
	for _, c := range h.groups[key] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(ctx, event, targets)
}

// PublishAll delivers the event to every attached handle, regardless of
// group subscriptions.
func (h *Hub) PublishAll(ctx context.Context, event domain.Event) {
	h.mu.RLock()
	targets := make([]contracts.Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	h.deliver(ctx, event, targets)
}

// RevokeGroup forcibly detaches all of the identity's live handles from
// the group, synchronously, so no subsequent Publish to that group can
// reach a handle whose authorization has just been revoked. An identity
// with no live handles is a no-op.
func (h *Hub) RevokeGroup(ctx context.Context, identity string, groupKey string) {
	key := domain.NormalizeGroup(groupKey)
	handles := h.registry.Handles(identity)
	if len(handles) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range handles {
		h.dropFromGroup(key, c.ID())
		if set := h.byHandle[c.ID()]; set != nil {
			delete(set, key)
		}
	}
	h.log.InfoContext(ctx, "hub - revoke group - handles detached",
		"identity", identity, "group", key, "handles", len(handles))
}

func (h *Hub) deliver(ctx context.Context, event domain.Event, targets []contracts.Client) {
	if len(targets) == 0 {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.ErrorContext(ctx, "hub - deliver - encode failed",
			"event_type", event.EventType(), "err", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(event.EventType()).Inc()
	for _, c := range targets {
		if err := c.Send(ctx, data); err != nil {
			// Equivalent to the handle having already disconnected.
			metrics.DeliveryFailures.Inc()
			h.log.DebugContext(ctx, "hub - deliver - send failed",
				"handle_id", c.ID(), "event_type", event.EventType(), "err", err)
		}
	}
}

// dropFromGroup must be called with h.mu held.
func (h *Hub) dropFromGroup(key, handleID string) {
	if g := h.groups[key]; g != nil {
		delete(g, handleID)
		if len(g) == 0 {
			delete(h.groups, key)
		}
	}
}
