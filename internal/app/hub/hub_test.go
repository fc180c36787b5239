package hub_test

import (
	"concord/internal/app/hub"
	"concord/internal/app/registry"
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memberGate grants subscriptions from a fixed identity→groups table.
type memberGate struct {
	mu      sync.Mutex
	allowed map[string]map[string]bool // identity → group → ok
}

func newMemberGate() *memberGate {
	return &memberGate{allowed: make(map[string]map[string]bool)}
}

func (g *memberGate) grant(identity, group string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.allowed[identity] == nil {
		g.allowed[identity] = make(map[string]bool)
	}
	g.allowed[identity][group] = true
}

func (g *memberGate) revoke(identity, group string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.allowed[identity], group)
}

func (g *memberGate) CanSubscribe(_ context.Context, identity, group string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allowed[identity][group]
}

// recordingClient captures every payload delivered to it.
type recordingClient struct {
	id       string
	identity string
	failSend bool

	mu       sync.Mutex
	received [][]byte
}

func newRecording(identity, id string) *recordingClient {
	return &recordingClient{id: id, identity: identity}
}

func (c *recordingClient) ID() string       { return c.id }
func (c *recordingClient) Identity() string { return c.identity }

func (c *recordingClient) Send(_ context.Context, data []byte) error {
	if c.failSend {
		return errors.New("connection gone")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, data)
	return nil
}

func (c *recordingClient) Close() {}

func (c *recordingClient) events(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var types []string
	for _, data := range c.received {
		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &head))
		types = append(types, head.Type)
	}
	return types
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func msgEvent(serverID uuid.UUID) domain.MessageEvent {
	return domain.MessageEvent{
		Type:     domain.TypeMessageAdded,
		ServerID: serverID,
		Message: domain.MessageView{
			ID:        uuid.New(),
			ChannelID: uuid.New(),
			AuthorID:  uuid.New(),
			Content:   "hello",
			SentAt:    time.Now(),
		},
		OccurredAt: time.Now(),
	}
}

func setup() (*hub.Hub, *memberGate, *registry.Registry) {
	gate := newMemberGate()
	reg := registry.NewRegistry()
	return hub.NewHub(testLogger(), gate, reg), gate, reg
}

func Test_Hub_delivers_group_events_to_subscribed_member(t *testing.T) {
	h, gate, reg := setup()
	ctx := context.Background()

	serverID := uuid.New()
	group := domain.ServerGroup(serverID)
	alice := newRecording("alice", "h1")
	gate.grant("alice", group)

	reg.Add("alice", alice)
	h.Attach(alice)
	require.NoError(t, h.JoinGroup(ctx, alice, group))

	h.Publish(ctx, group, msgEvent(serverID))

	assert.Equal(t, []string{domain.TypeMessageAdded}, alice.events(t))
}

func Test_Hub_rejects_join_for_non_member(t *testing.T) {
	h, _, reg := setup()
	ctx := context.Background()

	group := domain.ServerGroup(uuid.New())
	mallory := newRecording("mallory", "h1")
	reg.Add("mallory", mallory)
	h.Attach(mallory)

	err := h.JoinGroup(ctx, mallory, group)
	require.ErrorIs(t, err, domain.ErrNotAMember)

	h.Publish(ctx, group, msgEvent(uuid.New()))
	assert.Empty(t, mallory.events(t))
}

func Test_Hub_stops_delivery_after_revocation(t *testing.T) {
	h, gate, reg := setup()
	ctx := context.Background()

	serverID := uuid.New()
	group := domain.ServerGroup(serverID)
	bob := newRecording("bob", "h1")
	gate.grant("bob", group)

	reg.Add("bob", bob)
	h.Attach(bob)
	require.NoError(t, h.JoinGroup(ctx, bob, group))

	h.Publish(ctx, group, msgEvent(serverID))
	require.Len(t, bob.events(t), 1)

	// Membership removal: the gate flips first, then live handles are
	// forcibly detached.
	gate.revoke("bob", group)
	h.RevokeGroup(ctx, "bob", group)

	h.Publish(ctx, group, msgEvent(serverID))
	assert.Len(t, bob.events(t), 1, "no delivery after revocation")

	// The connection is still alive but may not rejoin.
	assert.ErrorIs(t, h.JoinGroup(ctx, bob, group), domain.ErrNotAMember)
}

func Test_Hub_subscriptions_do_not_survive_reconnect(t *testing.T) {
	h, gate, reg := setup()
	ctx := context.Background()

	serverID := uuid.New()
	group := domain.ServerGroup(serverID)
	gate.grant("carol", group)

	first := newRecording("carol", "h1")
	reg.Add("carol", first)
	h.Attach(first)
	require.NoError(t, h.JoinGroup(ctx, first, group))

	// Disconnect.
	h.Detach(first)
	reg.Remove("carol", first)

	// Reconnect with a fresh handle. Until it joins again it must not
	// receive group traffic, member or not.
	second := newRecording("carol", "h2")
	reg.Add("carol", second)
	h.Attach(second)

	h.Publish(ctx, group, msgEvent(serverID))
	assert.Empty(t, second.events(t))

	require.NoError(t, h.JoinGroup(ctx, second, group))
	h.Publish(ctx, group, msgEvent(serverID))
	assert.Len(t, second.events(t), 1)
}

func Test_Hub_fans_out_to_every_handle_of_one_identity(t *testing.T) {
	h, gate, reg := setup()
	ctx := context.Background()

	serverID := uuid.New()
	group := domain.ServerGroup(serverID)
	gate.grant("dave", group)

	phone := newRecording("dave", "h1")
	laptop := newRecording("dave", "h2")
	for _, c := range []*recordingClient{phone, laptop} {
		reg.Add("dave", c)
		h.Attach(c)
		require.NoError(t, h.JoinGroup(ctx, c, group))
	}

	h.Publish(ctx, group, msgEvent(serverID))

	assert.Len(t, phone.events(t), 1)
	assert.Len(t, laptop.events(t), 1)
}

func Test_Hub_revocation_detaches_every_handle_of_identity(t *testing.T) {
	h, gate, reg := setup()
	ctx := context.Background()

	serverID := uuid.New()
	group := domain.ServerGroup(serverID)
	gate.grant("erin", group)

	phone := newRecording("erin", "h1")
	laptop := newRecording("erin", "h2")
	for _, c := range []*recordingClient{phone, laptop} {
		reg.Add("erin", c)
		h.Attach(c)
		require.NoError(t, h.JoinGroup(ctx, c, group))
	}

	h.RevokeGroup(ctx, "erin", group)
	h.Publish(ctx, group, msgEvent(serverID))

	assert.Empty(t, phone.events(t))
	assert.Empty(t, laptop.events(t))
}

func Test_Hub_revocation_without_live_handles_is_noop(t *testing.T) {
	h, _, _ := setup()

	// Identity is fully offline: nothing to detach, nothing to error.
	h.RevokeGroup(context.Background(), "ghost", domain.ServerGroup(uuid.New()))
}

func Test_Hub_failed_send_does_not_block_other_recipients(t *testing.T) {
	h, gate, reg := setup()
	ctx := context.Background()

	serverID := uuid.New()
	group := domain.ServerGroup(serverID)

	broken := newRecording("frank", "h1")
	broken.failSend = true
	healthy := newRecording("grace", "h2")
	gate.grant("frank", group)
	gate.grant("grace", group)

	for identity, c := range map[string]*recordingClient{"frank": broken, "grace": healthy} {
		reg.Add(identity, c)
		h.Attach(c)
		require.NoError(t, h.JoinGroup(ctx, c, group))
	}

	h.Publish(ctx, group, msgEvent(serverID))

	assert.Len(t, healthy.events(t), 1)
}

func Test_Hub_group_keys_are_case_insensitive(t *testing.T) {
	h, gate, reg := setup()
	ctx := context.Background()

	serverID := uuid.New()
	group := domain.ServerGroup(serverID)
	gate.grant("heidi", group)

	c := newRecording("heidi", "h1")
	reg.Add("heidi", c)
	h.Attach(c)

	// Join with uppercase, publish with canonical lowercase.
	upper := "SERVER:" + serverID.String()
	require.NoError(t, h.JoinGroup(ctx, c, upper))

	h.Publish(ctx, group, msgEvent(serverID))
	assert.Len(t, c.events(t), 1)
}

func Test_Hub_publish_all_reaches_every_attached_handle(t *testing.T) {
	h, _, reg := setup()
	ctx := context.Background()

	// No group membership at all; PublishAll ignores groups.
	a := newRecording("alice", "h1")
	b := newRecording("bob", "h2")
	for identity, c := range map[string]*recordingClient{"alice": a, "bob": b} {
		reg.Add(identity, c)
		h.Attach(c)
	}

	h.PublishAll(ctx, domain.ProfileEvent{
		Type:       domain.TypeUsernameChanged,
		UserID:     uuid.New(),
		Username:   "renamed",
		OccurredAt: time.Now(),
	})

	assert.Equal(t, []string{domain.TypeUsernameChanged}, a.events(t))
	assert.Equal(t, []string{domain.TypeUsernameChanged}, b.events(t))
}

func Test_Hub_detach_removes_handle_from_publish_all(t *testing.T) {
	h, _, reg := setup()
	ctx := context.Background()

	c := newRecording("alice", "h1")
	reg.Add("alice", c)
	h.Attach(c)
	h.Detach(c)

	h.PublishAll(ctx, domain.ProfileEvent{Type: domain.TypeAvatarChanged, UserID: uuid.New()})
	assert.Empty(t, c.events(t))
}

func Test_Hub_publish_to_empty_group_is_noop(t *testing.T) {
	h, _, _ := setup()

	h.Publish(context.Background(), domain.ServerGroup(uuid.New()), msgEvent(uuid.New()))
}

var _ contracts.Broadcaster = (*hub.Hub)(nil)
var _ contracts.Gate = hub.OpenGate{}
