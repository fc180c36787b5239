package services_test

import (
	"concord/internal/core/domain"
	"concord/internal/core/services"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHub captures publishes so the routing decision of each
// dispatcher method can be asserted.
type recordingHub struct {
	mu       sync.Mutex
	group    []groupPublish
	everyone []domain.Event
}

type groupPublish struct {
	group string
	event domain.Event
}

func (h *recordingHub) Publish(_ context.Context, groupKey string, event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.group = append(h.group, groupPublish{group: groupKey, event: event})
}

func (h *recordingHub) PublishAll(_ context.Context, event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.everyone = append(h.everyone, event)
}

func newDispatch() (*services.DispatchService, *recordingHub, *recordingHub) {
	serverHub := &recordingHub{}
	profileHub := &recordingHub{}
	return services.NewDispatchService(discardLogger(), serverHub, profileHub), serverHub, profileHub
}

func Test_Dispatch_message_added_targets_server_group(t *testing.T) {
	dispatch, serverHub, profileHub := newDispatch()
	serverID := uuid.New()
	msg := domain.Message{
		ID:        uuid.New(),
		ChannelID: uuid.New(),
		AuthorID:  uuid.New(),
		Content:   "hi",
		SentAt:    time.Now(),
	}

	dispatch.MessageAdded(context.Background(), serverID, msg)

	require.Len(t, serverHub.group, 1)
	assert.Equal(t, domain.ServerGroup(serverID), serverHub.group[0].group)

	evt, ok := serverHub.group[0].event.(domain.MessageEvent)
	require.True(t, ok)
	assert.Equal(t, domain.TypeMessageAdded, evt.Type)
	assert.Equal(t, msg.ID, evt.Message.ID)
	assert.Equal(t, msg.Content, evt.Message.Content)

	assert.Empty(t, profileHub.everyone, "message events never go profile-wide")
}

func Test_Dispatch_message_edited_carries_edit_time(t *testing.T) {
	dispatch, serverHub, _ := newDispatch()
	serverID := uuid.New()
	edited := time.Now()
	msg := domain.Message{
		ID:       uuid.New(),
		SentAt:   edited.Add(-time.Minute),
		EditedAt: &edited,
	}

	dispatch.MessageEdited(context.Background(), serverID, msg)

	require.Len(t, serverHub.group, 1)
	evt := serverHub.group[0].event.(domain.MessageEvent)
	assert.Equal(t, domain.TypeMessageEdited, evt.Type)
	assert.Equal(t, edited, evt.OccurredAt)
}

func Test_Dispatch_message_removed_references_ids_only(t *testing.T) {
	dispatch, serverHub, _ := newDispatch()
	serverID := uuid.New()
	channelID := uuid.New()
	messageID := uuid.New()
	removedAt := time.Now().Add(-time.Second)

	dispatch.MessageRemoved(context.Background(), serverID, channelID, messageID, removedAt)

	require.Len(t, serverHub.group, 1)
	evt := serverHub.group[0].event.(domain.MessageRemovedEvent)
	assert.Equal(t, domain.TypeMessageRemoved, evt.Type)
	assert.Equal(t, channelID, evt.ChannelID)
	assert.Equal(t, messageID, evt.MessageID)
	assert.Equal(t, removedAt, evt.OccurredAt)
}

func Test_Dispatch_channel_lifecycle_targets_owning_server(t *testing.T) {
	dispatch, serverHub, _ := newDispatch()
	created := time.Now().Add(-time.Hour)
	changed := time.Now()
	ch := domain.Channel{ID: uuid.New(), ServerID: uuid.New(), Name: "general", CreatedAt: created}

	dispatch.ChannelAdded(context.Background(), ch)
	dispatch.ChannelUpdated(context.Background(), ch, changed)
	dispatch.ChannelRemoved(context.Background(), ch, changed)

	require.Len(t, serverHub.group, 3)
	wantTypes := []string{domain.TypeChannelAdded, domain.TypeChannelUpdated, domain.TypeChannelRemoved}
	wantTimes := []time.Time{created, changed, changed}
	for i, p := range serverHub.group {
		assert.Equal(t, domain.ServerGroup(ch.ServerID), p.group)
		evt := p.event.(domain.ChannelEvent)
		assert.Equal(t, wantTypes[i], evt.Type)
		assert.Equal(t, ch.ID, evt.ChannelID)
		assert.Equal(t, wantTimes[i], evt.OccurredAt)
	}
}

func Test_Dispatch_membership_events_target_server_group(t *testing.T) {
	dispatch, serverHub, _ := newDispatch()
	serverID := uuid.New()
	user := domain.User{ID: uuid.New(), Username: "alice"}

	joinedAt := time.Now().Add(-time.Minute)
	leftAt := time.Now()
	dispatch.UserJoined(context.Background(), serverID, user, joinedAt)
	dispatch.UserLeft(context.Background(), serverID, user, leftAt)

	require.Len(t, serverHub.group, 2)
	joined := serverHub.group[0].event.(domain.MemberEvent)
	left := serverHub.group[1].event.(domain.MemberEvent)
	assert.Equal(t, domain.TypeUserJoined, joined.Type)
	assert.Equal(t, domain.TypeUserLeft, left.Type)
	assert.Equal(t, user.ID, joined.UserID)
	assert.Equal(t, "alice", left.Username)
	assert.Equal(t, joinedAt, joined.OccurredAt)
	assert.Equal(t, leftAt, left.OccurredAt)
}

func Test_Dispatch_profile_events_go_to_every_connection(t *testing.T) {
	dispatch, serverHub, profileHub := newDispatch()
	user := domain.User{ID: uuid.New(), Username: "renamed", AvatarURL: "https://cdn/a.png"}

	changedAt := time.Now()
	dispatch.UsernameChanged(context.Background(), user, changedAt)
	dispatch.AvatarChanged(context.Background(), user, changedAt)

	assert.Empty(t, serverHub.group, "profile events bypass server groups")
	require.Len(t, profileHub.everyone, 2)

	rename := profileHub.everyone[0].(domain.ProfileEvent)
	avatar := profileHub.everyone[1].(domain.ProfileEvent)
	assert.Equal(t, domain.TypeUsernameChanged, rename.Type)
	assert.Equal(t, "renamed", rename.Username)
	assert.Equal(t, domain.TypeAvatarChanged, avatar.Type)
	assert.Equal(t, "https://cdn/a.png", avatar.AvatarURL)
	assert.Equal(t, changedAt, rename.OccurredAt)
	assert.Equal(t, changedAt, avatar.OccurredAt)
}

func Test_Dispatch_server_updated_targets_its_own_group(t *testing.T) {
	dispatch, serverHub, _ := newDispatch()
	srv := domain.Server{ID: uuid.New(), Name: "new name"}

	renamedAt := time.Now()
	dispatch.ServerUpdated(context.Background(), srv, renamedAt)

	require.Len(t, serverHub.group, 1)
	assert.Equal(t, domain.ServerGroup(srv.ID), serverHub.group[0].group)
	evt := serverHub.group[0].event.(domain.ServerUpdatedEvent)
	assert.Equal(t, "new name", evt.Name)
	assert.Equal(t, renamedAt, evt.OccurredAt)
}
