package services

import (
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DispatchService translates a committed domain mutation into a typed
// event and a target group, and hands it to the broadcast hubs. Every
// mutation handler calls exactly one method here, strictly after its
// transaction has committed. Delivery is best-effort: nothing here ever
// propagates an error back to a caller whose transaction is already
// durable.
//
// Event timestamps come from the mutation itself, not from dispatch.
// Callers capture the time in the same scope as the write, so the
// occurred_at a subscriber sees matches what was persisted.
type DispatchService struct {
	serverHub  contracts.Publisher
	profileHub contracts.Publisher
	log        *slog.Logger
}

func NewDispatchService(
	log *slog.Logger,
	serverHub contracts.Publisher,
	profileHub contracts.Publisher,
) *DispatchService {
	return &DispatchService{
		log:        log,
		serverHub:  serverHub,
		profileHub: profileHub,
	}
}

func (d *DispatchService) MessageAdded(ctx context.Context, serverID uuid.UUID, msg domain.Message) {
	d.serverHub.Publish(ctx, domain.ServerGroup(serverID), domain.MessageEvent{
		Type:       domain.TypeMessageAdded,
		ServerID:   serverID,
		Message:    messageView(msg),
		OccurredAt: msg.SentAt,
	})
}

func (d *DispatchService) MessageEdited(ctx context.Context, serverID uuid.UUID, msg domain.Message) {
	occurred := msg.SentAt
	if msg.EditedAt != nil {
		occurred = *msg.EditedAt
	}
	d.serverHub.Publish(ctx, domain.ServerGroup(serverID), domain.MessageEvent{
		Type:       domain.TypeMessageEdited,
		ServerID:   serverID,
		Message:    messageView(msg),
		OccurredAt: occurred,
	})
}

func (d *DispatchService) MessageRemoved(ctx context.Context, serverID, channelID, messageID uuid.UUID, occurredAt time.Time) {
	d.serverHub.Publish(ctx, domain.ServerGroup(serverID), domain.MessageRemovedEvent{
		Type:       domain.TypeMessageRemoved,
		ServerID:   serverID,
		ChannelID:  channelID,
		MessageID:  messageID,
		OccurredAt: occurredAt,
	})
}

func (d *DispatchService) ChannelAdded(ctx context.Context, ch domain.Channel) {
	d.publishChannel(ctx, domain.TypeChannelAdded, ch, ch.CreatedAt)
}

func (d *DispatchService) ChannelUpdated(ctx context.Context, ch domain.Channel, occurredAt time.Time) {
	d.publishChannel(ctx, domain.TypeChannelUpdated, ch, occurredAt)
}

func (d *DispatchService) ChannelRemoved(ctx context.Context, ch domain.Channel, occurredAt time.Time) {
	d.publishChannel(ctx, domain.TypeChannelRemoved, ch, occurredAt)
}

func (d *DispatchService) UserJoined(ctx context.Context, serverID uuid.UUID, user domain.User, occurredAt time.Time) {
	d.serverHub.Publish(ctx, domain.ServerGroup(serverID), domain.MemberEvent{
		Type:       domain.TypeUserJoined,
		ServerID:   serverID,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: occurredAt,
	})
}

func (d *DispatchService) UserLeft(ctx context.Context, serverID uuid.UUID, user domain.User, occurredAt time.Time) {
	d.serverHub.Publish(ctx, domain.ServerGroup(serverID), domain.MemberEvent{
		Type:       domain.TypeUserLeft,
		ServerID:   serverID,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: occurredAt,
	})
}

func (d *DispatchService) ServerUpdated(ctx context.Context, srv domain.Server, occurredAt time.Time) {
	d.serverHub.Publish(ctx, domain.ServerGroup(srv.ID), domain.ServerUpdatedEvent{
		Type:       domain.TypeServerUpdated,
		ServerID:   srv.ID,
		Name:       srv.Name,
		OccurredAt: occurredAt,
	})
}

// Profile changes go to every live connection: any connection may have
// cached the identity's public profile, shared server or not.

func (d *DispatchService) UsernameChanged(ctx context.Context, user domain.User, occurredAt time.Time) {
	d.profileHub.PublishAll(ctx, domain.ProfileEvent{
		Type:       domain.TypeUsernameChanged,
		UserID:     user.ID,
		Username:   user.Username,
		OccurredAt: occurredAt,
	})
}

func (d *DispatchService) AvatarChanged(ctx context.Context, user domain.User, occurredAt time.Time) {
	d.profileHub.PublishAll(ctx, domain.ProfileEvent{
		Type:       domain.TypeAvatarChanged,
		UserID:     user.ID,
		AvatarURL:  user.AvatarURL,
		OccurredAt: occurredAt,
	})
}

func (d *DispatchService) publishChannel(ctx context.Context, kind string, ch domain.Channel, occurredAt time.Time) {
	d.serverHub.Publish(ctx, domain.ServerGroup(ch.ServerID), domain.ChannelEvent{
		Type:       kind,
		ServerID:   ch.ServerID,
		ChannelID:  ch.ID,
		Name:       ch.Name,
		OccurredAt: occurredAt,
	})
}

func messageView(m domain.Message) domain.MessageView {
	return domain.MessageView{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		SentAt:    m.SentAt,
		EditedAt:  m.EditedAt,
	}
}
