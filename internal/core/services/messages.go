package services

import (
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type MessageService struct {
	messages  domain.MessageRepository
	members   domain.MembershipRepository
	txManager contracts.Transactor
	dispatch  *DispatchService
	log       *slog.Logger
}

func NewMessageService(
	log *slog.Logger,
	messages domain.MessageRepository,
	members domain.MembershipRepository,
	txManager contracts.Transactor,
	dispatch *DispatchService,
) *MessageService {
	return &MessageService{
		log:       log,
		messages:  messages,
		members:   members,
		txManager: txManager,
		dispatch:  dispatch,
	}
}

// Post persists a message and, only after the transaction commits,
// dispatches the message-added event to the channel's owning server
// group. The data-layer membership check here is never weaker than the
// transport-layer gate: a non-member cannot post even with a live
// connection subscribed by stale state.
func (s *MessageService) Post(ctx context.Context, authorID, channelID uuid.UUID, content string) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.Post", trace.WithAttributes(
		attribute.String("channel_id", channelID.String()),
		attribute.String("author_id", authorID.String()),
	))
	defer span.End()
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	msg := &domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
		SentAt:    time.Now(),
	}
	var serverID uuid.UUID
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if serverID, err = s.requireMemberOfChannel(txCtx, authorID, channelID); err != nil {
			return err
		}
		return s.messages.CreateMessage(txCtx, msg)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.log.ErrorContext(ctx, "messages - post - transaction failed",
			"channel_id", channelID.String(), "err", err)
		return nil, err
	}
	s.dispatch.MessageAdded(ctx, serverID, *msg)
	return msg, nil
}

func (s *MessageService) Edit(ctx context.Context, actorID, messageID uuid.UUID, content string) error {
	if content == "" {
		return domain.ErrEmptyMessage
	}
	var msg *domain.Message
	var serverID uuid.UUID
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if msg, err = s.messages.GetMessageByID(txCtx, messageID); err != nil {
			return err
		}
		if msg.AuthorID != actorID {
			return domain.ErrNotAuthor
		}
		if serverID, err = s.members.ServerIDForChannel(txCtx, msg.ChannelID); err != nil {
			return err
		}
		return s.messages.EditMessage(txCtx, messageID, content)
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - edit - transaction failed",
			"message_id", messageID.String(), "err", err)
		return err
	}
	msg.Content = content
	msg.EditedAt = &now
	s.dispatch.MessageEdited(ctx, serverID, *msg)
	return nil
}

func (s *MessageService) Delete(ctx context.Context, actorID, messageID uuid.UUID) error {
	var msg *domain.Message
	var serverID uuid.UUID
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if msg, err = s.messages.GetMessageByID(txCtx, messageID); err != nil {
			return err
		}
		if msg.AuthorID != actorID {
			return domain.ErrNotAuthor
		}
		if serverID, err = s.members.ServerIDForChannel(txCtx, msg.ChannelID); err != nil {
			return err
		}
		return s.messages.DeleteMessage(txCtx, messageID)
	}); err != nil {
		s.log.ErrorContext(ctx, "messages - delete - transaction failed",
			"message_id", messageID.String(), "err", err)
		return err
	}
	s.dispatch.MessageRemoved(ctx, serverID, msg.ChannelID, msg.ID, now)
	return nil
}

func (s *MessageService) List(ctx context.Context, userID, channelID uuid.UUID, limit int) ([]domain.Message, error) {
	if _, err := s.requireMemberOfChannel(ctx, userID, channelID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, channelID, limit)
}

func (s *MessageService) requireMemberOfChannel(ctx context.Context, userID, channelID uuid.UUID) (uuid.UUID, error) {
	serverID, err := s.members.ServerIDForChannel(ctx, channelID)
	if err != nil {
		return uuid.Nil, err
	}
	ok, err := s.members.IsMember(ctx, userID, serverID)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, domain.ErrNotAMember
	}
	return serverID, nil
}
