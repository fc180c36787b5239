package services

import (
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type ChannelService struct {
	servers   domain.ServerRepository
	channels  domain.ChannelRepository
	members   domain.MembershipRepository
	txManager contracts.Transactor
	dispatch  *DispatchService
	log       *slog.Logger
}

func NewChannelService(
	log *slog.Logger,
	servers domain.ServerRepository,
	channels domain.ChannelRepository,
	members domain.MembershipRepository,
	txManager contracts.Transactor,
	dispatch *DispatchService,
) *ChannelService {
	return &ChannelService{
		log:       log,
		servers:   servers,
		channels:  channels,
		members:   members,
		txManager: txManager,
		dispatch:  dispatch,
	}
}

func (s *ChannelService) Create(ctx context.Context, actorID, serverID uuid.UUID, name string) (*domain.Channel, error) {
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	ch := &domain.Channel{
		ID:        uuid.New(),
		ServerID:  serverID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.requireOwner(txCtx, actorID, serverID); err != nil {
			return err
		}
		return s.channels.CreateChannel(txCtx, ch)
	}); err != nil {
		s.log.ErrorContext(ctx, "channels - create - transaction failed",
			"server_id", serverID.String(), "err", err)
		return nil, err
	}
	s.dispatch.ChannelAdded(ctx, *ch)
	return ch, nil
}

func (s *ChannelService) Rename(ctx context.Context, actorID, channelID uuid.UUID, name string) error {
	if name == "" {
		return domain.ErrInvalidName
	}
	var ch *domain.Channel
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if ch, err = s.channels.GetChannelByID(txCtx, channelID); err != nil {
			return err
		}
		if err := s.requireOwner(txCtx, actorID, ch.ServerID); err != nil {
			return err
		}
		return s.channels.RenameChannel(txCtx, channelID, name)
	}); err != nil {
		s.log.ErrorContext(ctx, "channels - rename - transaction failed",
			"channel_id", channelID.String(), "err", err)
		return err
	}
	ch.Name = name
	s.dispatch.ChannelUpdated(ctx, *ch, now)
	return nil
}

func (s *ChannelService) Delete(ctx context.Context, actorID, channelID uuid.UUID) error {
	var ch *domain.Channel
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if ch, err = s.channels.GetChannelByID(txCtx, channelID); err != nil {
			return err
		}
		if err := s.requireOwner(txCtx, actorID, ch.ServerID); err != nil {
			return err
		}
		return s.channels.DeleteChannel(txCtx, channelID)
	}); err != nil {
		s.log.ErrorContext(ctx, "channels - delete - transaction failed",
			"channel_id", channelID.String(), "err", err)
		return err
	}
	s.dispatch.ChannelRemoved(ctx, *ch, now)
	return nil
}

// List returns a server's channels to a caller who is a member of it.
func (s *ChannelService) List(ctx context.Context, userID, serverID uuid.UUID) ([]domain.Channel, error) {
	ok, err := s.members.IsMember(ctx, userID, serverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotAMember
	}
	return s.channels.ListChannels(ctx, serverID)
}

func (s *ChannelService) requireOwner(ctx context.Context, actorID, serverID uuid.UUID) error {
	srv, err := s.servers.GetServerByID(ctx, serverID)
	if err != nil {
		return err
	}
	if srv.OwnerID != actorID {
		return domain.ErrNotOwner
	}
	return nil
}
