package services

import (
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("concord-services")

type ServerService struct {
	servers   domain.ServerRepository
	channels  domain.ChannelRepository
	members   domain.MembershipRepository
	txManager contracts.Transactor
	dispatch  *DispatchService
	revoker   contracts.Revoker
	presence  contracts.PresenceStore
	log       *slog.Logger
}

func NewServerService(
	log *slog.Logger,
	servers domain.ServerRepository,
	channels domain.ChannelRepository,
	members domain.MembershipRepository,
	txManager contracts.Transactor,
	dispatch *DispatchService,
	revoker contracts.Revoker,
	presence contracts.PresenceStore,
) *ServerService {
	return &ServerService{
		log:       log,
		servers:   servers,
		channels:  channels,
		members:   members,
		txManager: txManager,
		dispatch:  dispatch,
		revoker:   revoker,
		presence:  presence,
	}
}

// Create makes a new server with a default channel; the creator becomes
// owner and first member. No event is dispatched: a freshly created
// group has no subscribers yet.
func (s *ServerService) Create(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Server, error) {
	ctx, span := tracer.Start(ctx, "ServerService.Create", trace.WithAttributes(
		attribute.String("owner_id", ownerID.String()),
	))
	defer span.End()
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	now := time.Now()
	srv := &domain.Server{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.servers.CreateServer(txCtx, srv); err != nil {
			return err
		}
		if err := s.channels.CreateChannel(txCtx, &domain.Channel{
			ID:        uuid.New(),
			ServerID:  srv.ID,
			Name:      "general",
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return s.members.AddMember(txCtx, &domain.Membership{
			UserID:   ownerID,
			ServerID: srv.ID,
			JoinedAt: now,
		})
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.log.ErrorContext(ctx, "servers - create - transaction failed", "name", name, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "servers - create - server created",
		"server_id", srv.ID.String(), "owner_id", ownerID.String())
	return srv, nil
}

func (s *ServerService) Get(ctx context.Context, id uuid.UUID) (*domain.Server, error) {
	return s.servers.GetServerByID(ctx, id)
}

func (s *ServerService) Rename(ctx context.Context, actorID, serverID uuid.UUID, name string) error {
	if name == "" {
		return domain.ErrInvalidName
	}
	var srv *domain.Server
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if srv, err = s.requireOwner(txCtx, actorID, serverID); err != nil {
			return err
		}
		return s.servers.RenameServer(txCtx, serverID, name)
	}); err != nil {
		s.log.ErrorContext(ctx, "servers - rename - transaction failed",
			"server_id", serverID.String(), "err", err)
		return err
	}
	srv.Name = name
	s.dispatch.ServerUpdated(ctx, *srv, now)
	return nil
}

// Delete removes the server and every membership behind it, then
// detaches every member's live connections from the group. The window
// between commit and revocation completing is bounded by this one call.
func (s *ServerService) Delete(ctx context.Context, actorID, serverID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "ServerService.Delete", trace.WithAttributes(
		attribute.String("server_id", serverID.String()),
	))
	defer span.End()
	var memberIDs []uuid.UUID
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.requireOwner(txCtx, actorID, serverID); err != nil {
			return err
		}
		var err error
		if memberIDs, err = s.members.ListMemberIDs(txCtx, serverID); err != nil {
			return err
		}
		return s.servers.DeleteServer(txCtx, serverID)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.log.ErrorContext(ctx, "servers - delete - transaction failed",
			"server_id", serverID.String(), "err", err)
		return err
	}
	group := domain.ServerGroup(serverID)
	for _, uid := range memberIDs {
		s.revoker.RevokeGroup(ctx, uid.String(), group)
	}
	if err := s.presence.ClearServer(ctx, serverID.String()); err != nil {
		s.log.WarnContext(ctx, "servers - delete - presence clear failed",
			"server_id", serverID.String(), "err", err)
	}
	s.log.InfoContext(ctx, "servers - delete - server removed",
		"server_id", serverID.String(), "members_revoked", len(memberIDs))
	return nil
}

func (s *ServerService) requireOwner(ctx context.Context, actorID, serverID uuid.UUID) (*domain.Server, error) {
	srv, err := s.servers.GetServerByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if srv.OwnerID != actorID {
		return nil, domain.ErrNotOwner
	}
	return srv, nil
}
