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

// MemberService owns the persisted membership relation. Whenever a
// membership row is removed here, the member's live connections are
// detached from the server's broadcast group before any further event
// can be published to it.
type MemberService struct {
	servers   domain.ServerRepository
	members   domain.MembershipRepository
	users     domain.UserRepository
	txManager contracts.Transactor
	dispatch  *DispatchService
	revoker   contracts.Revoker
	log       *slog.Logger
}

func NewMemberService(
	log *slog.Logger,
	servers domain.ServerRepository,
	members domain.MembershipRepository,
	users domain.UserRepository,
	txManager contracts.Transactor,
	dispatch *DispatchService,
	revoker contracts.Revoker,
) *MemberService {
	return &MemberService{
		log:       log,
		servers:   servers,
		members:   members,
		users:     users,
		txManager: txManager,
		dispatch:  dispatch,
		revoker:   revoker,
	}
}

func (s *MemberService) Join(ctx context.Context, userID, serverID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "MemberService.Join", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("server_id", serverID.String()),
	))
	defer span.End()
	var user *domain.User
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.servers.GetServerByID(txCtx, serverID); err != nil {
			return err
		}
		var err error
		if user, err = s.users.GetUserByID(txCtx, userID); err != nil {
			return err
		}
		return s.members.AddMember(txCtx, &domain.Membership{
			UserID:   userID,
			ServerID: serverID,
			JoinedAt: now,
		})
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.log.ErrorContext(ctx, "members - join - transaction failed",
			"user_id", userID.String(), "server_id", serverID.String(), "err", err)
		return err
	}
	s.dispatch.UserJoined(ctx, serverID, *user, now)
	return nil
}

// Leave removes the caller's own membership. The revocation runs before
// the user-left event is dispatched, so the leaving user's connections
// never see it.
func (s *MemberService) Leave(ctx context.Context, userID, serverID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "MemberService.Leave", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("server_id", serverID.String()),
	))
	defer span.End()
	var user *domain.User
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		srv, err := s.servers.GetServerByID(txCtx, serverID)
		if err != nil {
			return err
		}
		if srv.OwnerID == userID {
			// The owner deletes the server instead of leaving it.
			return domain.ErrNotOwner
		}
		if user, err = s.users.GetUserByID(txCtx, userID); err != nil {
			return err
		}
		return s.members.RemoveMember(txCtx, userID, serverID)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.log.ErrorContext(ctx, "members - leave - transaction failed",
			"user_id", userID.String(), "server_id", serverID.String(), "err", err)
		return err
	}
	s.revoker.RevokeGroup(ctx, userID.String(), domain.ServerGroup(serverID))
	s.dispatch.UserLeft(ctx, serverID, *user, now)
	return nil
}

// Kick removes another member. Owner only; the owner cannot be kicked.
func (s *MemberService) Kick(ctx context.Context, actorID, serverID, targetID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "MemberService.Kick", trace.WithAttributes(
		attribute.String("server_id", serverID.String()),
		attribute.String("target_id", targetID.String()),
	))
	defer span.End()
	var target *domain.User
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		srv, err := s.servers.GetServerByID(txCtx, serverID)
		if err != nil {
			return err
		}
		if srv.OwnerID != actorID {
			return domain.ErrNotOwner
		}
		if srv.OwnerID == targetID {
			return domain.ErrNotOwner
		}
		if target, err = s.users.GetUserByID(txCtx, targetID); err != nil {
			return err
		}
		return s.members.RemoveMember(txCtx, targetID, serverID)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.log.ErrorContext(ctx, "members - kick - transaction failed",
			"server_id", serverID.String(), "target_id", targetID.String(), "err", err)
		return err
	}
	s.revoker.RevokeGroup(ctx, targetID.String(), domain.ServerGroup(serverID))
	s.dispatch.UserLeft(ctx, serverID, *target, now)
	return nil
}

// ServerIDs lists the servers an identity currently belongs to. The
// connect handshake uses this to derive the initial group list.
func (s *MemberService) ServerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.members.ListServerIDs(ctx, userID)
}
