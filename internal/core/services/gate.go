package services

import (
	"concord/internal/core/domain"
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GateService is the authorization check between live subscriptions and
// the persisted membership relation. It answers a single question: is
// this identity, right now, entitled to this broadcast group?
type GateService struct {
	members domain.MembershipRepository
	log     *slog.Logger
}

func NewGateService(log *slog.Logger, members domain.MembershipRepository) *GateService {
	return &GateService{
		log:     log,
		members: members,
	}
}

// CanSubscribe runs a point query against persisted membership.
// Any failure to evaluate the question fails closed: no subscription
// is granted on a malformed identity or key, or when the data layer
// cannot answer.
func (g *GateService) CanSubscribe(ctx context.Context, identity string, groupKey string) bool {
	userID, err := uuid.Parse(identity)
	if err != nil {
		g.log.WarnContext(ctx, "gate - can subscribe - bad identity", "identity", identity)
		return false
	}
	serverID, err := domain.ParseServerGroup(groupKey)
	if err != nil {
		g.log.WarnContext(ctx, "gate - can subscribe - bad group key", "group", groupKey)
		return false
	}
	ok, err := g.members.IsMember(ctx, userID, serverID)
	if err != nil {
		g.log.ErrorContext(ctx, "gate - can subscribe - membership query failed",
			"user_id", identity, "server_id", serverID.String(), "err", err)
		return false
	}
	return ok
}
