package postgres

import (
	"concord/internal/core/domain"
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// MembershipRepo is the persisted many-to-many relation between users
// and servers, authoritative for "may subscribe".
type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (r *MembershipRepo) AddMember(ctx context.Context, m *domain.Membership) error {
	if m.UserID == uuid.Nil || m.ServerID == uuid.Nil {
		return domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO memberships (user_id, server_id, joined_at)
		VALUES ($1, $2, $3)
	`, m.UserID, m.ServerID, m.JoinedAt)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return domain.ErrAlreadyMember
	}
	return err
}

func (r *MembershipRepo) RemoveMember(ctx context.Context, userID, serverID uuid.UUID) error {
	if userID == uuid.Nil || serverID == uuid.Nil {
		return domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		DELETE FROM memberships WHERE user_id = $1 AND server_id = $2
	`, userID, serverID)
	if err != nil {
		return err
	}
	return requireRows(result, domain.ErrNotAMember)
}

// IsMember is the point query behind the fanout gate check.
func (r *MembershipRepo) IsMember(ctx context.Context, userID, serverID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || serverID == uuid.Nil {
		return false, nil
	}
	exec := GetExecutor(ctx, r.db)
	var exists bool
	err := exec.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memberships WHERE user_id = $1 AND server_id = $2
		)
	`, userID, serverID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *MembershipRepo) ListServerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrInvalidUserID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT server_id FROM memberships WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *MembershipRepo) ListMemberIDs(ctx context.Context, serverID uuid.UUID) ([]uuid.UUID, error) {
	if serverID == uuid.Nil {
		return nil, domain.ErrInvalidServerID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT user_id FROM memberships WHERE server_id = $1
	`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ServerIDForChannel resolves the server owning a channel, so message
// events can be routed to the right broadcast group.
func (r *MembershipRepo) ServerIDForChannel(ctx context.Context, channelID uuid.UUID) (uuid.UUID, error) {
	if channelID == uuid.Nil {
		return uuid.Nil, domain.ErrInvalidChannelID
	}
	exec := GetExecutor(ctx, r.db)
	var serverID uuid.UUID
	err := exec.QueryRowContext(ctx, `
		SELECT server_id FROM channels WHERE id = $1
	`, channelID).Scan(&serverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.ErrChannelNotFound
		}
		return uuid.Nil, err
	}
	return serverID, nil
}

func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
