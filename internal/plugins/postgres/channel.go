package postgres

import (
	"concord/internal/core/domain"
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type ChannelRepo struct {
	db *sql.DB
}

func NewChannelRepo(db *sql.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

func (r *ChannelRepo) CreateChannel(ctx context.Context, c *domain.Channel) error {
	if c.ID == uuid.Nil || c.ServerID == uuid.Nil {
		return domain.ErrInvalidChannelID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO channels (id, server_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.ServerID, c.Name, c.CreatedAt)
	return err
}

func (r *ChannelRepo) GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidChannelID
	}
	exec := GetExecutor(ctx, r.db)
	var c domain.Channel
	err := exec.QueryRowContext(ctx, `
		SELECT id, server_id, name, created_at
		FROM channels
		WHERE id = $1
	`, id).Scan(&c.ID, &c.ServerID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChannelRepo) RenameChannel(ctx context.Context, id uuid.UUID, name string) error {
	if id == uuid.Nil {
		return domain.ErrInvalidChannelID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE channels SET name = $2 WHERE id = $1
	`, id, name)
	if err != nil {
		return err
	}
	return requireRows(result, domain.ErrChannelNotFound)
}

func (r *ChannelRepo) DeleteChannel(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.ErrInvalidChannelID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		DELETE FROM channels WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return requireRows(result, domain.ErrChannelNotFound)
}

func (r *ChannelRepo) ListChannels(ctx context.Context, serverID uuid.UUID) ([]domain.Channel, error) {
	if serverID == uuid.Nil {
		return nil, domain.ErrInvalidServerID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, server_id, name, created_at
		FROM channels
		WHERE server_id = $1
		ORDER BY created_at ASC
	`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var channels []domain.Channel
	for rows.Next() {
		var c domain.Channel
		if err := rows.Scan(&c.ID, &c.ServerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}
