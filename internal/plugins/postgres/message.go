package postgres

import (
	"concord/internal/core/domain"
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) CreateMessage(ctx context.Context, m *domain.Message) error {
	if m.ID == uuid.Nil || m.ChannelID == uuid.Nil {
		return domain.ErrInvalidMessageID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO messages (id, channel_id, author_id, content, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.ChannelID, m.AuthorID, m.Content, m.SentAt)
	return err
}

func (r *MessageRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidMessageID
	}
	exec := GetExecutor(ctx, r.db)
	var m domain.Message
	err := exec.QueryRowContext(ctx, `
		SELECT id, channel_id, author_id, content, sent_at, edited_at
		FROM messages
		WHERE id = $1
	`, id).Scan(&m.ID, &m.ChannelID, &m.AuthorID, &m.Content, &m.SentAt, &m.EditedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) EditMessage(ctx context.Context, id uuid.UUID, content string) error {
	if id == uuid.Nil {
		return domain.ErrInvalidMessageID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE messages SET content = $2, edited_at = now() WHERE id = $1
	`, id, content)
	if err != nil {
		return err
	}
	return requireRows(result, domain.ErrMessageNotFound)
}

func (r *MessageRepo) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.ErrInvalidMessageID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		DELETE FROM messages WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return requireRows(result, domain.ErrMessageNotFound)
}

func (r *MessageRepo) ListMessages(ctx context.Context, channelID uuid.UUID, limit int) ([]domain.Message, error) {
	if channelID == uuid.Nil {
		return nil, domain.ErrInvalidChannelID
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, channel_id, author_id, content, sent_at, edited_at
		FROM messages
		WHERE channel_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.AuthorID, &m.Content, &m.SentAt, &m.EditedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
