package postgres

import (
	"concord/internal/core/domain"
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type ServerRepo struct {
	db *sql.DB
}

func NewServerRepo(db *sql.DB) *ServerRepo {
	return &ServerRepo{db: db}
}

func (r *ServerRepo) CreateServer(ctx context.Context, s *domain.Server) error {
	if s.ID == uuid.Nil {
		return domain.ErrInvalidServerID
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO servers (id, name, owner_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.Name, s.OwnerID, s.CreatedAt)
	return err
}

func (r *ServerRepo) GetServerByID(ctx context.Context, id uuid.UUID) (*domain.Server, error) {
	if id == uuid.Nil {
		return nil, domain.ErrInvalidServerID
	}
	exec := GetExecutor(ctx, r.db)
	var s domain.Server
	err := exec.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at
		FROM servers
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.OwnerID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrServerNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ServerRepo) RenameServer(ctx context.Context, id uuid.UUID, name string) error {
	if id == uuid.Nil {
		return domain.ErrInvalidServerID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE servers SET name = $2 WHERE id = $1
	`, id, name)
	if err != nil {
		return err
	}
	return requireRows(result, domain.ErrServerNotFound)
}

// DeleteServer removes the server; channels, messages and memberships
// go with it via ON DELETE CASCADE.
func (r *ServerRepo) DeleteServer(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.ErrInvalidServerID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		DELETE FROM servers WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return requireRows(result, domain.ErrServerNotFound)
}
