package services

import (
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	log       *slog.Logger
	repo      domain.UserRepository
	txManager contracts.Transactor
	dispatch  *DispatchService
}

func NewUserService(
	log *slog.Logger,
	repo domain.UserRepository,
	txManager contracts.Transactor,
	dispatch *DispatchService,
) *UserService {
	return &UserService{
		log:       log,
		repo:      repo,
		txManager: txManager,
		dispatch:  dispatch,
	}
}

func (s *UserService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.CreateUser(txCtx, user)
	}); err != nil {
		s.log.ErrorContext(ctx, "users - register - create user failed", "username", username, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "users - register - user created", "user_id", user.ID.String())
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) ChangeUsername(ctx context.Context, userID uuid.UUID, username string) error {
	if username == "" {
		return domain.ErrInvalidName
	}
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpdateUsername(txCtx, userID, username)
	}); err != nil {
		s.log.ErrorContext(ctx, "users - change username - update failed",
			"user_id", userID.String(), "err", err)
		return err
	}
	s.dispatch.UsernameChanged(ctx, domain.User{ID: userID, Username: username}, now)
	return nil
}

func (s *UserService) ChangeAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	now := time.Now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpdateAvatar(txCtx, userID, avatarURL)
	}); err != nil {
		s.log.ErrorContext(ctx, "users - change avatar - update failed",
			"user_id", userID.String(), "err", err)
		return err
	}
	s.dispatch.AvatarChanged(ctx, domain.User{ID: userID, AvatarURL: avatarURL}, now)
	return nil
}
