package services_test

import (
	"concord/internal/core/domain"
	"concord/internal/core/services"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserStore struct {
	domain.UserRepository
	byName map[string]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byName: make(map[string]*domain.User)}
}

func (s *memUserStore) CreateUser(_ context.Context, u *domain.User) error {
	if _, taken := s.byName[u.Username]; taken {
		return domain.ErrUsernameTaken
	}
	cp := *u
	s.byName[u.Username] = &cp
	return nil
}

func (s *memUserStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := s.byName[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) UpdateUsername(_ context.Context, id uuid.UUID, username string) error {
	for old, u := range s.byName {
		if u.ID == id {
			u.Username = username
			delete(s.byName, old)
			s.byName[username] = u
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func newUserFixture() (*services.UserService, *memUserStore, *recordingHub) {
	store := newMemUserStore()
	profileHub := &recordingHub{}
	dispatch := services.NewDispatchService(discardLogger(), &recordingHub{}, profileHub)
	return services.NewUserService(discardLogger(), store, passthroughTx{}, dispatch), store, profileHub
}

func Test_Register_stores_hash_not_password(t *testing.T) {
	svc, store, _ := newUserFixture()

	user, err := svc.Register(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	stored := store.byName["alice"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter2", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Equal(t, user.ID, stored.ID)
}

func Test_Register_rejects_duplicate_username(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.Register(context.Background(), "alice", "pw1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "pw2")
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func Test_Authenticate_round_trip(t *testing.T) {
	svc, _, _ := newUserFixture()
	registered, err := svc.Register(context.Background(), "bob", "s3cret")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "bob", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func Test_Authenticate_rejects_wrong_password(t *testing.T) {
	svc, _, _ := newUserFixture()
	_, err := svc.Register(context.Background(), "bob", "s3cret")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "bob", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody", "s3cret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func Test_ChangeUsername_goes_profile_wide(t *testing.T) {
	svc, _, profileHub := newUserFixture()
	user, err := svc.Register(context.Background(), "carol", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.ChangeUsername(context.Background(), user.ID, "caroline"))

	require.Len(t, profileHub.everyone, 1)
	evt := profileHub.everyone[0].(domain.ProfileEvent)
	assert.Equal(t, domain.TypeUsernameChanged, evt.Type)
	assert.Equal(t, user.ID, evt.UserID)
	assert.Equal(t, "caroline", evt.Username)
}
