package services_test

import (
	"concord/internal/core/domain"
	"concord/internal/core/services"
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memChannels struct {
	domain.ChannelRepository
	created []domain.Channel
}

func (c *memChannels) CreateChannel(_ context.Context, ch *domain.Channel) error {
	c.created = append(c.created, *ch)
	return nil
}

type createServers struct {
	domain.ServerRepository
	rows map[uuid.UUID]*domain.Server
}

func (s *createServers) CreateServer(_ context.Context, srv *domain.Server) error {
	cp := *srv
	s.rows[srv.ID] = &cp
	return nil
}

func (s *createServers) GetServerByID(_ context.Context, id uuid.UUID) (*domain.Server, error) {
	srv, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrServerNotFound
	}
	return srv, nil
}

func (s *createServers) RenameServer(_ context.Context, id uuid.UUID, name string) error {
	srv, ok := s.rows[id]
	if !ok {
		return domain.ErrServerNotFound
	}
	srv.Name = name
	return nil
}

func (s *createServers) DeleteServer(_ context.Context, id uuid.UUID) error {
	if _, ok := s.rows[id]; !ok {
		return domain.ErrServerNotFound
	}
	delete(s.rows, id)
	return nil
}

// fakePresence records which servers had their presence sets cleared.
type fakePresence struct {
	cleared []string
}

func (p *fakePresence) UpdateOnlineStatus(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}

func (p *fakePresence) GetOnlineMembers(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (p *fakePresence) ClearServer(_ context.Context, serverID string) error {
	p.cleared = append(p.cleared, serverID)
	return nil
}

// collectingRevoker remembers every identity whose group access was
// revoked.
type collectingRevoker struct {
	revoked []string
	groups  []string
}

func (r *collectingRevoker) RevokeGroup(_ context.Context, identity, group string) {
	r.revoked = append(r.revoked, identity)
	r.groups = append(r.groups, group)
}

func Test_Create_makes_default_channel_and_owner_membership(t *testing.T) {
	ownerID := uuid.New()
	servers := &createServers{rows: make(map[uuid.UUID]*domain.Server)}
	channels := &memChannels{}
	members := &memMembers{rows: make(map[uuid.UUID]map[uuid.UUID]bool)}
	dispatch := services.NewDispatchService(discardLogger(), &recordingHub{}, &recordingHub{})
	svc := services.NewServerService(
		discardLogger(), servers, channels, members,
		passthroughTx{}, dispatch, &collectingRevoker{}, &fakePresence{},
	)

	srv, err := svc.Create(context.Background(), ownerID, "my server")
	require.NoError(t, err)

	require.Len(t, channels.created, 1)
	assert.Equal(t, "general", channels.created[0].Name)
	assert.Equal(t, srv.ID, channels.created[0].ServerID)

	assert.True(t, members.rows[srv.ID][ownerID], "creator is first member")
	assert.Equal(t, ownerID, srv.OwnerID)
}

func Test_Create_rejects_empty_name(t *testing.T) {
	svc := services.NewServerService(
		discardLogger(),
		&createServers{rows: make(map[uuid.UUID]*domain.Server)},
		&memChannels{},
		&memMembers{rows: make(map[uuid.UUID]map[uuid.UUID]bool)},
		passthroughTx{},
		services.NewDispatchService(discardLogger(), &recordingHub{}, &recordingHub{}),
		&collectingRevoker{},
		&fakePresence{},
	)

	_, err := svc.Create(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func Test_Delete_revokes_every_member(t *testing.T) {
	ownerID := uuid.New()
	memberA := uuid.New()
	memberB := uuid.New()
	serverID := uuid.New()

	servers := &createServers{rows: map[uuid.UUID]*domain.Server{
		serverID: {ID: serverID, Name: "doomed", OwnerID: ownerID},
	}}
	members := &memMembers{rows: map[uuid.UUID]map[uuid.UUID]bool{
		serverID: {ownerID: true, memberA: true, memberB: true},
	}}
	revoker := &collectingRevoker{}
	presence := &fakePresence{}
	dispatch := services.NewDispatchService(discardLogger(), &recordingHub{}, &recordingHub{})
	svc := services.NewServerService(
		discardLogger(), servers, &memChannels{}, members,
		passthroughTx{}, dispatch, revoker, presence,
	)

	require.NoError(t, svc.Delete(context.Background(), ownerID, serverID))

	want := []string{ownerID.String(), memberA.String(), memberB.String()}
	sort.Strings(want)
	got := append([]string(nil), revoker.revoked...)
	sort.Strings(got)
	assert.Equal(t, want, got)

	group := domain.ServerGroup(serverID)
	for _, g := range revoker.groups {
		assert.Equal(t, group, g)
	}
	assert.Equal(t, []string{serverID.String()}, presence.cleared)
}

func Test_Delete_requires_owner(t *testing.T) {
	ownerID := uuid.New()
	serverID := uuid.New()
	servers := &createServers{rows: map[uuid.UUID]*domain.Server{
		serverID: {ID: serverID, OwnerID: ownerID},
	}}
	revoker := &collectingRevoker{}
	svc := services.NewServerService(
		discardLogger(), servers, &memChannels{},
		&memMembers{rows: make(map[uuid.UUID]map[uuid.UUID]bool)},
		passthroughTx{},
		services.NewDispatchService(discardLogger(), &recordingHub{}, &recordingHub{}),
		revoker,
		&fakePresence{},
	)

	err := svc.Delete(context.Background(), uuid.New(), serverID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	assert.Empty(t, revoker.revoked, "failed delete revokes nothing")
}

func Test_Rename_dispatches_server_updated(t *testing.T) {
	ownerID := uuid.New()
	serverID := uuid.New()
	servers := &createServers{rows: map[uuid.UUID]*domain.Server{
		serverID: {ID: serverID, Name: "old", OwnerID: ownerID},
	}}
	serverHub := &recordingHub{}
	svc := services.NewServerService(
		discardLogger(), servers, &memChannels{},
		&memMembers{rows: make(map[uuid.UUID]map[uuid.UUID]bool)},
		passthroughTx{},
		services.NewDispatchService(discardLogger(), serverHub, &recordingHub{}),
		&collectingRevoker{},
		&fakePresence{},
	)

	require.NoError(t, svc.Rename(context.Background(), ownerID, serverID, "new"))

	require.Len(t, serverHub.group, 1)
	assert.Equal(t, domain.ServerGroup(serverID), serverHub.group[0].group)
	evt := serverHub.group[0].event.(domain.ServerUpdatedEvent)
	assert.Equal(t, "new", evt.Name)
}
