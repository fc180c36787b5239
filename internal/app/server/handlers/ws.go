package handlers

import (
	"concord/internal/app/server/ws"
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"concord/internal/core/services"
	"concord/internal/platform/logger"
	"concord/internal/platform/metrics"
	"concord/pkg/middleware"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients authenticate with a bearer token, not cookies,
	// so cross-origin upgrades carry no ambient credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler owns the lifecycle of one websocket session: registry
// bookkeeping, hub attachment, the initial membership subscription
// pass, presence heartbeats and the in-session join protocol.
type WSHandler struct {
	registry   contracts.ConnRegistry
	serverHub  contracts.Broadcaster
	profileHub contracts.Broadcaster
	memberSvc  *services.MemberService
	presence   contracts.PresenceStore
	heartbeat  time.Duration
	onlineTTL  time.Duration
}

func NewWSHandler(
	registry contracts.ConnRegistry,
	serverHub contracts.Broadcaster,
	profileHub contracts.Broadcaster,
	memberSvc *services.MemberService,
	presence contracts.PresenceStore,
	heartbeat time.Duration,
	onlineTTL time.Duration,
) *WSHandler {
	return &WSHandler{
		registry:   registry,
		serverHub:  serverHub,
		profileHub: profileHub,
		memberSvc:  memberSvc,
		presence:   presence,
		heartbeat:  heartbeat,
		onlineTTL:  onlineTTL,
	}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	identity, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(identity)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", logger.User(identity), logger.Err(err))
		return
	}

	// The session outlives the HTTP request context once upgraded.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, sock, identity)

	// The initial subscription pass must succeed before the handle is
	// allowed to observe anything. A failed membership lookup closes
	// the session rather than leaving it partially subscribed.
	serverIDs, err := h.memberSvc.ServerIDs(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "ws handler - handshake membership lookup failed", logger.User(identity), logger.Err(err))
		client.Close()
		return
	}

	h.registry.Add(identity, client)
	h.serverHub.Attach(client)
	h.profileHub.Attach(client)
	metrics.ConnectionsOpen.Inc()

	session := &wsSession{handler: h, client: client, identity: identity, log: log}
	defer session.teardown(ctx)

	for _, sid := range serverIDs {
		group := domain.ServerGroup(sid)
		if err := h.serverHub.JoinGroup(ctx, client, group); err != nil {
			// Membership can change between the list query and the
			// gate check; the gate's answer wins.
			log.WarnContext(ctx, "ws handler - initial join rejected", logger.User(identity), logger.Group(group))
			continue
		}
		session.track(sid.String())
	}

	handshake := domain.HandshakeResponse{
		Type:      domain.TypeHandshake,
		UserID:    identity,
		HandleID:  client.ID(),
		ServerIDs: session.snapshot(),
	}
	if data, err := json.Marshal(handshake); err == nil {
		if err := client.Send(ctx, data); err != nil {
			log.WarnContext(ctx, "ws handler - handshake send failed", logger.User(identity), logger.Err(err))
			return
		}
	}

	go session.heartbeatLoop(ctx)

	log.InfoContext(ctx, "ws handler - session open", logger.User(identity), logger.Handle(client.ID()), slog.Int("servers", len(serverIDs)))

	sock.ReadLoop(func(data []byte) {
		session.handleFrame(ctx, data)
	})
}

// wsSession carries the per-connection state the read loop and the
// heartbeat share: the set of servers this handle has joined.
type wsSession struct {
	handler  *WSHandler
	client   *ws.RuntimeClient
	identity string
	log      *slog.Logger

	mu     sync.Mutex
	joined []string
}

func (s *wsSession) track(serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.joined {
		if id == serverID {
			return
		}
	}
	s.joined = append(s.joined, serverID)
}

func (s *wsSession) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.joined))
	copy(out, s.joined)
	return out
}

func (s *wsSession) handleFrame(ctx context.Context, data []byte) {
	var req domain.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Type != domain.TypeJoin {
		s.sendError(ctx, "bad_frame", "unrecognized frame")
		return
	}
	sid, err := uuid.Parse(req.ServerID)
	if err != nil {
		s.sendError(ctx, "bad_server_id", "invalid server id")
		return
	}
	group := domain.ServerGroup(sid)
	if err := s.handler.serverHub.JoinGroup(ctx, s.client, group); err != nil {
		s.sendError(ctx, "join_rejected", "not a member of this server")
		return
	}
	s.track(sid.String())
	if err := s.handler.presence.UpdateOnlineStatus(ctx, sid.String(), s.identity, s.handler.onlineTTL); err != nil {
		s.log.WarnContext(ctx, "ws session - presence update failed", logger.Server(sid.String()), logger.Err(err))
	}
	resp, _ := json.Marshal(domain.JoinedResponse{Type: domain.TypeJoined, ServerID: sid.String()})
	_ = s.client.Send(ctx, resp)
}

func (s *wsSession) sendError(ctx context.Context, code, msg string) {
	data, _ := json.Marshal(domain.ErrorMessage{Type: domain.TypeError, Code: code, Message: msg})
	_ = s.client.Send(ctx, data)
}

func (s *wsSession) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.handler.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sid := range s.snapshot() {
				if err := s.handler.presence.UpdateOnlineStatus(ctx, sid, s.identity, s.handler.onlineTTL); err != nil {
					s.log.WarnContext(ctx, "ws session - heartbeat failed", logger.Server(sid), logger.Err(err))
				}
			}
		}
	}
}

// teardown detaches the handle everywhere it was registered. Order
// matters: the hubs stop routing to the handle before the registry
// forgets it existed.
func (s *wsSession) teardown(ctx context.Context) {
	s.handler.serverHub.Detach(s.client)
	s.handler.profileHub.Detach(s.client)
	s.handler.registry.Remove(s.identity, s.client)
	s.client.Close()
	metrics.ConnectionsOpen.Dec()
	s.log.InfoContext(ctx, "ws handler - session closed", logger.User(s.identity), logger.Handle(s.client.ID()))
}
