package handlers

import (
	"concord/internal/core/contracts"
	"concord/internal/core/domain"
	"concord/internal/core/services"
	"concord/internal/platform/logger"
	"concord/pkg/middleware"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// APIHandler serves the REST surface for servers, channels, messages,
// memberships and profile updates. Real-time delivery of the resulting
// events happens through the hubs, not through these responses.
type APIHandler struct {
	serverSvc  *services.ServerService
	channelSvc *services.ChannelService
	messageSvc *services.MessageService
	memberSvc  *services.MemberService
	userSvc    *services.UserService
	presence   contracts.PresenceStore
}

func NewAPIHandler(
	serverSvc *services.ServerService,
	channelSvc *services.ChannelService,
	messageSvc *services.MessageService,
	memberSvc *services.MemberService,
	userSvc *services.UserService,
	presence contracts.PresenceStore,
) *APIHandler {
	return &APIHandler{
		serverSvc:  serverSvc,
		channelSvc: channelSvc,
		messageSvc: messageSvc,
		memberSvc:  memberSvc,
		userSvc:    userSvc,
		presence:   presence,
	}
}

func (h *APIHandler) CreateServer(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	srv, err := h.serverSvc.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, srv)
}

func (h *APIHandler) GetServer(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	srv, err := h.serverSvc.Get(r.Context(), serverID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, srv)
}

func (h *APIHandler) RenameServer(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.serverSvc.Rename(r.Context(), userID, serverID, req.Name); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) DeleteServer(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.serverSvc.Delete(r.Context(), userID, serverID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) JoinServer(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.memberSvc.Join(r.Context(), userID, serverID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) LeaveServer(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.memberSvc.Leave(r.Context(), userID, serverID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) KickMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.memberSvc.Kick(r.Context(), userID, serverID, targetID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	channels, err := h.channelSvc.List(r.Context(), userID, serverID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *APIHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	ch, err := h.channelSvc.Create(r.Context(), userID, serverID, req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *APIHandler) RenameChannel(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	channelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.channelSvc.Rename(r.Context(), userID, channelID, req.Name); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	channelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.channelSvc.Delete(r.Context(), userID, channelID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	channelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.messageSvc.List(r.Context(), userID, channelID, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *APIHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	channelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	msg, err := h.messageSvc.Post(r.Context(), userID, channelID, req.Content)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *APIHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.messageSvc.Edit(r.Context(), userID, messageID, req.Content); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.messageSvc.Delete(r.Context(), userID, messageID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.userSvc.ChangeUsername(r.Context(), userID, req.Username); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var req struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.userSvc.ChangeAvatar(r.Context(), userID, req.AvatarURL); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) OnlineMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	serverID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	// Presence is advisory but still membership-scoped.
	ids, err := h.memberSvc.ServerIDs(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	member := false
	for _, id := range ids {
		if id == serverID {
			member = true
			break
		}
	}
	if !member {
		writeDomainError(w, r, domain.ErrNotAMember)
		return
	}
	online, err := h.presence.GetOnlineMembers(r.Context(), serverID.String())
	if err != nil {
		log := logger.FromContext(r.Context())
		log.ErrorContext(r.Context(), "api handler - presence lookup failed", "server_id", serverID.String(), "err", err)
		http.Error(w, "presence unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"online": online})
}

// authedUser pulls the authenticated user id injected by AuthMiddleware.
func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrServerNotFound),
		errors.Is(err, domain.ErrChannelNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotAuthor):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrAlreadyMember), errors.Is(err, domain.ErrUsernameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidServerID),
		errors.Is(err, domain.ErrInvalidChannelID),
		errors.Is(err, domain.ErrInvalidMessageID),
		errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrEmptyMessage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log := logger.FromContext(r.Context())
		log.ErrorContext(r.Context(), "api handler - request failed", "path", r.URL.Path, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
