package domain

// In-session websocket frames. Events (events.go) flow server→client;
// these frames cover the handshake and the explicit join path.
const (
	TypeHandshake = "handshake"
	TypeJoin      = "join"
	TypeJoined    = "joined"
	TypeError     = "error"
)

// HandshakeResponse is sent once on connect, after the initial
// subscription pass over the identity's memberships.
type HandshakeResponse struct {
	Type      string   `json:"type"` // "handshake"
	UserID    string   `json:"user_id"`
	HandleID  string   `json:"handle_id"`
	ServerIDs []string `json:"server_ids"`
}

// JoinRequest asks to subscribe this connection to a server group
// mid-session. The membership gate re-runs on every request; the
// declared target is never trusted.
type JoinRequest struct {
	Type     string `json:"type"` // "join"
	ServerID string `json:"server_id"`
}

// JoinedResponse confirms a successful subscription.
type JoinedResponse struct {
	Type     string `json:"type"` // "joined"
	ServerID string `json:"server_id"`
}

// ErrorMessage is a WS-safe error frame.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
