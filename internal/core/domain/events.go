package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds carried over the websocket. Events are transient: produced
// and consumed within a single dispatch, never persisted.
const (
	TypeMessageAdded    = "message_added"
	TypeMessageEdited   = "message_edited"
	TypeMessageRemoved  = "message_removed"
	TypeChannelAdded    = "channel_added"
	TypeChannelUpdated  = "channel_updated"
	TypeChannelRemoved  = "channel_removed"
	TypeUserJoined      = "user_joined"
	TypeUserLeft        = "user_left"
	TypeServerUpdated   = "server_updated"
	TypeUsernameChanged = "username_changed"
	TypeAvatarChanged   = "avatar_changed"
)

// Event is a typed notification of a committed state change.
type Event interface {
	EventType() string
}

// MessageView is the wire shape of a message inside an event.
type MessageView struct {
	ID        uuid.UUID  `json:"id"`
	ChannelID uuid.UUID  `json:"channel_id"`
	AuthorID  uuid.UUID  `json:"author_id"`
	Content   string     `json:"content"`
	SentAt    time.Time  `json:"sent_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

type MessageEvent struct {
	Type       string      `json:"type"`
	ServerID   uuid.UUID   `json:"server_id"`
	Message    MessageView `json:"message"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func (e MessageEvent) EventType() string { return e.Type }

type MessageRemovedEvent struct {
	Type       string    `json:"type"`
	ServerID   uuid.UUID `json:"server_id"`
	ChannelID  uuid.UUID `json:"channel_id"`
	MessageID  uuid.UUID `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e MessageRemovedEvent) EventType() string { return e.Type }

type ChannelEvent struct {
	Type       string    `json:"type"`
	ServerID   uuid.UUID `json:"server_id"`
	ChannelID  uuid.UUID `json:"channel_id"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ChannelEvent) EventType() string { return e.Type }

type MemberEvent struct {
	Type       string    `json:"type"`
	ServerID   uuid.UUID `json:"server_id"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e MemberEvent) EventType() string { return e.Type }

type ServerUpdatedEvent struct {
	Type       string    `json:"type"`
	ServerID   uuid.UUID `json:"server_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ServerUpdatedEvent) EventType() string { return e.Type }

// ProfileEvent targets every live connection: any connection may have
// cached the identity's public profile, shared server or not.
type ProfileEvent struct {
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e ProfileEvent) EventType() string { return e.Type }
