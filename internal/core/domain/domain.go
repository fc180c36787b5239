package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the durable identity a connection belongs to.
type User struct {
	ID           uuid.UUID
	Username     string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

// Server is a named chat server owning channels and members.
type Server struct {
	ID        uuid.UUID
	Name      string
	OwnerID   uuid.UUID
	CreatedAt time.Time
}

// Channel is a message stream inside a server.
type Channel struct {
	ID        uuid.UUID
	ServerID  uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Membership is the durable record of which users may access which server.
// It is the source of truth the fanout layer must never outrun.
type Membership struct {
	UserID   uuid.UUID
	ServerID uuid.UUID
	JoinedAt time.Time
}

// Message is one chat entry inside a channel.
type Message struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	AuthorID  uuid.UUID
	Content   string
	SentAt    time.Time
	EditedAt  *time.Time // nullable
}
