package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository handles the persistent identity
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUsername(ctx context.Context, id uuid.UUID, username string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
}

// ServerRepository handles chat-server lifecycle
type ServerRepository interface {
	CreateServer(ctx context.Context, s *Server) error
	GetServerByID(ctx context.Context, id uuid.UUID) (*Server, error)
	RenameServer(ctx context.Context, id uuid.UUID, name string) error
	DeleteServer(ctx context.Context, id uuid.UUID) error
}

// ChannelRepository handles channels inside a server
type ChannelRepository interface {
	CreateChannel(ctx context.Context, c *Channel) error
	GetChannelByID(ctx context.Context, id uuid.UUID) (*Channel, error)
	RenameChannel(ctx context.Context, id uuid.UUID, name string) error
	DeleteChannel(ctx context.Context, id uuid.UUID) error
	ListChannels(ctx context.Context, serverID uuid.UUID) ([]Channel, error)
}

// MessageRepository handles message persistence
type MessageRepository interface {
	CreateMessage(ctx context.Context, m *Message) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*Message, error)
	EditMessage(ctx context.Context, id uuid.UUID, content string) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error
	ListMessages(ctx context.Context, channelID uuid.UUID, limit int) ([]Message, error)
}

// MembershipRepository is the authoritative "may subscribe" relation.
// IsMember is the point query behind the fanout layer's gate check.
type MembershipRepository interface {
	AddMember(ctx context.Context, m *Membership) error
	RemoveMember(ctx context.Context, userID, serverID uuid.UUID) error
	IsMember(ctx context.Context, userID, serverID uuid.UUID) (bool, error)
	ListServerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListMemberIDs(ctx context.Context, serverID uuid.UUID) ([]uuid.UUID, error)
	ServerIDForChannel(ctx context.Context, channelID uuid.UUID) (uuid.UUID, error)
}
