package domain

import (
	"strings"

	"github.com/google/uuid"
)

const serverGroupPrefix = "server:"

// ServerGroup builds the broadcast group key for a chat server.
// Keys are lowercased so lookups are insensitive to identifier casing
// variance from different callers.
func ServerGroup(serverID uuid.UUID) string {
	return serverGroupPrefix + strings.ToLower(serverID.String())
}

// ParseServerGroup extracts the server id from a group key.
func ParseServerGroup(key string) (uuid.UUID, error) {
	key = strings.ToLower(key)
	if !strings.HasPrefix(key, serverGroupPrefix) {
		return uuid.Nil, ErrInvalidGroupKey
	}
	id, err := uuid.Parse(strings.TrimPrefix(key, serverGroupPrefix))
	if err != nil {
		return uuid.Nil, ErrInvalidGroupKey
	}
	return id, nil
}

// NormalizeGroup canonicalizes a caller-supplied group key.
func NormalizeGroup(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
