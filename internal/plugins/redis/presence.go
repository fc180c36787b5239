package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore keeps one ZSET per server, scoring each member by
// its last heartbeat. Presence is advisory only; authorization always
// goes through the membership gate, never through this store.
type RedisPresenceStore struct {
	rdb *redis.Client
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{
		rdb: rdb,
	}
}

// UpdateOnlineStatus adds/refreshes a user in the server's ZSET with the
// current timestamp.
func (p *RedisPresenceStore) UpdateOnlineStatus(
	ctx context.Context,
	serverID string,
	userID string,
	ttl time.Duration, // inactivity threshold
) error {
	key := "presence:" + serverID
	now := time.Now().Unix()

	err := p.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: userID,
	}).Err()
	if err != nil {
		return err
	}

	// Expire the whole ZSet so an inactive server does not leak memory.
	return p.rdb.Expire(ctx, key, ttl*2).Err()
}

// GetOnlineMembers returns users whose last heartbeat falls inside the
// online window.
func (p *RedisPresenceStore) GetOnlineMembers(
	ctx context.Context,
	serverID string,
) ([]string, error) {
	key := "presence:" + serverID
	threshold := time.Now().Add(-45 * time.Second).Unix()

	// Drop stale members first (self-cleaning).
	p.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(threshold, 10))

	return p.rdb.ZRange(ctx, key, 0, -1).Result()
}

// ClearServer deletes the entire ZSet for the server.
func (p *RedisPresenceStore) ClearServer(ctx context.Context, serverID string) error {
	return p.rdb.Del(ctx, "presence:"+serverID).Err()
}
