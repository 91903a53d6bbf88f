package storage

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Presence tracks which users hold a live gateway session.
//
// key: chat:presence:<user> -> node id, TTL bounds staleness when a
// gateway dies without cleaning up.
type Presence struct {
	nodeID string
	ttl    time.Duration
}

func NewPresence(nodeID string, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Presence{nodeID: nodeID, ttl: ttl}
}

func presenceKey(user string) string { return "chat:presence:" + user }

// Online marks the user online on this node and renews the TTL.
func (p *Presence) Online(ctx context.Context, userID string) error {
	if err := GetRedis().Set(ctx, presenceKey(userID), p.nodeID, p.ttl).Err(); err != nil {
		return errors.Wrap(err, "presence online")
	}
	return nil
}

// Offline removes the presence key.
func (p *Presence) Offline(ctx context.Context, userID string) error {
	if err := GetRedis().Del(ctx, presenceKey(userID)).Err(); err != nil {
		return errors.Wrap(err, "presence offline")
	}
	return nil
}

// Lookup reports whether the user is online and on which node.
func (p *Presence) Lookup(ctx context.Context, userID string) (nodeID string, online bool, err error) {
	val, err := GetRedis().Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "presence lookup")
	}
	return val, true, nil
}

// ListOnline scans all presence keys and returns the user ids.
func (p *Presence) ListOnline(ctx context.Context) ([]string, error) {
	var (
		users  []string
		cursor uint64
	)
	prefix := presenceKey("")
	for {
		keys, next, err := GetRedis().Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, errors.Wrap(err, "presence scan")
		}
		for _, k := range keys {
			users = append(users, strings.TrimPrefix(k, prefix))
		}
		if next == 0 {
			return users, nil
		}
		cursor = next
	}
}
