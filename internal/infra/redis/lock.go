package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"telegram-media-relay/internal/domain"
)

// LeaderLock guards against a second scheduler instance polling the same
// store. The holder refreshes the key every cycle; if the process dies the
// TTL releases leadership.
type LeaderLock struct {
	cli   *redis.Client
	key   string
	token string
	ttl   time.Duration
}

func NewLeaderLock(c *Client, key string, ttl time.Duration) *LeaderLock {
	return &LeaderLock{cli: c.cli, key: key, token: uuid.NewString(), ttl: ttl}
}

// Acquire takes or refreshes leadership. Returns domain.ErrNotLeader when
// another instance holds the key.
func (l *LeaderLock) Acquire(ctx context.Context) error {
	ok, err := l.cli.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	res, err := luaRefresh.Run(ctx, l.cli, []string{l.key}, l.token, l.ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if n, _ := res.(int64); n == 0 {
		return domain.ErrNotLeader
	}
	return nil
}

// Release drops leadership if this instance still holds it.
func (l *LeaderLock) Release(ctx context.Context) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{l.key}, l.token).Result()
	return err
}

var luaRefresh = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
