package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Pacer spaces one user's jobs out over time: every accepted request is
// scheduled at least `spacing` after the user's previous slot, so a burst of
// links does not produce a burst of collaborator calls.
type Pacer struct {
	cli     *redis.Client
	spacing time.Duration
}

func NewPacer(c *Client, spacing time.Duration) *Pacer {
	return &Pacer{cli: c.cli, spacing: spacing}
}

// luaNextSlot stores and returns max(now, last+spacing) in unix milliseconds.
var luaNextSlot = redis.NewScript(`
local last = tonumber(redis.call("GET", KEYS[1]))
local now = tonumber(ARGV[1])
local spacing = tonumber(ARGV[2])
local slot = now
if last and last + spacing > now then
	slot = last + spacing
end
redis.call("SET", KEYS[1], slot, "PX", ARGV[3])
return slot`)

// NextSlot reserves and returns the next scheduled time for the user.
func (p *Pacer) NextSlot(ctx context.Context, userID int64, now time.Time) (time.Time, error) {
	key := fmt.Sprintf("pacer:slot:%d", userID)
	// Keep the key around long enough for a deep backlog to drain.
	keyTTL := 24 * time.Hour
	res, err := luaNextSlot.Run(ctx, p.cli, []string{key},
		now.UnixMilli(), p.spacing.Milliseconds(), keyTTL.Milliseconds()).Result()
	if err != nil {
		return time.Time{}, err
	}
	ms, ok := res.(int64)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected pacer reply %T", res)
	}
	return time.UnixMilli(ms), nil
}
