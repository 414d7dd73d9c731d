package storage

import (
	"context"
	"strconv"
	"time"

	"PulseProject/tools/errs"
)

// Unread counters live in one hash per user:
//   pulse:unread:<user>  field = channel id, value = count
//
// Increment and reset both go through single redis commands (HINCRBY/HSET),
// never read-then-write, so concurrent "message arrived while absent" events
// and a concurrent join cannot lose updates.

func unreadKey(user string) string { return "pulse:unread:" + user }

// counters idle longer than this are allowed to expire with the whole hash
const unreadTTL = 30 * 24 * time.Hour

// RedisUnread implements chat.UnreadStore.
type RedisUnread struct{}

func NewRedisUnread() *RedisUnread { return &RedisUnread{} }

func (u *RedisUnread) Incr(ctx context.Context, userID, channelID string) (int64, error) {
	if rdb == nil {
		return 0, errNotInitialized
	}
	var n int64
	err := withRetry(ctx, func() error {
		var ierr error
		n, ierr = rdb.HIncrBy(ctx, unreadKey(userID), channelID, 1).Result()
		return ierr
	})
	if err != nil {
		return 0, errs.ErrTransientStore.WrapMsg("unread incr: " + err.Error())
	}
	// sliding expiry, best effort
	rdb.Expire(ctx, unreadKey(userID), unreadTTL)
	return n, nil
}

func (u *RedisUnread) Reset(ctx context.Context, userID, channelID string) error {
	if rdb == nil {
		return errNotInitialized
	}
	err := withRetry(ctx, func() error {
		return rdb.HSet(ctx, unreadKey(userID), channelID, 0).Err()
	})
	if err != nil {
		return errs.ErrTransientStore.WrapMsg("unread reset: " + err.Error())
	}
	return nil
}

func (u *RedisUnread) GetAll(ctx context.Context, userID string) (map[string]int64, error) {
	if rdb == nil {
		return nil, errNotInitialized
	}
	vals, err := rdb.HGetAll(ctx, unreadKey(userID)).Result()
	if err != nil {
		return nil, errs.ErrTransientStore.WrapMsg("unread get all: " + err.Error())
	}
	out := make(map[string]int64, len(vals))
	for ch, v := range vals {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[ch] = n
	}
	return out, nil
}
