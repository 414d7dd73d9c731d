package storage

import (
	"context"
	"strconv"
	"time"

	"PulseProject/logger"
	"PulseProject/service/chat"
	"PulseProject/tools/errs"

	"github.com/redis/go-redis/v9"
)

// Presence keys:
//   pulse:presence:u:<user>  hash {online, last_seen_ms, conn_id}
//   pulse:presence:online    set of online user ids
//
// Exactly one record per user, last writer wins: a user with several
// simultaneous connections has presence bound to the most recent one.
// Records never expire on their own; a connection that dies without a
// disconnect signal leaves the record online until corrected.

func presenceKey(user string) string { return "pulse:presence:u:" + user }

const onlineSetKey = "pulse:presence:online"

// RedisPresence implements chat.PresenceStore on the shared redis store.
type RedisPresence struct{}

func NewRedisPresence() *RedisPresence { return &RedisPresence{} }

func (p *RedisPresence) MarkOnline(ctx context.Context, userID, connID string) error {
	if rdb == nil {
		return errNotInitialized
	}
	now := time.Now().UnixMilli()
	err := withRetry(ctx, func() error {
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, presenceKey(userID),
				"online", 1,
				"last_seen_ms", now,
				"conn_id", connID,
			)
			pipe.SAdd(ctx, onlineSetKey, userID)
			return nil
		})
		return err
	})
	if err != nil {
		return errs.ErrTransientStore.WrapMsg("mark online user=" + userID + ": " + err.Error())
	}
	return nil
}

func (p *RedisPresence) MarkOffline(ctx context.Context, userID string) error {
	if rdb == nil {
		return errNotInitialized
	}
	now := time.Now().UnixMilli()
	err := withRetry(ctx, func() error {
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, presenceKey(userID),
				"online", 0,
				"last_seen_ms", now,
				"conn_id", "",
			)
			pipe.SRem(ctx, onlineSetKey, userID)
			return nil
		})
		return err
	})
	if err != nil {
		return errs.ErrTransientStore.WrapMsg("mark offline user=" + userID + ": " + err.Error())
	}
	return nil
}

// GetStatus returns the presence record, or a safe offline default when the
// record is missing or the store is unavailable.
func (p *RedisPresence) GetStatus(ctx context.Context, userID string) (chat.PresenceStatus, error) {
	def := chat.PresenceStatus{UserID: userID}
	if rdb == nil {
		return def, errNotInitialized
	}
	vals, err := rdb.HGetAll(ctx, presenceKey(userID)).Result()
	if err != nil {
		logger.Warnf("[presence] read failed user=%s err=%v, returning offline default", userID, err)
		return def, errs.ErrTransientStore.WrapMsg("get status: " + err.Error())
	}
	if len(vals) == 0 {
		return def, nil
	}
	st := chat.PresenceStatus{UserID: userID, ConnID: vals["conn_id"]}
	st.Online = vals["online"] == "1"
	if ms, perr := strconv.ParseInt(vals["last_seen_ms"], 10, 64); perr == nil {
		st.LastSeenMS = ms
	}
	return st, nil
}

func (p *RedisPresence) OnlineUsers(ctx context.Context) ([]string, error) {
	if rdb == nil {
		return nil, errNotInitialized
	}
	users, err := rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, errs.ErrTransientStore.WrapMsg("online users: " + err.Error())
	}
	return users, nil
}
