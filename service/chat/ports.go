package chat

import "context"

// PresenceStatus is the per-user presence record. Exactly one per user;
// last writer wins.
type PresenceStatus struct {
	UserID     string `json:"user_id"`
	Online     bool   `json:"online"`
	LastSeenMS int64  `json:"last_seen_ms"`
	ConnID     string `json:"conn_id,omitempty"`
}

// PresenceStore is the narrow contract over the shared store for presence
// records. Implementations must make each operation atomic per user; callers
// never do read-modify-write on these keys.
type PresenceStore interface {
	MarkOnline(ctx context.Context, userID, connID string) error
	MarkOffline(ctx context.Context, userID string) error
	// GetStatus returns a safe offline default when the record is missing or
	// the store is unavailable (the error still reports what happened).
	GetStatus(ctx context.Context, userID string) (PresenceStatus, error)
	OnlineUsers(ctx context.Context) ([]string, error)
}

// UnreadStore is the per-(user, channel) counter contract. Incr and Reset
// must be atomic store primitives; concurrent increments and resets on the
// same key must not lose updates.
type UnreadStore interface {
	Incr(ctx context.Context, userID, channelID string) (int64, error)
	Reset(ctx context.Context, userID, channelID string) error
	GetAll(ctx context.Context, userID string) (map[string]int64, error)
}

// DurableStore is the external persistence collaborator. This subsystem only
// consumes it; channel CRUD and history reads live elsewhere.
type DurableStore interface {
	// IsChannelNewlyActive reports whether the channel has zero persisted
	// messages, i.e. the next message flips it from inactive to active.
	IsChannelNewlyActive(ctx context.Context, channelID string) (bool, error)
	Persist(ctx context.Context, m *Message) error
	DurableMembersOf(ctx context.Context, channelID string) ([]string, error)
}

// Identity resolves connection credentials to a user id. The gateway trusts
// the result; it never validates credentials itself.
type Identity interface {
	Resolve(ctx context.Context, token string) (string, error)
}
