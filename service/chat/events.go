package chat

import (
	"encoding/json"
	"fmt"
)

// Inbound control frame types (client -> gateway).
const (
	FrameAuth  = "auth"
	FramePing  = "ping"
	FrameJoin  = "join"
	FrameLeave = "leave"
	FrameSend  = "send"
)

// Outbound wire event types (gateway -> client).
const (
	EventConn     = "conn"
	EventAuthAck  = "auth_ack"
	EventPong     = "pong"
	EventPresence = "presence"
	EventUnread   = "unread"
	EventMessage  = "message"
	EventChannel  = "channel"
	EventJoined   = "joined"
)

// Frame is the single inbound control frame shape; fields are populated per
// type (token for auth, channel_id for join/leave, channel_id+text for send).
type Frame struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	Text      string `json:"text,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame has no type")
	}
	return f, nil
}

// Message is the optimistic message shape fanned out to live members.
// ProvisionalID is client-visible only and never used as the durable id.
type Message struct {
	ProvisionalID string `json:"provisional_id"`
	ChannelID     string `json:"channel_id"`
	SenderID      string `json:"sender_id"`
	Text          string `json:"text"`
	CreatedAtMS   int64  `json:"created_at_ms"`
}

// ChannelSummary is the activation payload sent when a channel receives its
// first message.
type ChannelSummary struct {
	ChannelID     string `json:"channel_id"`
	ProvisionalID string `json:"provisional_id,omitempty"`
	ActivatedAtMS int64  `json:"activated_at_ms"`
}

// OfflineEntry is one just-departed user in a presence broadcast.
type OfflineEntry struct {
	UserID     string `json:"user_id"`
	LastSeenMS int64  `json:"last_seen_ms"`
}

// ---- outbound event builders ----

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// all event payloads are plain structs; this cannot fail at runtime
		panic(err)
	}
	return b
}

func BuildConnAck(connID, gatewayID string) []byte {
	return mustMarshal(map[string]any{
		"type":       EventConn,
		"conn_id":    connID,
		"gateway_id": gatewayID,
	})
}

func BuildAuthAck(userID string, ok bool) []byte {
	return mustMarshal(map[string]any{
		"type":    EventAuthAck,
		"ok":      ok,
		"user_id": userID,
	})
}

func BuildPong() []byte {
	return mustMarshal(map[string]any{"type": EventPong})
}

func BuildPresenceEvent(online []string, offline []OfflineEntry) []byte {
	if online == nil {
		online = []string{}
	}
	if offline == nil {
		offline = []OfflineEntry{}
	}
	return mustMarshal(map[string]any{
		"type":    EventPresence,
		"online":  online,
		"offline": offline,
	})
}

func BuildUnreadEvent(channelID string, count int64) []byte {
	return mustMarshal(map[string]any{
		"type":       EventUnread,
		"channel_id": channelID,
		"count":      count,
	})
}

// BuildMessageEvent tags the message with is_mine relative to the recipient
// and correction=true on the post-persistence-failure re-delivery.
func BuildMessageEvent(m *Message, isMine, correction bool) []byte {
	return mustMarshal(map[string]any{
		"type":       EventMessage,
		"message":    m,
		"sender":     m.SenderID,
		"is_mine":    isMine,
		"correction": correction,
	})
}

func BuildChannelEvent(ch ChannelSummary) []byte {
	return mustMarshal(map[string]any{
		"type":    EventChannel,
		"channel": ch,
	})
}

func BuildJoinedAck(channelID string) []byte {
	return mustMarshal(map[string]any{
		"type":       EventJoined,
		"channel_id": channelID,
	})
}
