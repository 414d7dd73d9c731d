package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"PulseProject/logger"
	"PulseProject/service/chat"
	"PulseProject/service/natsx"
	"PulseProject/tools/decode"
	"PulseProject/tools/errs"
)

// Deliverer pushes a raw payload to every live connection of one user on
// this gateway. chat.Server satisfies it.
type Deliverer interface {
	DeliverTo(userID string, payload []byte) bool
}

// targetKeys, in priority order. External producers do not agree on a field
// name, so the bridge sniffs; first present key wins even when empty-ish
// values follow under other keys.
var targetKeys = []string{
	"targetUserId",
	"target_user_id",
	"userId",
	"user_id",
	"uid",
	"to",
}

// Envelope is the decoded shape the bridge cares about. Everything else in
// the payload is opaque and forwarded as-is.
type Envelope struct {
	EventType string `json:"event_type"`
	Target    string // resolved from targetKeys, not a json field
	Raw       []byte
}

// Tap receives every envelope that passes its filter. Delivery to a tap is
// non-blocking; a full tap loses the envelope.
type Tap struct {
	C      chan Envelope
	Filter func(Envelope) bool
}

// Bridge consumes outbound events from the broker and fans them to the
// local gateway's connections and registered taps.
type Bridge struct {
	deliver Deliverer

	mu   sync.RWMutex
	taps []*Tap
}

func New(d Deliverer) *Bridge {
	return &Bridge{deliver: d}
}

// RegisterTap adds a local subscriber. filter may be nil (receive all).
func (b *Bridge) RegisterTap(buf int, filter func(Envelope) bool) *Tap {
	t := &Tap{C: make(chan Envelope, buf), Filter: filter}
	b.mu.Lock()
	b.taps = append(b.taps, t)
	b.mu.Unlock()
	return t
}

// Handler adapts the bridge to a natsx subscription. Errors are consumed
// here: a malformed envelope must not nak/redeliver, the loop just moves on.
func (b *Bridge) Handler() natsx.NatsxHandler {
	return func(_ context.Context, msg natsx.NatsxMessage) error {
		if err := b.handle(msg.Data); err != nil {
			logger.Warnf("[bridge] drop envelope subject=%s: %v", msg.Subject, err)
		}
		return nil
	}
}

func (b *Bridge) handle(raw []byte) error {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errs.ErrMalformedEnvelope.WithDetail(err.Error())
	}

	env, err := decode.DecodeMap[Envelope](m)
	if err != nil {
		return errs.ErrMalformedEnvelope.WithDetail(err.Error())
	}
	env.Raw = raw
	env.Target = extractTarget(m)

	b.fanToTaps(*env)

	if env.Target == "" {
		// parsed but addressed to nobody: same class as an unknown
		// recipient, dropped without noise
		logger.Debugf("[bridge] %v: no target field event=%s",
			errs.ErrUnknownRecipient, env.EventType)
		return nil
	}

	if !b.deliver.DeliverTo(env.Target, wirePayload(m, env)) {
		// The user may simply be connected to a different gateway node.
		logger.Debugf("[bridge] %v user=%s event=%s",
			errs.ErrUnknownRecipient, env.Target, env.EventType)
	}
	return nil
}

// wirePayload rewraps a relayed chat message into the standard message frame,
// so a remote recipient sees the same shape as local optimistic delivery.
// Every other event class passes through untouched.
func wirePayload(m map[string]any, env *Envelope) []byte {
	if env.EventType != chat.EventMessage {
		return env.Raw
	}
	mm, ok := m["message"].(map[string]any)
	if !ok {
		return env.Raw
	}
	msg, err := decode.DecodeMap[chat.Message](mm)
	if err != nil {
		return env.Raw
	}
	// the relay never targets the sender, the pipeline skips them
	return chat.BuildMessageEvent(msg, false, false)
}

func (b *Bridge) fanToTaps(env Envelope) {
	b.mu.RLock()
	taps := b.taps
	b.mu.RUnlock()
	for _, t := range taps {
		if t.Filter != nil && !t.Filter(env) {
			continue
		}
		select {
		case t.C <- env:
		default:
		}
	}
}

// extractTarget walks the known target keys and normalizes the first hit to
// string form, so a producer writing 42 matches a session keyed "42".
func extractTarget(m map[string]any) string {
	for _, k := range targetKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if s, ok := decode.AsString(v); ok {
			return s
		}
	}
	return ""
}
