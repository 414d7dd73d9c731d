package chat

import (
	"context"

	"PulseProject/logger"
)

// PresenceNotifier couples the presence store with its broadcast side effect:
// every online/offline transition re-computes the full online list and fans a
// presence event to all live connections. Delivery pipeline and bridge depend
// on this port; nothing depends back on them.
type PresenceNotifier struct {
	store  PresenceStore
	conns  *ConnManager
	fanout *Fanout
}

func NewPresenceNotifier(store PresenceStore, conns *ConnManager, fanout *Fanout) *PresenceNotifier {
	return &PresenceNotifier{store: store, conns: conns, fanout: fanout}
}

func (p *PresenceNotifier) Store() PresenceStore { return p.store }

// MarkOnline overwrites the user's presence record with the new connection.
// A transient store failure is logged and surfaced, but must not stop the
// connection from proceeding; the caller decides.
func (p *PresenceNotifier) MarkOnline(ctx context.Context, userID, connID string) error {
	err := p.store.MarkOnline(ctx, userID, connID)
	if err != nil {
		logger.Warnf("[presence] mark online failed user=%s: %v", userID, err)
	}
	p.broadcast(ctx, nil)
	return err
}

// MarkOffline stamps last-seen and broadcasts, carrying the departed user in
// the offline delta list.
func (p *PresenceNotifier) MarkOffline(ctx context.Context, userID string) error {
	err := p.store.MarkOffline(ctx, userID)
	if err != nil {
		logger.Warnf("[presence] mark offline failed user=%s: %v", userID, err)
	}
	st, _ := p.store.GetStatus(ctx, userID)
	p.broadcast(ctx, []OfflineEntry{{UserID: userID, LastSeenMS: st.LastSeenMS}})
	return err
}

func (p *PresenceNotifier) GetStatus(ctx context.Context, userID string) (PresenceStatus, error) {
	return p.store.GetStatus(ctx, userID)
}

// broadcast pushes the full online list to every live connection. A store
// read failure degrades to an empty list rather than skipping the event.
func (p *PresenceNotifier) broadcast(ctx context.Context, offline []OfflineEntry) {
	online, err := p.store.OnlineUsers(ctx)
	if err != nil {
		logger.Warnf("[presence] online list unavailable: %v", err)
	}
	payload := BuildPresenceEvent(online, offline)
	p.fanout.BroadcastSame("presence", p.conns.ListAll(), payload)
}
