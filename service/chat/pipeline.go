package chat

import (
	"context"
	"time"

	"PulseProject/logger"
	"PulseProject/tools/errs"
	"PulseProject/tools/ids"
	"PulseProject/tools/safe"
)

// OutboundPublisher relays a per-user event to the broker so gateways holding
// the target's connections can deliver it. msgID keys broker-side dedup.
type OutboundPublisher interface {
	PublishUserEvent(ctx context.Context, userID, msgID string, payload []byte) error
}

// Pipeline is the message delivery path: optimistic local echo first, durable
// persistence second, correction on persistence failure. Within one channel,
// fan-outs submitted in order are observed in order (same fanout shard);
// nothing is guaranteed across channels.
type Pipeline struct {
	rooms    *Rooms
	conns    *ConnManager
	fanout   *Fanout
	unread   UnreadStore
	durable  DurableStore
	outbound OutboundPublisher // optional, nil disables cross-node relay

	persistTimeout time.Duration
}

func NewPipeline(rooms *Rooms, conns *ConnManager, fanout *Fanout, unread UnreadStore, durable DurableStore) *Pipeline {
	safe.MustNotNil(rooms, "rooms")
	safe.MustNotNil(conns, "conns")
	safe.MustNotNil(fanout, "fanout")
	safe.MustNotNil(unread, "unread")
	safe.MustNotNil(durable, "durable")
	return &Pipeline{
		rooms:          rooms,
		conns:          conns,
		fanout:         fanout,
		unread:         unread,
		durable:        durable,
		persistTimeout: 5 * time.Second,
	}
}

// SetOutbound attaches the cross-node relay. Call during wiring, before the
// first Deliver.
func (p *Pipeline) SetOutbound(pub OutboundPublisher) { p.outbound = pub }

// Deliver runs one outbound message through the pipeline. The optimistic
// copy reaches every live room member before this returns; persistence runs
// in the background and may still fail afterwards.
func (p *Pipeline) Deliver(ctx context.Context, senderID, channelID, text string) (*Message, error) {
	m := &Message{
		ProvisionalID: ids.GenerateString(),
		ChannelID:     channelID,
		SenderID:      senderID,
		Text:          text,
		CreatedAtMS:   time.Now().UnixMilli(),
	}

	// 1. optimistic fan-out to the live room, is_mine per recipient
	live := p.rooms.LiveMembersOf(channelID)
	p.fanout.Broadcast(channelID, messageSends(m, live, false))

	// 2. activation event when this is the channel's first message
	newlyActive, err := p.durable.IsChannelNewlyActive(ctx, channelID)
	if err != nil {
		logger.Warnf("[pipeline] activation check failed channel=%s: %v", channelID, err)
		newlyActive = false
	}

	members, err := p.durable.DurableMembersOf(ctx, channelID)
	if err != nil {
		merr := errs.ErrMemberResolution.WithDetail(err.Error())
		logger.Warnf("[pipeline] durable members unavailable channel=%s: %v", channelID, merr)
	}

	if newlyActive {
		payload := BuildChannelEvent(ChannelSummary{
			ChannelID:     channelID,
			ProvisionalID: m.ProvisionalID,
			ActivatedAtMS: m.CreatedAtMS,
		})
		for _, uid := range members {
			// any live connection of a durable member, in the room or not
			p.fanout.BroadcastSame(channelID, p.conns.ListByUser(uid), payload)
		}
	}

	// 3. unread counters for durable members absent from the room. Counter
	// updates are independent of the persistence outcome. A member that
	// resolves to no live connection is simply counted, never an error.
	for _, uid := range members {
		if uid == senderID {
			continue
		}
		if p.rooms.UserInRoom(uid, channelID) {
			continue
		}
		n, ierr := p.unread.Incr(ctx, uid, channelID)
		if ierr != nil {
			logger.Warnf("[pipeline] unread incr failed user=%s channel=%s: %v", uid, channelID, ierr)
			continue
		}
		if p.conns.IsUserLive(uid) {
			// live here but not in the room: push the new count
			p.conns.BroadcastUser(uid, BuildUnreadEvent(channelID, n))
			continue
		}
		// no session on this gateway: relay through the broker for whichever
		// node holds the user. Another node, or nobody; the bridge decides.
		if p.outbound != nil {
			env := mustMarshal(map[string]any{
				"event_type":   EventMessage,
				"targetUserId": uid,
				"channel_id":   channelID,
				"message":      m,
			})
			if perr := p.outbound.PublishUserEvent(ctx, uid, m.ProvisionalID+"|"+uid, env); perr != nil {
				logger.Warnf("[pipeline] outbound relay failed user=%s: %v", uid, perr)
			}
		}
	}

	// 4. durable persistence, off the hot path
	safe.SafeGo(func() { p.persist(m, live) })

	return m, nil
}

// persist hands the message to the durable collaborator once. On failure the
// same optimistic frame is re-delivered to the original live set as a
// correction signal; the failure is surfaced once, never retried in a loop.
func (p *Pipeline) persist(m *Message, live []*Client) {
	ctx, cancel := context.WithTimeout(context.Background(), p.persistTimeout)
	defer cancel()

	if err := p.durable.Persist(ctx, m); err != nil {
		perr := errs.ErrPersistenceFailed.WithDetail(err.Error())
		logger.Errorf("[pipeline] persist failed provisional_id=%s channel=%s: %v",
			m.ProvisionalID, m.ChannelID, perr)
		p.fanout.Broadcast(m.ChannelID, messageSends(m, live, true))
		return
	}
	// success needs no follow-up: the optimistic copy already delivered is
	// the client-visible truth; no durable-id reconciliation round trip.
}

func messageSends(m *Message, live []*Client, correction bool) []Send {
	sends := make([]Send, 0, len(live))
	for _, c := range live {
		sends = append(sends, Send{
			C:       c,
			Payload: BuildMessageEvent(m, c.UserID == m.SenderID, correction),
		})
	}
	return sends
}
