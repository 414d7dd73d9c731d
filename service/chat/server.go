package chat

import (
	"context"
	"time"

	"PulseProject/logger"
	"PulseProject/tools/errs"
)

// Server ties the engine together: connection registry, room multiplexer,
// fan-out workers, presence notifier, delivery pipeline and frame dispatch.
type Server struct {
	conns    *ConnManager
	rooms    *Rooms
	fanout   *Fanout
	presence *PresenceNotifier
	pipeline *Pipeline
	unread   UnreadStore
	identity Identity
	disp     *Dispatcher

	sendQueueSize int
}

type ServerConfig struct {
	GatewayID     string
	FanoutShards  int
	FanoutQueue   int
	SendQueueSize int
}

func (c *ServerConfig) norm() {
	if c.GatewayID == "" {
		c.GatewayID = "pulse_gw-1"
	}
	if c.FanoutShards <= 0 {
		c.FanoutShards = 8
	}
	if c.FanoutQueue <= 0 {
		c.FanoutQueue = 1024
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
}

func NewServer(cfg ServerConfig, presence PresenceStore, unread UnreadStore, durable DurableStore, identity Identity) *Server {
	cfg.norm()
	conns := NewConnManager(cfg.GatewayID)
	rooms := NewRooms()
	fanout := NewFanout(cfg.FanoutShards, cfg.FanoutQueue)
	s := &Server{
		conns:    conns,
		rooms:    rooms,
		fanout:   fanout,
		presence: NewPresenceNotifier(presence, conns, fanout),
		pipeline: NewPipeline(rooms, conns, fanout, unread, durable),
		unread:   unread,
		identity: identity,
		disp:     NewDispatcher(),
	}
	s.sendQueueSize = cfg.SendQueueSize
	return s
}

func (s *Server) ConnMgr() *ConnManager       { return s.conns }
func (s *Server) Rooms() *Rooms               { return s.rooms }
func (s *Server) Fanout() *Fanout             { return s.fanout }
func (s *Server) Presence() *PresenceNotifier { return s.presence }
func (s *Server) Pipeline() *Pipeline         { return s.pipeline }
func (s *Server) Unread() UnreadStore         { return s.unread }
func (s *Server) Identity() Identity          { return s.identity }
func (s *Server) Disp() *Dispatcher           { return s.disp }

// Authorize binds the resolved user to the connection and flips presence.
// Presence write failure is logged but does not block the session.
func (s *Server) Authorize(ctx context.Context, c *Client, userID string) error {
	if err := s.conns.Bind(c.ConnID, userID); err != nil {
		return err
	}
	if err := s.presence.MarkOnline(ctx, userID, c.ConnID); err != nil {
		logger.Warnf("[server] presence online err user=%s conn=%s: %v", userID, c.ConnID, err)
	}
	return nil
}

// JoinRoom is the join control op: room membership, unread reset, acks.
func (s *Server) JoinRoom(ctx context.Context, c *Client, channelID string) error {
	if c.State() != StateConnected {
		return errs.ErrNotAuthorized.WrapMsg("join channel=" + channelID)
	}
	s.rooms.Join(c, channelID)
	if err := s.unread.Reset(ctx, c.UserID, channelID); err != nil {
		logger.Warnf("[server] unread reset err user=%s channel=%s: %v", c.UserID, channelID, err)
	}
	c.Enqueue(BuildJoinedAck(channelID))
	c.Enqueue(BuildUnreadEvent(channelID, 0))
	return nil
}

func (s *Server) LeaveRoom(c *Client, channelID string) error {
	if c.State() != StateConnected {
		return errs.ErrNotAuthorized.WrapMsg("leave channel=" + channelID)
	}
	s.rooms.Leave(c.ConnID, channelID)
	return nil
}

// Disconnect is the terminal session transition. Idempotent: the second call
// finds the session already Disconnected and does nothing, so rooms are left
// once and the offline broadcast carries the user exactly once.
func (s *Server) Disconnect(c *Client) {
	if !c.shutdown() {
		return
	}
	s.rooms.LeaveAll(c.ConnID)
	s.conns.Remove(c.ConnID)
	if c.UserID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.presence.MarkOffline(ctx, c.UserID)
	}
}

// DeliverTo pushes a raw payload to every live connection of the user.
// The outbound event bridge uses this as its delivery port.
func (s *Server) DeliverTo(userID string, payload []byte) bool {
	return s.conns.BroadcastUser(userID, payload) > 0
}

// Close runs the full disconnect transition for every live session, so a
// graceful shutdown leaves no user stranded online in the shared registry,
// then tears down the indexes and the fan-out workers.
func (s *Server) Close() {
	for _, c := range s.conns.ListAll() {
		s.Disconnect(c)
	}
	s.conns.Close()
	s.fanout.Close()
}
