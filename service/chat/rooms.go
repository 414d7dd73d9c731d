package chat

import "sync"

// Rooms is the channel room multiplexer: for each channel, the set of
// connections currently joined. Membership here is live presence in a room,
// decoupled from the durable channel-membership list; fan-out intersects the
// two.
//
// Dual index under one lock keeps the invariant that a connection appears in
// room R iff R is in its joined set, in both directions, at all times.
type Rooms struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]*Client // channel -> connID -> client
	byConn map[string]map[string]bool    // connID -> set of channels
}

func NewRooms() *Rooms {
	return &Rooms{
		byRoom: make(map[string]map[string]*Client),
		byConn: make(map[string]map[string]bool),
	}
}

// Join adds the connection to the room's live set. Idempotent; reports
// whether the membership is new.
func (r *Rooms) Join(c *Client, channelID string) bool {
	if c == nil || channelID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byConn[c.ConnID][channelID] {
		return false
	}
	if r.byRoom[channelID] == nil {
		r.byRoom[channelID] = make(map[string]*Client)
	}
	r.byRoom[channelID][c.ConnID] = c
	if r.byConn[c.ConnID] == nil {
		r.byConn[c.ConnID] = make(map[string]bool)
	}
	r.byConn[c.ConnID][channelID] = true
	return true
}

// Leave removes the connection from the room. Idempotent, no-op when the
// connection is not a member.
func (r *Rooms) Leave(connID, channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(connID, channelID)
}

func (r *Rooms) leaveLocked(connID, channelID string) bool {
	set, ok := r.byConn[connID]
	if !ok || !set[channelID] {
		return false
	}
	delete(set, channelID)
	if len(set) == 0 {
		delete(r.byConn, connID)
	}
	if members, ok := r.byRoom[channelID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.byRoom, channelID)
		}
	}
	return true
}

// LeaveAll removes the connection from every room it joined; returns the
// affected channel ids. Used by the disconnect transition.
func (r *Rooms) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	channels := make([]string, 0, len(set))
	for ch := range set {
		channels = append(channels, ch)
	}
	for _, ch := range channels {
		r.leaveLocked(connID, ch)
	}
	return channels
}

// LiveMembersOf snapshots the connections currently joined to the channel.
func (r *Rooms) LiveMembersOf(channelID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byRoom[channelID]
	if len(members) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// JoinedChannels returns the channels the connection currently sits in.
func (r *Rooms) JoinedChannels(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byConn[connID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	return out
}

// UserInRoom reports whether any connection of the user is joined to the
// channel. Fan-out uses this to decide unread increments.
func (r *Rooms) UserInRoom(userID, channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byRoom[channelID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
