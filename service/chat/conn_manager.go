package chat

import (
	"sync"

	"github.com/pkg/errors"
)

// ConnManager indexes live connections two ways:
//   byConn: connID -> client (primary)
//   byUser: userID -> connID -> client (populated once the session is bound)
//
// It owns no room state; rooms live in the Rooms multiplexer.
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Client
	byUser map[string]map[string]*Client

	gwID string
}

func NewConnManager(gwID string) *ConnManager {
	return &ConnManager{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
		gwID:   gwID,
	}
}

func (m *ConnManager) GwID() string { return m.gwID }

// AddUnbound registers a fresh, not-yet-authenticated connection.
func (m *ConnManager) AddUnbound(c *Client) error {
	if c == nil || c.ConnID == "" {
		return errors.New("nil client or empty conn id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byConn[c.ConnID]; exists {
		return errors.New("conn id already registered")
	}
	m.byConn[c.ConnID] = c
	return nil
}

// Bind attaches a user identity to an unbound connection.
func (m *ConnManager) Bind(connID, userID string) error {
	if connID == "" || userID == "" {
		return errors.New("conn id or user id empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byConn[connID]
	if !ok {
		return errors.New("conn id not found")
	}
	if !c.bind(userID) {
		return errors.New("session not in unbound state")
	}
	if m.byUser[userID] == nil {
		m.byUser[userID] = make(map[string]*Client)
	}
	m.byUser[userID][connID] = c
	return nil
}

// Remove drops a connection from both indexes. Safe to call more than once.
func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byConn[connID]
	if !ok {
		return
	}
	delete(m.byConn, connID)
	if c.UserID != "" {
		if mm := m.byUser[c.UserID]; mm != nil {
			delete(mm, connID)
			if len(mm) == 0 {
				delete(m.byUser, c.UserID)
			}
		}
	}
}

func (m *ConnManager) GetByConn(connID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byConn[connID]
	return c, ok
}

// ListByUser returns every live connection bound to the user.
func (m *ConnManager) ListByUser(userID string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mm := m.byUser[userID]
	if len(mm) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(mm))
	for _, c := range mm {
		out = append(out, c)
	}
	return out
}

// IsUserLive reports whether the user has at least one bound connection on
// this gateway.
func (m *ConnManager) IsUserLive(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]) > 0
}

// ListAll snapshots every registered connection (broadcasts, stats).
func (m *ConnManager) ListAll() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.byConn))
	for _, c := range m.byConn {
		out = append(out, c)
	}
	return out
}

// BroadcastUser enqueues the payload on every connection of the user.
// Returns how many connections accepted it.
func (m *ConnManager) BroadcastUser(userID string, payload []byte) int {
	n := 0
	for _, c := range m.ListByUser(userID) {
		if c.Enqueue(payload) {
			n++
		}
	}
	return n
}

// Close shuts every connection down.
func (m *ConnManager) Close() {
	m.mu.Lock()
	conns := make([]*Client, 0, len(m.byConn))
	for _, c := range m.byConn {
		conns = append(conns, c)
	}
	m.byConn = make(map[string]*Client)
	m.byUser = make(map[string]map[string]*Client)
	m.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
}
