package chat

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Session states. A session is created Unbound, becomes Connected once the
// auth handshake binds a user, and ends Disconnected. Disconnected is
// terminal; a reconnect is a brand new session with a new conn id.
const (
	StateUnbound int32 = iota
	StateConnected
	StateDisconnected
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Client is one live websocket connection. A single user may hold several
// clients at once; each is tracked separately.
type Client struct {
	ConnID string
	UserID string // set when the session transitions to Connected

	WS   *websocket.Conn
	Send chan []byte // outbound queue, drained by the single writer goroutine

	state int32 // atomic, one of the State* values
	done  chan struct{}
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) State() int32 { return atomic.LoadInt32(&c.state) }

// bind marks the session Connected. Only legal from Unbound.
func (c *Client) bind(userID string) bool {
	if !atomic.CompareAndSwapInt32(&c.state, StateUnbound, StateConnected) {
		return false
	}
	c.UserID = userID
	return true
}

// shutdown moves the session to Disconnected. Returns false on the second
// and later calls, which makes the disconnect path idempotent.
func (c *Client) shutdown() bool {
	prev := atomic.SwapInt32(&c.state, StateDisconnected)
	if prev == StateDisconnected {
		return false
	}
	close(c.done)
	return true
}

// Enqueue puts a payload on the client's send queue without blocking. A slow
// or dead client drops the payload instead of stalling the caller; delivery
// here is best effort by design of the fan-out path.
func (c *Client) Enqueue(payload []byte) bool {
	if c.State() == StateDisconnected {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// writePump is the single writer for this connection: it serializes frames
// from the send queue and keeps the ping/pong keepalive going. Exits when
// shutdown() fires or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.WS.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"),
				time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
