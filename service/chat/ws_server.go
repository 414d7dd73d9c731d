package chat

import (
	"net"
	"net/http"
	"time"

	"PulseProject/logger"
	"PulseProject/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the HTTP request and runs the read loop for one
// connection. One goroutine reads, one writes (writePump); the read loop
// never writes to the socket directly.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws, s.sendQueueSize)
	if err := s.conns.AddUnbound(client); err != nil {
		logger.Errorf("[ws] register conn error: %v", err)
		_ = ws.Close()
		return
	}
	go client.writePump()
	client.Enqueue(BuildConnAck(client.ConnID, s.conns.GwID()))

	ws.SetReadLimit(1 << 20) // 1MB
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		if err := s.disp.Dispatch(&Context{S: s}, frame, client); err != nil {
			logger.Infof("[ws] handler err conn=%s type=%s err=%v", client.ConnID, frame.Type, err)
			continue
		}
	}

	// terminal transition: rooms left, presence offline, indexes cleaned.
	// Safe to hit again if the writer side also noticed the closure.
	s.Disconnect(client)
}
