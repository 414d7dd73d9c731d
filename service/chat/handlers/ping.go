package handlers

import (
	"PulseProject/service/chat"
)

// PingHandler answers application-level pings. Transport keepalive runs on
// websocket control frames; this exists for clients that cannot send those.
type PingHandler struct{}

func NewPingHandler() chat.Handler  { return &PingHandler{} }
func (h *PingHandler) Type() string { return chat.FramePing }

func (h *PingHandler) Handle(_ *chat.Context, _ *chat.Frame, c *chat.Client) error {
	c.Enqueue(chat.BuildPong())
	return nil
}
