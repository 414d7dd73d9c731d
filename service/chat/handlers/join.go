package handlers

import (
	"context"
	"time"

	"PulseProject/service/chat"
	"PulseProject/tools/errs"
)

type JoinHandler struct{}

func NewJoinHandler() chat.Handler  { return &JoinHandler{} }
func (h *JoinHandler) Type() string { return chat.FrameJoin }

func (h *JoinHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.ChannelID == "" {
		return errs.New("join frame missing channel_id")
	}
	rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ctx.S.JoinRoom(rctx, c, f.ChannelID)
}
