package handlers

import (
	"context"
	"time"

	"PulseProject/service/chat"
	"PulseProject/tools/errs"
)

type SendHandler struct{}

func NewSendHandler() chat.Handler  { return &SendHandler{} }
func (h *SendHandler) Type() string { return chat.FrameSend }

func (h *SendHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if c.State() != chat.StateConnected {
		return errs.ErrNotAuthorized.WrapMsg("send before auth")
	}
	if f.ChannelID == "" || f.Text == "" {
		return errs.New("send frame missing channel_id or text")
	}
	rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := ctx.S.Pipeline().Deliver(rctx, c.UserID, f.ChannelID, f.Text)
	return err
}
